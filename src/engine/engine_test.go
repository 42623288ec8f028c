package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/poolfolio/backend/src/models"
)

func floatPtr(v float64) *float64 { return &v }

// twoMemberSnapshot is the canonical fixture: Alice and Bob each contribute
// 1000, then a buy of 10 ACME at 100 is split 600/400.
func twoMemberSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Members: []models.Member{
			{ID: 1, Name: "Alice", IsAdmin: true},
			{ID: 2, Name: "Bob"},
		},
		Contributions: []models.Contribution{
			{ID: 1, MemberID: 1, Amount: 1000, Date: "2024-01-02"},
			{ID: 2, MemberID: 2, Amount: 1000, Date: "2024-01-03"},
		},
		Securities: []models.Security{
			{ID: 1, Symbol: "ACME", Name: "Acme Corp", LastPrice: floatPtr(120)},
		},
		Transactions: []models.Transaction{
			{ID: 1, SecurityID: 1, Type: models.TransactionTypeBuy, Date: "2024-01-10", Quantity: 10, PricePerUnit: 100},
		},
		Allocations: []models.Allocation{
			{ID: 1, TransactionID: 1, MemberID: 1, Amount: 600, Percentage: 0.6},
			{ID: 2, TransactionID: 1, MemberID: 2, Amount: 400, Percentage: 0.4},
		},
	}
}

func TestSharesByMemberAndSecurity(t *testing.T) {
	shares, err := SharesByMemberAndSecurity(twoMemberSnapshot())
	require.NoError(t, err)

	assert.InDelta(t, 6.0, shares[1][1], 1e-9)
	assert.InDelta(t, 4.0, shares[2][1], 1e-9)
}

func TestSharesSellReducesPosition(t *testing.T) {
	snap := twoMemberSnapshot()
	snap.Transactions = append(snap.Transactions, models.Transaction{
		ID: 2, SecurityID: 1, Type: models.TransactionTypeSell, Date: "2024-02-01", Quantity: 5, PricePerUnit: 120,
	})
	snap.Allocations = append(snap.Allocations,
		models.Allocation{ID: 3, TransactionID: 2, MemberID: 1, Amount: 360, Percentage: 0.6},
		models.Allocation{ID: 4, TransactionID: 2, MemberID: 2, Amount: 240, Percentage: 0.4},
	)

	shares, err := SharesByMemberAndSecurity(snap)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, shares[1][1], 1e-9)
	assert.InDelta(t, 2.0, shares[2][1], 1e-9)
}

func TestSharesCanGoNegativeOnMalformedLedger(t *testing.T) {
	// A sell allocated to a member who never bought. The engine reports the
	// negative position instead of rejecting it.
	snap := twoMemberSnapshot()
	snap.Members = append(snap.Members, models.Member{ID: 3, Name: "Carol"})
	snap.Transactions = append(snap.Transactions, models.Transaction{
		ID: 2, SecurityID: 1, Type: models.TransactionTypeSell, Date: "2024-02-01", Quantity: 2, PricePerUnit: 110,
	})
	snap.Allocations = append(snap.Allocations,
		models.Allocation{ID: 3, TransactionID: 2, MemberID: 3, Amount: 220, Percentage: 1},
	)

	shares, err := SharesByMemberAndSecurity(snap)
	require.NoError(t, err)
	assert.InDelta(t, -2.0, shares[3][1], 1e-9)
}

func TestCashByMember(t *testing.T) {
	cash, err := CashByMember(twoMemberSnapshot())
	require.NoError(t, err)

	assert.InDelta(t, 1000.0, cash[1].TotalContributions, MoneyTolerance)
	assert.InDelta(t, 600.0, cash[1].TotalBuys, MoneyTolerance)
	assert.InDelta(t, 0.0, cash[1].TotalSells, MoneyTolerance)
	assert.InDelta(t, 400.0, cash[1].AvailableCash, MoneyTolerance)
	assert.InDelta(t, 600.0, cash[2].AvailableCash, MoneyTolerance)
}

func TestCashByMemberSellsAddBack(t *testing.T) {
	snap := twoMemberSnapshot()
	snap.Transactions = append(snap.Transactions, models.Transaction{
		ID: 2, SecurityID: 1, Type: models.TransactionTypeSell, Date: "2024-02-01", Quantity: 5, PricePerUnit: 120,
	})
	snap.Allocations = append(snap.Allocations,
		models.Allocation{ID: 3, TransactionID: 2, MemberID: 1, Amount: 360, Percentage: 0.6},
		models.Allocation{ID: 4, TransactionID: 2, MemberID: 2, Amount: 240, Percentage: 0.4},
	)

	cash, err := CashByMember(snap)
	require.NoError(t, err)

	assert.InDelta(t, 760.0, cash[1].AvailableCash, MoneyTolerance)
	assert.InDelta(t, 840.0, cash[2].AvailableCash, MoneyTolerance)
}

func TestCashByMemberNoActivityIsZero(t *testing.T) {
	snap := twoMemberSnapshot()
	snap.Members = append(snap.Members, models.Member{ID: 9, Name: "Idle"})

	cash, err := CashByMember(snap)
	require.NoError(t, err)

	balance, ok := cash[9]
	require.True(t, ok, "idle member must still get a balance entry")
	assert.Equal(t, models.CashBalance{}, balance)
}

func TestCostBasisByMemberAndSecurity(t *testing.T) {
	basis, err := CostBasisByMemberAndSecurity(twoMemberSnapshot())
	require.NoError(t, err)

	assert.InDelta(t, 600.0, basis[1][1], MoneyTolerance)
	assert.InDelta(t, 400.0, basis[2][1], MoneyTolerance)
}

func TestCostBasisIsNetCashInvestedNotAverageCost(t *testing.T) {
	// Selling everything at a profit pulls the basis below zero. That is the
	// documented net-invested semantics, not a bug.
	snap := twoMemberSnapshot()
	snap.Transactions = append(snap.Transactions, models.Transaction{
		ID: 2, SecurityID: 1, Type: models.TransactionTypeSell, Date: "2024-03-01", Quantity: 10, PricePerUnit: 120,
	})
	snap.Allocations = append(snap.Allocations,
		models.Allocation{ID: 3, TransactionID: 2, MemberID: 1, Amount: 720, Percentage: 0.6},
		models.Allocation{ID: 4, TransactionID: 2, MemberID: 2, Amount: 480, Percentage: 0.4},
	)

	basis, err := CostBasisByMemberAndSecurity(snap)
	require.NoError(t, err)

	assert.InDelta(t, -120.0, basis[1][1], MoneyTolerance)
	assert.InDelta(t, -80.0, basis[2][1], MoneyTolerance)
}

func TestInconsistentAllocationSumsFlowThrough(t *testing.T) {
	// Allocations sum to 1100 against a 1000 transaction. The engine must
	// reproduce the inconsistent figures downstream, not normalize them.
	snap := twoMemberSnapshot()
	snap.Allocations = []models.Allocation{
		{ID: 1, TransactionID: 1, MemberID: 1, Amount: 700, Percentage: 0.7},
		{ID: 2, TransactionID: 1, MemberID: 2, Amount: 400, Percentage: 0.4},
	}

	shares, err := SharesByMemberAndSecurity(snap)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, shares[1][1], 1e-9)
	assert.InDelta(t, 4.0, shares[2][1], 1e-9)

	basis, err := CostBasisByMemberAndSecurity(snap)
	require.NoError(t, err)
	assert.InDelta(t, 700.0, basis[1][1], MoneyTolerance)

	cash, err := CashByMember(snap)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, cash[1].AvailableCash, MoneyTolerance)
}

func TestStructuralReferenceErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.Snapshot)
		wantKind string
		wantID   int64
	}{
		{
			name: "allocation references unknown member",
			mutate: func(s *models.Snapshot) {
				s.Allocations[0].MemberID = 99
			},
			wantKind: "member",
			wantID:   99,
		},
		{
			name: "allocation references unknown transaction",
			mutate: func(s *models.Snapshot) {
				s.Allocations[1].TransactionID = 77
			},
			wantKind: "transaction",
			wantID:   77,
		},
		{
			name: "transaction references unknown security",
			mutate: func(s *models.Snapshot) {
				s.Transactions[0].SecurityID = 42
			},
			wantKind: "security",
			wantID:   42,
		},
		{
			name: "contribution references unknown member",
			mutate: func(s *models.Snapshot) {
				s.Contributions[0].MemberID = 55
			},
			wantKind: "member",
			wantID:   55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := twoMemberSnapshot()
			tt.mutate(snap)

			_, err := SharesByMemberAndSecurity(snap)
			require.Error(t, err)

			var refErr *ReferenceNotFoundError
			require.ErrorAs(t, err, &refErr)
			assert.Equal(t, tt.wantKind, refErr.Kind)
			assert.Equal(t, tt.wantID, refErr.ID)
		})
	}
}
