package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/poolfolio/backend/src/models"
)

func TestBuildPortfolioSummaryConcreteScenario(t *testing.T) {
	summary, err := BuildPortfolioSummary(twoMemberSnapshot())
	require.NoError(t, err)
	require.Len(t, summary.Members, 2)

	alice, bob := summary.Members[0], summary.Members[1]
	require.Equal(t, int64(1), alice.MemberID)
	require.Equal(t, int64(2), bob.MemberID)

	assert.InDelta(t, 400.0, alice.AvailableCash, MoneyTolerance)
	assert.InDelta(t, 720.0, alice.StockValue, MoneyTolerance)
	assert.InDelta(t, 1120.0, alice.TotalValue, MoneyTolerance)
	assert.InDelta(t, 600.0, alice.CostBasis, MoneyTolerance)
	assert.InDelta(t, 120.0, alice.GainLoss, MoneyTolerance)
	assert.InDelta(t, 20.0, alice.GainLossPercentage, 0.001)

	assert.InDelta(t, 600.0, bob.AvailableCash, MoneyTolerance)
	assert.InDelta(t, 480.0, bob.StockValue, MoneyTolerance)
	assert.InDelta(t, 1080.0, bob.TotalValue, MoneyTolerance)
	assert.InDelta(t, 400.0, bob.CostBasis, MoneyTolerance)
	assert.InDelta(t, 80.0, bob.GainLoss, MoneyTolerance)

	assert.InDelta(t, 2200.0, summary.TotalValue, MoneyTolerance)
	assert.InDelta(t, 1000.0, summary.TotalCash, MoneyTolerance)
	assert.InDelta(t, 1200.0, summary.TotalStockValue, MoneyTolerance)
	assert.InDelta(t, 1000.0, summary.TotalCostBasis, MoneyTolerance)
	// TotalGainLoss is defined as TotalValue - TotalCash - TotalCostBasis.
	assert.InDelta(t, 200.0, summary.TotalGainLoss, MoneyTolerance)
}

func TestOwnershipPercentagesSumTo100(t *testing.T) {
	snap := twoMemberSnapshot()
	snap.Members = append(snap.Members, models.Member{ID: 3, Name: "Carol"})
	snap.Contributions = append(snap.Contributions,
		models.Contribution{ID: 3, MemberID: 3, Amount: 333.33, Date: "2024-01-05"},
	)

	summary, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)
	require.Greater(t, summary.TotalValue, 0.0)

	var sum float64
	for _, m := range summary.Members {
		sum += m.OwnershipPercentage
	}
	assert.InDelta(t, 100.0, sum, 0.001)
}

func TestEmptySnapshotYieldsZeroSummary(t *testing.T) {
	summary, err := BuildPortfolioSummary(&models.Snapshot{})
	require.NoError(t, err)

	assert.Zero(t, summary.TotalValue)
	assert.Zero(t, summary.TotalCash)
	assert.Zero(t, summary.TotalGainLoss)
	assert.Empty(t, summary.Members)
}

func TestZeroValuePortfolioReportsZeroOwnership(t *testing.T) {
	// Members exist but nothing has value: every ownership percentage must be
	// 0, never NaN.
	snap := &models.Snapshot{
		Members: []models.Member{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}},
	}
	summary, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)

	for _, m := range summary.Members {
		assert.Zero(t, m.OwnershipPercentage)
		assert.False(t, math.IsNaN(m.OwnershipPercentage))
	}
}

func TestBuildPortfolioSummaryIsIdempotent(t *testing.T) {
	snap := twoMemberSnapshot()

	first, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)
	second, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildPortfolioSummaryDeterministicAcrossSecurities(t *testing.T) {
	// Float addition is not associative, so per-member sums over several
	// securities only come out bit-identical when the summation order is
	// fixed. Prices 0.1/0.2/0.3 are chosen so any reordering shows up.
	snap := &models.Snapshot{
		Members: []models.Member{{ID: 1, Name: "Alice"}},
		Securities: []models.Security{
			{ID: 1, Symbol: "AAA", LastPrice: floatPtr(0.1)},
			{ID: 2, Symbol: "BBB", LastPrice: floatPtr(0.2)},
			{ID: 3, Symbol: "CCC", LastPrice: floatPtr(0.3)},
		},
		Transactions: []models.Transaction{
			{ID: 1, SecurityID: 1, Type: models.TransactionTypeBuy, Date: "2024-01-02", Quantity: 1, PricePerUnit: 0.1},
			{ID: 2, SecurityID: 2, Type: models.TransactionTypeBuy, Date: "2024-01-03", Quantity: 1, PricePerUnit: 0.2},
			{ID: 3, SecurityID: 3, Type: models.TransactionTypeBuy, Date: "2024-01-04", Quantity: 1, PricePerUnit: 0.3},
		},
		Allocations: []models.Allocation{
			{ID: 1, TransactionID: 1, MemberID: 1, Amount: 0.1, Percentage: 1},
			{ID: 2, TransactionID: 2, MemberID: 1, Amount: 0.2, Percentage: 1},
			{ID: 3, TransactionID: 3, MemberID: 1, Amount: 0.3, Percentage: 1},
		},
	}

	first, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		next, err := BuildPortfolioSummary(snap)
		require.NoError(t, err)
		require.Equal(t, first, next, "run %d diverged", i)
	}
}

func TestUnknownPriceValuesAsZero(t *testing.T) {
	snap := twoMemberSnapshot()
	snap.Securities[0].LastPrice = nil

	summary, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)

	alice := summary.Members[0]
	assert.Zero(t, alice.StockValue)
	assert.InDelta(t, -600.0, alice.GainLoss, MoneyTolerance)
	assert.False(t, math.IsNaN(alice.GainLossPercentage))
}

func TestGainLossPercentageZeroWhenNoBasis(t *testing.T) {
	snap := &models.Snapshot{
		Members:    []models.Member{{ID: 1, Name: "Alice"}},
		Securities: []models.Security{{ID: 1, Symbol: "ACME", LastPrice: nil}},
	}
	summary, err := BuildPortfolioSummary(snap)
	require.NoError(t, err)

	assert.Zero(t, summary.Members[0].GainLossPercentage)
	assert.False(t, math.IsNaN(summary.Members[0].GainLossPercentage))
}

func TestBuildSecuritySummary(t *testing.T) {
	summary, err := BuildSecuritySummary(1, twoMemberSnapshot())
	require.NoError(t, err)

	assert.Equal(t, "ACME", summary.Symbol)
	assert.InDelta(t, 10.0, summary.TotalShares, 1e-9)
	assert.InDelta(t, 1200.0, summary.TotalValue, MoneyTolerance)
	require.Len(t, summary.Holders, 2)

	assert.InDelta(t, 6.0, summary.Holders[0].Shares, 1e-9)
	assert.InDelta(t, 60.0, summary.Holders[0].Percentage, 0.001)
	assert.InDelta(t, 40.0, summary.Holders[1].Percentage, 0.001)

	var pctSum float64
	for _, h := range summary.Holders {
		pctSum += h.Percentage
	}
	assert.InDelta(t, 100.0, pctSum, 0.001)
}

func TestBuildSecuritySummaryOmitsNetZeroHolders(t *testing.T) {
	// Alice fully exits. She keeps a (negative) cost basis but must drop out
	// of the holders list; Bob then owns 100% of what remains.
	snap := twoMemberSnapshot()
	snap.Transactions = append(snap.Transactions, models.Transaction{
		ID: 2, SecurityID: 1, Type: models.TransactionTypeSell, Date: "2024-04-01", Quantity: 6, PricePerUnit: 120,
	})
	snap.Allocations = append(snap.Allocations,
		models.Allocation{ID: 3, TransactionID: 2, MemberID: 1, Amount: 720, Percentage: 1},
	)

	summary, err := BuildSecuritySummary(1, snap)
	require.NoError(t, err)
	require.Len(t, summary.Holders, 1)

	assert.Equal(t, int64(2), summary.Holders[0].MemberID)
	assert.InDelta(t, 4.0, summary.Holders[0].Shares, 1e-9)
	assert.InDelta(t, 100.0, summary.Holders[0].Percentage, 0.001)
}

func TestBuildSecuritySummaryUnknownSecurity(t *testing.T) {
	_, err := BuildSecuritySummary(404, twoMemberSnapshot())

	var refErr *ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "security", refErr.Kind)
	assert.Equal(t, int64(404), refErr.ID)
}
