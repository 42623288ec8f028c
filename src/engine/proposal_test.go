package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/poolfolio/backend/src/models"
)

func TestProposeSellAllocationsProportionalSplit(t *testing.T) {
	// Selling 5 of the 10 held shares at 120: the 600 proceeds split 60/40
	// along current ownership.
	proposals, err := ProposeSellAllocations(1, 5, 120, twoMemberSnapshot())
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	assert.Equal(t, int64(1), proposals[0].MemberID)
	assert.InDelta(t, 360.0, proposals[0].Amount, MoneyTolerance)
	assert.InDelta(t, 0.6, proposals[0].Percentage, 1e-9)

	assert.Equal(t, int64(2), proposals[1].MemberID)
	assert.InDelta(t, 240.0, proposals[1].Amount, MoneyTolerance)
	assert.InDelta(t, 0.4, proposals[1].Percentage, 1e-9)

	var amountSum, pctSum float64
	for _, p := range proposals {
		amountSum += p.Amount
		pctSum += p.Percentage
	}
	assert.InDelta(t, 600.0, amountSum, MoneyTolerance)
	assert.InDelta(t, 1.0, pctSum, 1e-9)
}

func TestProposeSellAllocationsNothingHeld(t *testing.T) {
	snap := twoMemberSnapshot()
	snap.Transactions = nil
	snap.Allocations = nil

	proposals, err := ProposeSellAllocations(1, 5, 120, snap)
	require.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestProposeSellAllocationsExcludesNonPositiveHolders(t *testing.T) {
	// Carol carries a negative position from a malformed sell; she must not
	// appear in the proposal and must not skew the split.
	snap := twoMemberSnapshot()
	snap.Members = append(snap.Members, models.Member{ID: 3, Name: "Carol"})
	snap.Transactions = append(snap.Transactions, models.Transaction{
		ID: 2, SecurityID: 1, Type: models.TransactionTypeSell, Date: "2024-02-01", Quantity: 2, PricePerUnit: 110,
	})
	snap.Allocations = append(snap.Allocations,
		models.Allocation{ID: 3, TransactionID: 2, MemberID: 3, Amount: 220, Percentage: 1},
	)

	proposals, err := ProposeSellAllocations(1, 5, 120, snap)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	assert.InDelta(t, 0.6, proposals[0].Percentage, 1e-9)
	assert.InDelta(t, 0.4, proposals[1].Percentage, 1e-9)
}

func TestProposeSellAllocationsUnknownSecurity(t *testing.T) {
	_, err := ProposeSellAllocations(404, 5, 120, twoMemberSnapshot())

	var refErr *ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "security", refErr.Kind)
}

func TestProposeSellAllocationsDoesNotMutateSnapshot(t *testing.T) {
	snap := twoMemberSnapshot()
	before := len(snap.Allocations)

	_, err := ProposeSellAllocations(1, 5, 120, snap)
	require.NoError(t, err)
	assert.Len(t, snap.Allocations, before)
}
