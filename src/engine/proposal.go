package engine

import (
	"github.com/username/poolfolio/backend/src/models"
)

// ProposeSellAllocations splits a prospective sale across members in
// proportion to their current holdings of the security. Only members with a
// positive share count participate; zero and negative holders are left out
// entirely. When nobody holds the security the proposal is empty and the
// caller falls back to manual allocation.
//
// This is a proposal, not a write: amounts carry full floating-point
// precision and the caller is responsible for reconciling rounding so the
// final allocations sum to the transaction total (conventionally by assigning
// the remainder to the largest holder).
func ProposeSellAllocations(securityID int64, quantity, pricePerUnit float64, snap *models.Snapshot) ([]models.ProposedAllocation, error) {
	idx, err := indexSnapshot(snap)
	if err != nil {
		return nil, err
	}
	if _, ok := idx.securities[securityID]; !ok {
		return nil, &ReferenceNotFoundError{Kind: "security", ID: securityID}
	}

	shares := sharesFromIndex(snap, idx)

	var totalShares float64
	holders := make([]models.Member, 0, len(snap.Members))
	for _, m := range snap.Members {
		if count := shares[m.ID][securityID]; count > shareEpsilon {
			holders = append(holders, m)
			totalShares += count
		}
	}
	proposals := []models.ProposedAllocation{}
	if totalShares <= shareEpsilon {
		return proposals, nil
	}

	total := quantity * pricePerUnit
	for _, m := range holders {
		pct := shares[m.ID][securityID] / totalShares
		proposals = append(proposals, models.ProposedAllocation{
			MemberID:   m.ID,
			Name:       m.Name,
			Amount:     total * pct,
			Percentage: pct,
		})
	}
	return proposals, nil
}
