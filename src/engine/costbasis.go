package engine

import (
	"github.com/username/poolfolio/backend/src/models"
)

// CostBasisByMemberAndSecurity folds the net amount each member has invested
// in each security: buy allocation amounts minus sell allocation amounts.
//
// This tracks net cash invested, not weighted-average cost. A sell subtracts
// its full allocated amount, so a profitable full exit drives the basis below
// zero instead of to zero; gain/loss figures rely on that.
func CostBasisByMemberAndSecurity(snap *models.Snapshot) (map[int64]map[int64]float64, error) {
	idx, err := indexSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return costBasisFromIndex(snap, idx), nil
}

func costBasisFromIndex(snap *models.Snapshot, idx *snapshotIndex) map[int64]map[int64]float64 {
	basis := make(map[int64]map[int64]float64)
	for _, alloc := range snap.Allocations {
		tx := idx.transactions[alloc.TransactionID]
		amount := alloc.Amount
		if tx.Type == models.TransactionTypeSell {
			amount = -amount
		}
		bySecurity := basis[alloc.MemberID]
		if bySecurity == nil {
			bySecurity = make(map[int64]float64)
			basis[alloc.MemberID] = bySecurity
		}
		bySecurity[tx.SecurityID] += amount
	}
	return basis
}
