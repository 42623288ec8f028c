package engine

import (
	"github.com/username/poolfolio/backend/src/models"
)

// SharesByMemberAndSecurity folds every allocation into a signed share count
// per (member, security). A member's share of a transaction's quantity is the
// transaction quantity times the allocation's percentage of the transaction,
// added for buys and subtracted for sells.
//
// The result can be negative when the ledger records sells a member never
// held; that figure is reported as-is.
func SharesByMemberAndSecurity(snap *models.Snapshot) (map[int64]map[int64]float64, error) {
	idx, err := indexSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return sharesFromIndex(snap, idx), nil
}

func sharesFromIndex(snap *models.Snapshot, idx *snapshotIndex) map[int64]map[int64]float64 {
	shares := make(map[int64]map[int64]float64)
	for _, alloc := range snap.Allocations {
		tx := idx.transactions[alloc.TransactionID]
		delta := tx.Quantity * alloc.Percentage
		if tx.Type == models.TransactionTypeSell {
			delta = -delta
		}
		bySecurity := shares[alloc.MemberID]
		if bySecurity == nil {
			bySecurity = make(map[int64]float64)
			shares[alloc.MemberID] = bySecurity
		}
		bySecurity[tx.SecurityID] += delta
	}
	return shares
}
