package engine

import (
	"github.com/username/poolfolio/backend/src/models"
)

// CashByMember folds contributions and allocation amounts into a cash
// position per member: contributions minus buy allocations plus sell
// allocations. Every member in the snapshot gets an entry, all-zero when the
// ledger holds no rows for them. Available cash goes negative only when the
// ledger itself is inconsistent; the figure is reported, not corrected.
func CashByMember(snap *models.Snapshot) (map[int64]models.CashBalance, error) {
	idx, err := indexSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return cashFromIndex(snap, idx), nil
}

func cashFromIndex(snap *models.Snapshot, idx *snapshotIndex) map[int64]models.CashBalance {
	balances := make(map[int64]models.CashBalance, len(snap.Members))
	for _, m := range snap.Members {
		balances[m.ID] = models.CashBalance{}
	}
	for _, c := range snap.Contributions {
		b := balances[c.MemberID]
		b.TotalContributions += c.Amount
		balances[c.MemberID] = b
	}
	for _, alloc := range snap.Allocations {
		b := balances[alloc.MemberID]
		if idx.transactions[alloc.TransactionID].Type == models.TransactionTypeSell {
			b.TotalSells += alloc.Amount
		} else {
			b.TotalBuys += alloc.Amount
		}
		balances[alloc.MemberID] = b
	}
	for id, b := range balances {
		b.AvailableCash = b.TotalContributions - b.TotalBuys + b.TotalSells
		balances[id] = b
	}
	return balances
}
