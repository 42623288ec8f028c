// Package engine derives per-member ownership figures from an in-memory
// ledger snapshot. Every function is a pure computation: it builds its own
// accumulators, performs no I/O, and never mutates the snapshot, so repeated
// calls over the same snapshot yield identical results.
//
// Economically inconsistent input (allocations not summing to a transaction's
// total, sells exceeding holdings, cash driven negative) is computed through
// faithfully rather than rejected; ledger integrity is a write-time concern of
// the storage layer. The only failures the engine reports are structural:
// rows referencing a member, security, or transaction the snapshot does not
// contain.
package engine

import (
	"fmt"

	"github.com/username/poolfolio/backend/src/models"
)

const (
	// MoneyTolerance is the currency-rounding tolerance used wherever
	// monetary sums are compared against a target.
	MoneyTolerance = 0.01

	// shareEpsilon separates a real share position from float noise.
	shareEpsilon = 1e-9
)

// ReferenceNotFoundError reports a ledger row pointing at an id the snapshot
// does not contain.
type ReferenceNotFoundError struct {
	Kind string // "member", "security" or "transaction"
	ID   int64
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found in snapshot", e.Kind, e.ID)
}

// snapshotIndex holds id lookups shared by the aggregators.
type snapshotIndex struct {
	members      map[int64]models.Member
	securities   map[int64]models.Security
	transactions map[int64]models.Transaction
}

// indexSnapshot builds the id lookups and verifies every cross-reference in
// the snapshot resolves. This is the engine's single validation pass; the
// aggregators can then index without further checks.
func indexSnapshot(snap *models.Snapshot) (*snapshotIndex, error) {
	idx := &snapshotIndex{
		members:      make(map[int64]models.Member, len(snap.Members)),
		securities:   make(map[int64]models.Security, len(snap.Securities)),
		transactions: make(map[int64]models.Transaction, len(snap.Transactions)),
	}
	for _, m := range snap.Members {
		idx.members[m.ID] = m
	}
	for _, s := range snap.Securities {
		idx.securities[s.ID] = s
	}
	for _, tx := range snap.Transactions {
		if _, ok := idx.securities[tx.SecurityID]; !ok {
			return nil, &ReferenceNotFoundError{Kind: "security", ID: tx.SecurityID}
		}
		idx.transactions[tx.ID] = tx
	}
	for _, c := range snap.Contributions {
		if _, ok := idx.members[c.MemberID]; !ok {
			return nil, &ReferenceNotFoundError{Kind: "member", ID: c.MemberID}
		}
	}
	for _, a := range snap.Allocations {
		if _, ok := idx.members[a.MemberID]; !ok {
			return nil, &ReferenceNotFoundError{Kind: "member", ID: a.MemberID}
		}
		if _, ok := idx.transactions[a.TransactionID]; !ok {
			return nil, &ReferenceNotFoundError{Kind: "transaction", ID: a.TransactionID}
		}
	}
	return idx, nil
}

// currentPrice treats an unknown market price as zero for valuation.
func currentPrice(sec models.Security) float64 {
	if sec.LastPrice == nil {
		return 0
	}
	return *sec.LastPrice
}
