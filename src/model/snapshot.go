package model

import (
	"database/sql"
	"fmt"

	"github.com/username/poolfolio/backend/src/models"
)

// LoadSnapshot reads the entire ledger into memory as plain values. The
// accounting engine only ever sees these snapshots; it never touches the
// database itself. No lazy loading, no partial reads.
func LoadSnapshot(db *sql.DB) (*models.Snapshot, error) {
	members, err := ListMembers(db)
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}
	contributions, err := ListContributions(db)
	if err != nil {
		return nil, fmt.Errorf("loading contributions: %w", err)
	}
	securities, err := ListSecurities(db)
	if err != nil {
		return nil, fmt.Errorf("loading securities: %w", err)
	}
	transactions, err := listTransactionsBare(db)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	allocations, err := listAllocations(db)
	if err != nil {
		return nil, fmt.Errorf("loading allocations: %w", err)
	}

	return &models.Snapshot{
		Members:       members,
		Contributions: contributions,
		Securities:    securities,
		Transactions:  transactions,
		Allocations:   allocations,
	}, nil
}

// listTransactionsBare reads transactions without joining allocations; the
// snapshot carries allocations as a flat list.
func listTransactionsBare(db *sql.DB) ([]models.Transaction, error) {
	rows, err := db.Query(`
		SELECT id, security_id, tx_type, date, quantity, price_per_unit
		FROM transactions
		ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.SecurityID, &t.Type, &t.Date, &t.Quantity, &t.PricePerUnit); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
