package model

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/poolfolio/backend/src/engine"
	"github.com/username/poolfolio/backend/src/models"
	"github.com/username/poolfolio/backend/src/utils"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// ValidateTransaction applies the write-time ledger integrity rules. Summary
// computations tolerate bad data, so this is the only gate.
func ValidateTransaction(t *models.Transaction) error {
	if t.Type != models.TransactionTypeBuy && t.Type != models.TransactionTypeSell {
		return fmt.Errorf("transaction type must be %q or %q, got %q",
			models.TransactionTypeBuy, models.TransactionTypeSell, t.Type)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("transaction quantity must be positive, got %g", t.Quantity)
	}
	if t.PricePerUnit <= 0 {
		return fmt.Errorf("transaction price per unit must be positive, got %g", t.PricePerUnit)
	}
	if len(t.Allocations) == 0 {
		return errors.New("transaction requires at least one allocation")
	}

	total := t.Total()
	var amountSum float64
	seen := make(map[int64]bool, len(t.Allocations))
	for _, a := range t.Allocations {
		if seen[a.MemberID] {
			return fmt.Errorf("duplicate allocation for member %d", a.MemberID)
		}
		seen[a.MemberID] = true
		if a.Percentage <= 0 || a.Percentage > 1 {
			return fmt.Errorf("allocation percentage for member %d must be in (0, 1], got %g", a.MemberID, a.Percentage)
		}
		amountSum += a.Amount
	}
	if !utils.WithinTolerance(amountSum, total, engine.MoneyTolerance) {
		return fmt.Errorf("allocation amounts sum to %.2f but transaction total is %.2f", amountSum, total)
	}
	return nil
}

// CreateTransaction inserts a transaction together with its allocations,
// all-or-nothing. Ids are filled in on success.
func CreateTransaction(db *sql.DB, t *models.Transaction) error {
	if err := ValidateTransaction(t); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO transactions (security_id, tx_type, date, quantity, price_per_unit)
		VALUES (?, ?, ?, ?, ?)`,
		t.SecurityID, t.Type, t.Date, t.Quantity, t.PricePerUnit)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	txID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO transaction_allocations (transaction_id, member_id, amount, percentage)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range t.Allocations {
		allocRes, err := stmt.Exec(txID, t.Allocations[i].MemberID, t.Allocations[i].Amount, t.Allocations[i].Percentage)
		if err != nil {
			return fmt.Errorf("inserting allocation for member %d: %w", t.Allocations[i].MemberID, err)
		}
		allocID, err := allocRes.LastInsertId()
		if err != nil {
			return err
		}
		t.Allocations[i].ID = allocID
		t.Allocations[i].TransactionID = txID
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	t.ID = txID
	return nil
}

// ListTransactions returns all transactions with their allocations attached,
// newest first.
func ListTransactions(db *sql.DB) ([]models.Transaction, error) {
	rows, err := db.Query(`
		SELECT id, security_id, tx_type, date, quantity, price_per_unit
		FROM transactions
		ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	byID := map[int64]int{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.SecurityID, &t.Type, &t.Date, &t.Quantity, &t.PricePerUnit); err != nil {
			return nil, err
		}
		t.Allocations = []models.Allocation{}
		byID[t.ID] = len(transactions)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	allocations, err := listAllocations(db)
	if err != nil {
		return nil, err
	}
	for _, a := range allocations {
		if i, ok := byID[a.TransactionID]; ok {
			transactions[i].Allocations = append(transactions[i].Allocations, a)
		}
	}
	return transactions, nil
}

func listAllocations(db *sql.DB) ([]models.Allocation, error) {
	rows, err := db.Query(`
		SELECT id, transaction_id, member_id, amount, percentage
		FROM transaction_allocations
		ORDER BY transaction_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allocations := []models.Allocation{}
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.MemberID, &a.Amount, &a.Percentage); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// DeleteTransaction removes a transaction and its allocations all-or-nothing.
func DeleteTransaction(db *sql.DB, id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM transaction_allocations WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("deleting allocations for transaction %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return tx.Commit()
}
