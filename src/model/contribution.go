package model

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/poolfolio/backend/src/models"
)

var ErrContributionNotFound = errors.New("contribution not found")

// CreateContribution inserts a deposit. Amount must be positive; the schema
// enforces it too, but rejecting it here gives callers a clean error.
func CreateContribution(db *sql.DB, c *models.Contribution) error {
	if c.Amount <= 0 {
		return fmt.Errorf("contribution amount must be positive, got %.2f", c.Amount)
	}
	res, err := db.Exec(`INSERT INTO contributions (member_id, amount, date, note) VALUES (?, ?, ?, ?)`,
		c.MemberID, c.Amount, c.Date, c.Note)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func ListContributions(db *sql.DB) ([]models.Contribution, error) {
	rows, err := db.Query(`
		SELECT id, member_id, amount, date, COALESCE(note, '')
		FROM contributions
		ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributions := []models.Contribution{}
	for rows.Next() {
		var c models.Contribution
		if err := rows.Scan(&c.ID, &c.MemberID, &c.Amount, &c.Date, &c.Note); err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func DeleteContribution(db *sql.DB, id int64) error {
	res, err := db.Exec(`DELETE FROM contributions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrContributionNotFound
	}
	return nil
}
