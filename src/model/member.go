package model

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/poolfolio/backend/src/models"
)

var ErrMemberNotFound = errors.New("member not found")

// CreateMember inserts a new pool member and fills in its id.
func CreateMember(db *sql.DB, m *models.Member) error {
	res, err := db.Exec(`INSERT INTO members (name, is_admin) VALUES (?, ?)`, m.Name, m.IsAdmin)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func GetMemberByID(db *sql.DB, id int64) (*models.Member, error) {
	row := db.QueryRow(`SELECT id, name, is_admin, created_at FROM members WHERE id = ?`, id)
	var m models.Member
	if err := row.Scan(&m.ID, &m.Name, &m.IsAdmin, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func ListMembers(db *sql.DB) ([]models.Member, error) {
	rows, err := db.Query(`SELECT id, name, is_admin, created_at FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.IsAdmin, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func UpdateMember(db *sql.DB, m *models.Member) error {
	res, err := db.Exec(`UPDATE members SET name = ?, is_admin = ? WHERE id = ?`, m.Name, m.IsAdmin, m.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// DeleteMember removes a member together with their contributions and
// allocations in a single database transaction. The member's effect on past
// transactions disappears with their allocation rows; the transactions
// themselves stay.
func DeleteMember(db *sql.DB, id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM contributions WHERE member_id = ?`, id); err != nil {
		return fmt.Errorf("deleting contributions for member %d: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM transaction_allocations WHERE member_id = ?`, id); err != nil {
		return fmt.Errorf("deleting allocations for member %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting member %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMemberNotFound
	}
	return tx.Commit()
}
