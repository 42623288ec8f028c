package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/username/poolfolio/backend/src/models"
)

var (
	ErrSecurityNotFound = errors.New("security not found")
	ErrSecurityInUse    = errors.New("security has transactions and cannot be deleted")
)

const securityColumns = `id, symbol, name, last_price, price_updated_at`

func scanSecurity(scan func(dest ...interface{}) error) (models.Security, error) {
	var s models.Security
	var lastPrice sql.NullFloat64
	var updatedAt sql.NullString
	if err := scan(&s.ID, &s.Symbol, &s.Name, &lastPrice, &updatedAt); err != nil {
		return s, err
	}
	if lastPrice.Valid {
		price := lastPrice.Float64
		s.LastPrice = &price
	}
	if updatedAt.Valid {
		s.PriceUpdatedAt = updatedAt.String
	}
	return s, nil
}

func CreateSecurity(db *sql.DB, s *models.Security) error {
	res, err := db.Exec(`INSERT INTO securities (symbol, name) VALUES (?, ?)`, s.Symbol, s.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func GetSecurityByID(db *sql.DB, id int64) (*models.Security, error) {
	row := db.QueryRow(`SELECT `+securityColumns+` FROM securities WHERE id = ?`, id)
	s, err := scanSecurity(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSecurityNotFound
		}
		return nil, err
	}
	return &s, nil
}

func ListSecurities(db *sql.DB) ([]models.Security, error) {
	rows, err := db.Query(`SELECT ` + securityColumns + ` FROM securities ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	securities := []models.Security{}
	for rows.Next() {
		s, err := scanSecurity(rows.Scan)
		if err != nil {
			return nil, err
		}
		securities = append(securities, s)
	}
	return securities, rows.Err()
}

func UpdateSecurity(db *sql.DB, s *models.Security) error {
	res, err := db.Exec(`UPDATE securities SET symbol = ?, name = ? WHERE id = ?`, s.Symbol, s.Name, s.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSecurityNotFound
	}
	return nil
}

// UpdateSecurityPrice stores a freshly fetched quote. It never clears a
// price: a failed fetch simply leaves the previous quote (or NULL) in place.
func UpdateSecurityPrice(db *sql.DB, id int64, price float64) error {
	res, err := db.Exec(`UPDATE securities SET last_price = ?, price_updated_at = ? WHERE id = ?`,
		price, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSecurityNotFound
	}
	return nil
}

// DeleteSecurity refuses to remove a security that still has transactions;
// the ledger is append-only from the portfolio's point of view.
func DeleteSecurity(db *sql.DB, id int64) error {
	var txCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE security_id = ?`, id).Scan(&txCount); err != nil {
		return err
	}
	if txCount > 0 {
		return ErrSecurityInUse
	}
	res, err := db.Exec(`DELETE FROM securities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSecurityNotFound
	}
	return nil
}
