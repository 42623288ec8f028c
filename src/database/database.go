package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/poolfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	// Cascading deletes (member -> contributions/allocations) rely on this.
	if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		stdlog.Fatalf("failed to enable foreign keys: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	if err := CreateTables(DB); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateUserTable()
	migrateSecuritiesTable()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// CreateTables creates the full schema. Exported so storage tests can set up
// throwaway databases without going through InitDB's globals.
func CreateTables(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_admin BOOLEAN DEFAULT FALSE,
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		is_admin BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS contributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL,
		amount REAL NOT NULL CHECK(amount > 0),
		date TEXT NOT NULL,
		note TEXT,
		FOREIGN KEY(member_id) REFERENCES members(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS securities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		last_price REAL,
		price_updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		security_id INTEGER NOT NULL,
		tx_type TEXT NOT NULL CHECK(tx_type IN ('buy','sell')),
		date TEXT NOT NULL,
		quantity REAL NOT NULL CHECK(quantity > 0),
		price_per_unit REAL NOT NULL CHECK(price_per_unit > 0),
		FOREIGN KEY(security_id) REFERENCES securities(id)
	);

	CREATE TABLE IF NOT EXISTS transaction_allocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id INTEGER NOT NULL,
		member_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		percentage REAL NOT NULL,
		FOREIGN KEY(transaction_id) REFERENCES transactions(id) ON DELETE CASCADE,
		FOREIGN KEY(member_id) REFERENCES members(id) ON DELETE CASCADE,
		UNIQUE(transaction_id, member_id)
	);
	`
	_, err := db.Exec(createTableStatement)
	return err
}

// tableColumns reads PRAGMA table_info for additive migrations.
func tableColumns(tableName string) map[string]bool {
	var name string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", tableName).Scan(&name)
	if err != nil {
		if err != sql.ErrNoRows && logger.L != nil {
			logger.L.Error("Error checking for table", "table", tableName, "error", err)
		}
		return nil
	}

	rows, err := DB.Query("PRAGMA table_info(" + tableName + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", tableName, "error", err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk, notnullVal int
		var colName, dataType string
		var dfltValue interface{}
		if err := rows.Scan(&cid, &colName, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", tableName, "error", err)
			}
			return nil
		}
		columnExists[colName] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", tableName, "error", err)
		}
		return nil
	}
	return columnExists
}

func addColumn(tableName, columnDef, columnName string) {
	_, err := DB.Exec("ALTER TABLE " + tableName + " ADD COLUMN " + columnDef)
	if logger.L != nil {
		if err != nil {
			logger.L.Error("Error adding column", "table", tableName, "column", columnName, "error", err)
		} else {
			logger.L.Info("Added column", "table", tableName, "column", columnName)
		}
	}
}

// migrateUserTable brings users tables from earlier deployments up to the
// current schema.
func migrateUserTable() {
	columns := tableColumns("users")
	if columns == nil {
		return
	}
	if !columns["auth_provider"] {
		addColumn("users", "auth_provider TEXT DEFAULT 'local'", "auth_provider")
	}
	if !columns["is_admin"] {
		addColumn("users", "is_admin BOOLEAN DEFAULT FALSE", "is_admin")
	}
	if !columns["is_email_verified"] {
		addColumn("users", "is_email_verified BOOLEAN DEFAULT FALSE", "is_email_verified")
	}
	if !columns["email_verification_token"] {
		addColumn("users", "email_verification_token TEXT", "email_verification_token")
	}
	if !columns["email_verification_token_expires_at"] {
		addColumn("users", "email_verification_token_expires_at TIMESTAMP", "email_verification_token_expires_at")
	}
	if !columns["password_reset_token"] {
		addColumn("users", "password_reset_token TEXT", "password_reset_token")
	}
	if !columns["password_reset_token_expires_at"] {
		addColumn("users", "password_reset_token_expires_at TIMESTAMP", "password_reset_token_expires_at")
	}
}

// migrateSecuritiesTable adds the price columns to securities tables created
// before quote fetching existed.
func migrateSecuritiesTable() {
	columns := tableColumns("securities")
	if columns == nil {
		return
	}
	if !columns["last_price"] {
		addColumn("securities", "last_price REAL", "last_price")
	}
	if !columns["price_updated_at"] {
		addColumn("securities", "price_updated_at TIMESTAMP", "price_updated_at")
	}
}
