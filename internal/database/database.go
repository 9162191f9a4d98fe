// Package database manages the SQLite connection, schema migrations, and
// transaction scope for the filings store.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Open opens the SQLite database at the given path. Foreign key
// enforcement is switched on: the holdings and position_changes cascade
// deletes depend on it.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// HealthCheck reports whether the database connection is usable. The
// health endpoint calls this on every request.
func HealthCheck(db *sql.DB) error {
	return db.Ping()
}
