// Package repository provides data access for filers, filings, holdings and
// position changes over hand-written SQL.
//
// Repositories are constructed over a DBTX, satisfied by both *sql.DB and
// *sql.Tx. The ingestion pipeline binds them to the transaction owned by
// database.WithTx so a filing's load-and-reconcile sequence commits or rolls
// back as a unit; read-only callers bind them to the plain connection.
package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBTX is the subset of database/sql operations repositories need.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// ParseTime parses a date string in "2006-01-02", RFC3339 or SQLite
// CURRENT_TIMESTAMP format.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", str)
}

// isUniqueViolation reports whether err is a SQLite uniqueness constraint
// failure. modernc.org/sqlite exposes no typed error for this, so the
// driver message is matched.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
