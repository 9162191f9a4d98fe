package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production migrations.
func createTestSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE filers (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			cik VARCHAR(10) NOT NULL UNIQUE,
			name VARCHAR(200) NOT NULL,
			description VARCHAR(500),
			category VARCHAR(50) NOT NULL,
			enabled BOOLEAN DEFAULT TRUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL
		);

		CREATE TABLE filings (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			filer_id VARCHAR(36) NOT NULL,
			accession_number VARCHAR(20) NOT NULL UNIQUE,
			filing_date DATE NOT NULL,
			period_of_report DATE NOT NULL,
			total_value BIGINT,
			holdings_count INTEGER,
			processed BOOLEAN DEFAULT FALSE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
			FOREIGN KEY(filer_id) REFERENCES filers(id) ON DELETE CASCADE,
			CONSTRAINT uq_filer_period UNIQUE (filer_id, period_of_report)
		);

		CREATE TABLE holdings (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			filing_id VARCHAR(36) NOT NULL,
			cusip VARCHAR(9) NOT NULL,
			security_name VARCHAR(200) NOT NULL,
			shares BIGINT NOT NULL,
			market_value BIGINT NOT NULL,
			voting_authority_sole BIGINT,
			voting_authority_shared BIGINT,
			voting_authority_none BIGINT,
			discretion VARCHAR(20),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
			FOREIGN KEY(filing_id) REFERENCES filings(id) ON DELETE CASCADE
		);

		CREATE TABLE position_changes (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			filer_id VARCHAR(36) NOT NULL,
			cusip VARCHAR(9) NOT NULL,
			security_name VARCHAR(200) NOT NULL,
			prev_filing_id VARCHAR(36),
			prev_period DATE,
			prev_shares BIGINT,
			prev_market_value BIGINT,
			curr_filing_id VARCHAR(36) NOT NULL,
			curr_period DATE NOT NULL,
			curr_shares BIGINT,
			curr_market_value BIGINT,
			shares_change BIGINT NOT NULL,
			shares_change_pct FLOAT,
			value_change BIGINT NOT NULL,
			change_type VARCHAR(9) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL,
			FOREIGN KEY(filer_id) REFERENCES filers(id) ON DELETE CASCADE,
			FOREIGN KEY(prev_filing_id) REFERENCES filings(id) ON DELETE SET NULL,
			FOREIGN KEY(curr_filing_id) REFERENCES filings(id) ON DELETE CASCADE
		);

		CREATE INDEX ix_filers_cik ON filers (cik);
		CREATE INDEX ix_filings_filer_id ON filings (filer_id);
		CREATE INDEX ix_filings_period_of_report ON filings (period_of_report);
		CREATE INDEX ix_holdings_filing_cusip ON holdings (filing_id, cusip);
		CREATE INDEX ix_holdings_cusip ON holdings (cusip);
		CREATE INDEX ix_position_changes_filer_period_type ON position_changes (filer_id, curr_period, change_type);
		CREATE INDEX ix_position_changes_curr_filing ON position_changes (curr_filing_id);
	`

	_, err := db.Exec(schema)
	return err
}

// CleanDatabase truncates all tables in dependency order.
// Useful for reusing the same database across multiple tests.
func CleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	// Order matters: delete children before parents due to foreign keys
	tables := []string{
		"position_changes",
		"holdings",
		"filings",
		"filers",
	}

	for _, table := range tables {
		query := "DELETE FROM " + table
		if _, err := db.Exec(query); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	query := "SELECT COUNT(*) FROM " + table
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}
