package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/model"
)

// FilingRepository provides data access methods for the filings table.
// Filings are ordered chronologically by period_of_report, the quarter-end
// date the holdings describe, never by filing_date.
type FilingRepository struct {
	db DBTX
}

// NewFilingRepository creates a new FilingRepository over the provided
// connection or transaction.
func NewFilingRepository(db DBTX) *FilingRepository {
	return &FilingRepository{db: db}
}

const filingColumns = `id, filer_id, accession_number, filing_date, period_of_report,
	total_value, holdings_count, processed, created_at, updated_at`

// GetByID retrieves a filing by its primary key.
// Returns apperrors.ErrFilingNotFound if no filing matches.
func (s *FilingRepository) GetByID(id string) (model.Filing, error) {
	filing, err := scanFiling(s.db.QueryRow(`SELECT `+filingColumns+` FROM filings WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return model.Filing{}, apperrors.ErrFilingNotFound
	}
	if err != nil {
		return model.Filing{}, err
	}
	return filing, nil
}

// Create inserts a new filing. The ID is generated when empty. A duplicate
// accession number or a second filing for the same (filer, period) pair
// surfaces as apperrors.ErrDuplicateEntry.
func (s *FilingRepository) Create(filing *model.Filing) error {
	if filing.ID == "" {
		filing.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	filing.CreatedAt = now
	filing.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO filings (id, filer_id, accession_number, filing_date, period_of_report,
			total_value, holdings_count, processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filing.ID,
		filing.FilerID,
		filing.AccessionNumber,
		filing.FilingDate.Format("2006-01-02"),
		filing.PeriodOfReport.Format("2006-01-02"),
		filing.TotalValue,
		filing.HoldingsCount,
		filing.Processed,
		filing.CreatedAt.Format(time.RFC3339),
		filing.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: filing %s", apperrors.ErrDuplicateEntry, filing.AccessionNumber)
		}
		return fmt.Errorf("failed to insert filing: %w", err)
	}

	return nil
}

// ListByFiler retrieves all filings for a filer ordered by period_of_report
// ascending. Callers derive "most recent period strictly before X" from
// this list.
func (s *FilingRepository) ListByFiler(filerID string) ([]model.Filing, error) {
	return s.list(`
		SELECT `+filingColumns+`
		FROM filings
		WHERE filer_id = ?
		ORDER BY period_of_report ASC`, filerID)
}

// ExistingAccessionNumbers returns the set of accession numbers already
// stored for a filer, used to skip filings that were ingested previously.
func (s *FilingRepository) ExistingAccessionNumbers(filerID string) (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT accession_number FROM filings WHERE filer_id = ?`, filerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var accession string
		if err := rows.Scan(&accession); err != nil {
			return nil, fmt.Errorf("failed to scan filings table results: %w", err)
		}
		existing[accession] = struct{}{}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filings table: %w", err)
	}

	return existing, nil
}

// UpdateSummary sets the aggregate total value and holdings count parsed
// from the information table and marks the filing processed.
// Returns apperrors.ErrFilingNotFound if the filing does not exist.
func (s *FilingRepository) UpdateSummary(filingID string, totalValue, holdingsCount int64) error {
	result, err := s.db.Exec(`
		UPDATE filings
		SET total_value = ?, holdings_count = ?, processed = TRUE, updated_at = ?
		WHERE id = ?`,
		totalValue,
		holdingsCount,
		time.Now().UTC().Format(time.RFC3339),
		filingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update filing summary: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrFilingNotFound
	}

	return nil
}

// ListUnreconciled retrieves processed filings that have no position change
// rows yet, ordered by filer and period. Used by the reconcile command to
// backfill analysis for filings loaded before a schema or rule change.
func (s *FilingRepository) ListUnreconciled() ([]model.Filing, error) {
	return s.list(`
		SELECT ` + filingColumns + `
		FROM filings f
		WHERE f.processed = TRUE
		AND NOT EXISTS (
			SELECT 1 FROM position_changes pc WHERE pc.curr_filing_id = f.id
		)
		ORDER BY f.filer_id, f.period_of_report ASC`)
}

// ListProcessed retrieves all processed filings ordered by filer and period.
func (s *FilingRepository) ListProcessed() ([]model.Filing, error) {
	return s.list(`
		SELECT ` + filingColumns + `
		FROM filings
		WHERE processed = TRUE
		ORDER BY filer_id, period_of_report ASC`)
}

func (s *FilingRepository) list(query string, args ...any) ([]model.Filing, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings table: %w", err)
	}
	defer rows.Close()

	filings := []model.Filing{}
	for rows.Next() {
		filing, err := scanFiling(rows.Scan)
		if err != nil {
			return nil, err
		}
		filings = append(filings, filing)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filings table: %w", err)
	}

	return filings, nil
}

func scanFiling(scan func(dest ...any) error) (model.Filing, error) {
	var f model.Filing
	var filingDateStr, periodStr, createdAtStr, updatedAtStr string

	err := scan(
		&f.ID,
		&f.FilerID,
		&f.AccessionNumber,
		&filingDateStr,
		&periodStr,
		&f.TotalValue,
		&f.HoldingsCount,
		&f.Processed,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Filing{}, err
	}
	if err != nil {
		return model.Filing{}, fmt.Errorf("failed to scan filings table results: %w", err)
	}

	if f.FilingDate, err = ParseTime(filingDateStr); err != nil {
		return model.Filing{}, err
	}
	if f.PeriodOfReport, err = ParseTime(periodStr); err != nil {
		return model.Filing{}, err
	}
	if f.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Filing{}, err
	}
	if f.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Filing{}, err
	}

	return f, nil
}
