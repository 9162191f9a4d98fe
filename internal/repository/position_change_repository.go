package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whalewatch/whale-watcher/internal/model"
)

// PositionChangeRepository provides data access methods for the
// position_changes table. Rows are only ever written by a reconciliation
// run, which deletes the previous result set for the current filing before
// inserting the replacement.
type PositionChangeRepository struct {
	db DBTX
}

// NewPositionChangeRepository creates a new PositionChangeRepository over
// the provided connection or transaction.
func NewPositionChangeRepository(db DBTX) *PositionChangeRepository {
	return &PositionChangeRepository{db: db}
}

const positionChangeColumns = `id, filer_id, cusip, security_name,
	prev_filing_id, prev_period, prev_shares, prev_market_value,
	curr_filing_id, curr_period, curr_shares, curr_market_value,
	shares_change, shares_change_pct, value_change, change_type, created_at`

// DeleteByCurrentFiling removes all position changes produced for the given
// current filing and returns how many rows were deleted.
func (s *PositionChangeRepository) DeleteByCurrentFiling(filingID string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM position_changes WHERE curr_filing_id = ?`, filingID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete position changes: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}

// BulkInsert inserts all position changes from one reconciliation run.
// IDs are generated for entries without one.
func (s *PositionChangeRepository) BulkInsert(changes []model.PositionChange) error {
	if len(changes) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO position_changes (id, filer_id, cusip, security_name,
			prev_filing_id, prev_period, prev_shares, prev_market_value,
			curr_filing_id, curr_period, curr_shares, curr_market_value,
			shares_change, shares_change_pct, value_change, change_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range changes {
		c := &changes[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}

		var prevPeriod any
		if c.PrevPeriod.Valid {
			prevPeriod = c.PrevPeriod.Time.Format("2006-01-02")
		}

		_, err := s.db.Exec(query,
			c.ID,
			c.FilerID,
			c.CUSIP,
			c.SecurityName,
			c.PrevFilingID,
			prevPeriod,
			c.PrevShares,
			c.PrevMarketValue,
			c.CurrFilingID,
			c.CurrPeriod.Format("2006-01-02"),
			c.CurrShares,
			c.CurrMarketValue,
			c.SharesChange,
			c.SharesChangePct,
			c.ValueChange,
			string(c.ChangeType),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert position change %s: %w", c.CUSIP, err)
		}
	}

	return nil
}

// ListByFiling retrieves the position changes whose current filing is the
// given one, optionally filtered by change type. Results are ordered by the
// magnitude of the value change, largest first.
func (s *PositionChangeRepository) ListByFiling(filingID string, changeType model.ChangeType) ([]model.PositionChange, error) {
	query := `
		SELECT ` + positionChangeColumns + `
		FROM position_changes
		WHERE curr_filing_id = ?`
	args := []any{filingID}

	if changeType != "" {
		query += ` AND change_type = ?`
		args = append(args, string(changeType))
	}
	query += ` ORDER BY ABS(value_change) DESC`

	return s.list(query, args...)
}

// ListByFilerAndType retrieves all position changes for a filer with the
// given change type across all periods, newest period first.
func (s *PositionChangeRepository) ListByFilerAndType(filerID string, changeType model.ChangeType) ([]model.PositionChange, error) {
	return s.list(`
		SELECT `+positionChangeColumns+`
		FROM position_changes
		WHERE filer_id = ? AND change_type = ?
		ORDER BY curr_period DESC, ABS(value_change) DESC`,
		filerID, string(changeType))
}

// TopMovers retrieves the largest position changes for a filer's most
// recent reconciled period, ranked by absolute value change or absolute
// share change.
func (s *PositionChangeRepository) TopMovers(filerID, by string, limit int) ([]model.PositionChange, error) {
	order := `ABS(value_change)`
	if by == "shares" {
		order = `ABS(shares_change)`
	}

	return s.list(`
		SELECT `+positionChangeColumns+`
		FROM position_changes
		WHERE filer_id = ?
		AND curr_period = (SELECT MAX(curr_period) FROM position_changes WHERE filer_id = ?)
		ORDER BY `+order+` DESC
		LIMIT ?`,
		filerID, filerID, limit)
}

func (s *PositionChangeRepository) list(query string, args ...any) ([]model.PositionChange, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position_changes table: %w", err)
	}
	defer rows.Close()

	changes := []model.PositionChange{}
	for rows.Next() {
		var c model.PositionChange
		var prevPeriodStr sql.NullString
		var currPeriodStr, changeTypeStr, createdAtStr string

		err := rows.Scan(
			&c.ID,
			&c.FilerID,
			&c.CUSIP,
			&c.SecurityName,
			&c.PrevFilingID,
			&prevPeriodStr,
			&c.PrevShares,
			&c.PrevMarketValue,
			&c.CurrFilingID,
			&currPeriodStr,
			&c.CurrShares,
			&c.CurrMarketValue,
			&c.SharesChange,
			&c.SharesChangePct,
			&c.ValueChange,
			&changeTypeStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position_changes table results: %w", err)
		}

		if prevPeriodStr.Valid {
			t, err := ParseTime(prevPeriodStr.String)
			if err != nil {
				return nil, err
			}
			c.PrevPeriod = sql.NullTime{Time: t, Valid: true}
		}
		if c.CurrPeriod, err = ParseTime(currPeriodStr); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}
		c.ChangeType = model.ChangeType(changeTypeStr)

		changes = append(changes, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position_changes table: %w", err)
	}

	return changes, nil
}
