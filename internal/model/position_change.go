package model

import (
	"database/sql"
	"time"
)

// ChangeType classifies a quarter-over-quarter position change.
type ChangeType string

const (
	// ChangeNew marks a position absent in the previous quarter.
	ChangeNew ChangeType = "NEW"
	// ChangeClosed marks a position fully divested since the previous quarter.
	// The percentage delta is intentionally left null for closed positions
	// rather than asserting -100.
	ChangeClosed ChangeType = "CLOSED"
	// ChangeIncreased marks a position with more shares than the previous quarter.
	ChangeIncreased ChangeType = "INCREASED"
	// ChangeDecreased marks a position with fewer shares than the previous quarter.
	ChangeDecreased ChangeType = "DECREASED"
	// ChangeUnchanged marks a position with the same share count as the previous quarter.
	ChangeUnchanged ChangeType = "UNCHANGED"
)

// PositionChange is one reconciliation result row, scoped to
// (filer, CUSIP, current filing).
//
// The previous-period columns are all null together when no predecessor
// filing holds this security; the current-period share and value columns are
// null together when the position was closed. CurrFilingID is always set.
type PositionChange struct {
	ID           string
	FilerID      string
	CUSIP        string
	SecurityName string

	PrevFilingID    sql.NullString
	PrevPeriod      sql.NullTime
	PrevShares      sql.NullInt64
	PrevMarketValue sql.NullInt64

	CurrFilingID    string
	CurrPeriod      time.Time
	CurrShares      sql.NullInt64
	CurrMarketValue sql.NullInt64

	SharesChange    int64
	SharesChangePct sql.NullFloat64
	ValueChange     int64
	ChangeType      ChangeType

	CreatedAt time.Time
}
