package model

import (
	"database/sql"
	"time"
)

// Filing represents one quarterly 13F disclosure for one filer.
//
// PeriodOfReport is the quarter-end date the holdings describe and is the
// chronological ordering key; FilingDate is the later date the document was
// actually submitted. TotalValue and HoldingsCount stay null until the
// filing's information table has been parsed, at which point Processed
// flips to true.
type Filing struct {
	ID              string
	FilerID         string
	AccessionNumber string
	FilingDate      time.Time
	PeriodOfReport  time.Time
	TotalValue      sql.NullInt64
	HoldingsCount   sql.NullInt64
	Processed       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
