package model

import "time"

// Holding represents one security position within a filing. Within one
// filing there is at most one Holding per CUSIP; the parser aggregates
// duplicate raw entries before load. MarketValue is stored exactly as
// reported in the filing and treated as an opaque comparable integer.
type Holding struct {
	ID                    string
	FilingID              string
	CUSIP                 string
	SecurityName          string
	Shares                int64
	MarketValue           int64
	VotingAuthoritySole   int64
	VotingAuthorityShared int64
	VotingAuthorityNone   int64
	Discretion            string
	CreatedAt             time.Time
}
