package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/whalewatch/whale-watcher/internal/model"
)

// FilerBuilder provides a fluent interface for creating test filers.
//
// Example usage:
//
//	// Simple creation with defaults
//	filer := testutil.NewFiler().Build(t, db)
//
//	// Customized filer
//	filer := testutil.NewFiler().
//	    WithCIK("0001067983").
//	    WithName("Berkshire Hathaway Inc").
//	    Build(t, db)
type FilerBuilder struct {
	ID          string
	CIK         string
	Name        string
	Description string
	Category    string
	Enabled     bool
}

// NewFiler creates a FilerBuilder with sensible defaults.
func NewFiler() *FilerBuilder {
	return &FilerBuilder{
		ID:          MakeID(),
		CIK:         MakeCIK(),
		Name:        MakeFilerName("Test Filer"),
		Description: "Test description",
		Category:    "hedge_fund",
		Enabled:     true,
	}
}

// WithID sets a custom ID.
func (b *FilerBuilder) WithID(id string) *FilerBuilder {
	b.ID = id
	return b
}

// WithCIK sets a custom CIK.
func (b *FilerBuilder) WithCIK(cik string) *FilerBuilder {
	b.CIK = cik
	return b
}

// WithName sets a custom name.
func (b *FilerBuilder) WithName(name string) *FilerBuilder {
	b.Name = name
	return b
}

// WithCategory sets a custom category.
func (b *FilerBuilder) WithCategory(category string) *FilerBuilder {
	b.Category = category
	return b
}

// Disabled marks the filer as disabled.
func (b *FilerBuilder) Disabled() *FilerBuilder {
	b.Enabled = false
	return b
}

// Build creates the filer in the database and returns it.
func (b *FilerBuilder) Build(t *testing.T, db *sql.DB) model.Filer {
	t.Helper()

	query := `
		INSERT INTO filers (id, cik, name, description, category, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.CIK, b.Name, b.Description, b.Category, b.Enabled)
	if err != nil {
		t.Fatalf("Failed to create test filer: %v", err)
	}

	return model.Filer{
		ID:          b.ID,
		CIK:         b.CIK,
		Name:        b.Name,
		Description: b.Description,
		Category:    b.Category,
		Enabled:     b.Enabled,
	}
}

// CreateFiler creates a filer with the given CIK and default values.
//
// Example usage:
//
//	filer := testutil.CreateFiler(t, db, "0001067983")
func CreateFiler(t *testing.T, db *sql.DB, cik string) model.Filer {
	t.Helper()
	return NewFiler().WithCIK(cik).Build(t, db)
}

// FilingBuilder provides a fluent interface for creating test filings.
//
// Example usage:
//
//	filing := testutil.NewFiling(filer.ID).
//	    WithPeriodOfReport(testutil.Date("2025-03-31")).
//	    Processed().
//	    Build(t, db)
type FilingBuilder struct {
	ID              string
	FilerID         string
	AccessionNumber string
	FilingDate      time.Time
	PeriodOfReport  time.Time
	TotalValue      sql.NullInt64
	HoldingsCount   sql.NullInt64
	IsProcessed     bool
}

// NewFiling creates a FilingBuilder with sensible defaults.
func NewFiling(filerID string) *FilingBuilder {
	period := Date("2025-03-31")
	return &FilingBuilder{
		ID:              MakeID(),
		FilerID:         filerID,
		AccessionNumber: MakeAccessionNumber(),
		FilingDate:      period.AddDate(0, 0, 45),
		PeriodOfReport:  period,
		IsProcessed:     false,
	}
}

// WithID sets a custom ID.
func (b *FilingBuilder) WithID(id string) *FilingBuilder {
	b.ID = id
	return b
}

// WithAccessionNumber sets a custom accession number.
func (b *FilingBuilder) WithAccessionNumber(accession string) *FilingBuilder {
	b.AccessionNumber = accession
	return b
}

// WithPeriodOfReport sets the quarter-end date. The filing date follows
// 45 days later unless set explicitly.
func (b *FilingBuilder) WithPeriodOfReport(period time.Time) *FilingBuilder {
	b.PeriodOfReport = period
	b.FilingDate = period.AddDate(0, 0, 45)
	return b
}

// WithFilingDate sets the submission date.
func (b *FilingBuilder) WithFilingDate(date time.Time) *FilingBuilder {
	b.FilingDate = date
	return b
}

// WithSummary sets the parsed totals and marks the filing processed.
func (b *FilingBuilder) WithSummary(totalValue, holdingsCount int64) *FilingBuilder {
	b.TotalValue = sql.NullInt64{Int64: totalValue, Valid: true}
	b.HoldingsCount = sql.NullInt64{Int64: holdingsCount, Valid: true}
	b.IsProcessed = true
	return b
}

// Processed marks the filing as processed.
func (b *FilingBuilder) Processed() *FilingBuilder {
	b.IsProcessed = true
	return b
}

// Build creates the filing in the database and returns it.
func (b *FilingBuilder) Build(t *testing.T, db *sql.DB) model.Filing {
	t.Helper()

	query := `
		INSERT INTO filings (id, filer_id, accession_number, filing_date, period_of_report,
		                     total_value, holdings_count, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.ID, b.FilerID, b.AccessionNumber,
		b.FilingDate.Format("2006-01-02"),
		b.PeriodOfReport.Format("2006-01-02"),
		b.TotalValue, b.HoldingsCount, b.IsProcessed)
	if err != nil {
		t.Fatalf("Failed to create test filing: %v", err)
	}

	return model.Filing{
		ID:              b.ID,
		FilerID:         b.FilerID,
		AccessionNumber: b.AccessionNumber,
		FilingDate:      b.FilingDate,
		PeriodOfReport:  b.PeriodOfReport,
		TotalValue:      b.TotalValue,
		HoldingsCount:   b.HoldingsCount,
		Processed:       b.IsProcessed,
	}
}

// CreateFiling creates a processed filing for the given filer and quarter-end
// date.
//
// Example usage:
//
//	filing := testutil.CreateFiling(t, db, filer.ID, "2025-03-31")
func CreateFiling(t *testing.T, db *sql.DB, filerID, periodOfReport string) model.Filing {
	t.Helper()
	return NewFiling(filerID).WithPeriodOfReport(Date(periodOfReport)).Processed().Build(t, db)
}

// HoldingBuilder provides a fluent interface for creating test holdings.
//
// Example usage:
//
//	holding := testutil.NewHolding(filing.ID).
//	    WithCUSIP("037833100").
//	    WithShares(100000).
//	    WithMarketValue(15000000).
//	    Build(t, db)
type HoldingBuilder struct {
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
}

// NewHolding creates a HoldingBuilder with sensible defaults.
func NewHolding(filingID string) *HoldingBuilder {
	return &HoldingBuilder{
		ID:           MakeID(),
		FilingID:     filingID,
		CUSIP:        MakeCUSIP(),
		SecurityName: MakeSecurityName("Test Security"),
		Shares:       100000,
		MarketValue:  1000000,
		Discretion:   "SOLE",
	}
}

// WithCUSIP sets a custom CUSIP.
func (b *HoldingBuilder) WithCUSIP(cusip string) *HoldingBuilder {
	b.CUSIP = cusip
	return b
}

// WithSecurityName sets a custom security name.
func (b *HoldingBuilder) WithSecurityName(name string) *HoldingBuilder {
	b.SecurityName = name
	return b
}

// WithShares sets the share count.
func (b *HoldingBuilder) WithShares(shares int64) *HoldingBuilder {
	b.Shares = shares
	return b
}

// WithMarketValue sets the market value.
func (b *HoldingBuilder) WithMarketValue(value int64) *HoldingBuilder {
	b.MarketValue = value
	return b
}

// WithVotingAuthority sets the sole/shared/none voting authority split.
func (b *HoldingBuilder) WithVotingAuthority(sole, shared, none int64) *HoldingBuilder {
	b.VotingAuthoritySole = sole
	b.VotingAuthorityShared = shared
	b.VotingAuthorityNone = none
	return b
}

// Build creates the holding in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	query := `
		INSERT INTO holdings (id, filing_id, cusip, security_name, shares, market_value,
		                      voting_authority_sole, voting_authority_shared, voting_authority_none,
		                      discretion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.ID, b.FilingID, b.CUSIP, b.SecurityName, b.Shares, b.MarketValue,
		b.VotingAuthoritySole, b.VotingAuthorityShared, b.VotingAuthorityNone,
		b.Discretion)
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}

	return model.Holding{
		ID:                    b.ID,
		FilingID:              b.FilingID,
		CUSIP:                 b.CUSIP,
		SecurityName:          b.SecurityName,
		Shares:                b.Shares,
		MarketValue:           b.MarketValue,
		VotingAuthoritySole:   b.VotingAuthoritySole,
		VotingAuthorityShared: b.VotingAuthorityShared,
		VotingAuthorityNone:   b.VotingAuthorityNone,
		Discretion:            b.Discretion,
	}
}

// CreateHolding creates a holding with the given CUSIP, shares, and value.
//
// Example usage:
//
//	testutil.CreateHolding(t, db, filing.ID, "037833100", 100000, 15000000)
func CreateHolding(t *testing.T, db *sql.DB, filingID, cusip string, shares, marketValue int64) model.Holding {
	t.Helper()
	return NewHolding(filingID).
		WithCUSIP(cusip).
		WithShares(shares).
		WithMarketValue(marketValue).
		Build(t, db)
}
