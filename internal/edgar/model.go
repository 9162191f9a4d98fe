package edgar

import "time"

// FilingMetadata represents 13F filing metadata from the SEC submissions
// index.
type FilingMetadata struct {
	// AccessionNumber is the unique SEC filing identifier in dashed form,
	// e.g. "0001067983-25-000005".
	AccessionNumber string
	// FilingDate is the date the filing was submitted to the SEC.
	FilingDate time.Time
	// ReportDate is the quarter-end date the holdings describe
	// (period of report).
	ReportDate time.Time
	// PrimaryDocument is the filename of the filing's primary document.
	PrimaryDocument string
	// FormType is the SEC form type; only "13F-HR" filings are ingested.
	FormType string
}

// submissionsResponse mirrors the columnar layout of the SEC submissions
// API: parallel arrays indexed by filing.
type submissionsResponse struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			PrimaryDocument []string `json:"primaryDocument"`
			Form            []string `json:"form"`
		} `json:"recent"`
	} `json:"filings"`
}
