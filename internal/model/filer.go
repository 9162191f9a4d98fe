package model

import "time"

// Filer represents an institutional investor tracked by the pipeline.
// The CIK is the stable identity key, normalized to ten digits with
// leading zeros.
type Filer struct {
	ID          string
	CIK         string
	Name        string
	Description string
	Category    string
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
