package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrFilerNotFound indicates that a filer with the given ID or CIK does not exist.
	ErrFilerNotFound = errors.New("filer not found")

	// ErrFilingNotFound indicates that a filing with the given ID does not exist.
	ErrFilingNotFound = errors.New("filing not found")

	// ErrInfoTableNotFound indicates that a filing's index page lists no
	// information table document, so its holdings cannot be parsed.
	ErrInfoTableNotFound = errors.New("information table document not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidCIK indicates that a CIK is empty or contains non-digit characters.
	ErrInvalidCIK = errors.New("invalid CIK")

	// ErrInvalidYearRange indicates that the configured reporting year range is
	// inverted (start year after end year).
	ErrInvalidYearRange = errors.New("invalid year range")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint
	// already exists (duplicate accession number or filer/period pair).
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrNoFilersConfigured indicates that the run matched no enabled filers.
	ErrNoFilersConfigured = errors.New("no enabled filers configured")
)

// External data errors represent malformed or incomplete source documents.
var (
	// ErrMalformedDocument indicates that a fetched document could not be parsed.
	ErrMalformedDocument = errors.New("malformed source document")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)
