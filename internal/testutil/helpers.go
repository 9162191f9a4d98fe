package testutil

import (
	"database/sql"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/config"
	"github.com/whalewatch/whale-watcher/internal/edgar"
	"github.com/whalewatch/whale-watcher/internal/parser"
	"github.com/whalewatch/whale-watcher/internal/service"
)

// NewTestReconciliationService creates a ReconciliationService with a no-op
// logger.
func NewTestReconciliationService(t *testing.T) *service.ReconciliationService {
	t.Helper()

	return service.NewReconciliationService(zap.NewNop())
}

// NewTestFilerService creates a FilerService bound to the given database.
func NewTestFilerService(t *testing.T, db *sql.DB) *service.FilerService {
	t.Helper()

	return service.NewFilerService(db)
}

// NewTestPositionChangeService creates a PositionChangeService bound to the
// given database.
func NewTestPositionChangeService(t *testing.T, db *sql.DB) *service.PositionChangeService {
	t.Helper()

	return service.NewPositionChangeService(db)
}

// NewTestIngestService creates an IngestService with a mock EDGAR client.
// Configure the mock's Filings and Documents fields to drive the pipeline.
func NewTestIngestService(t *testing.T, db *sql.DB, client edgar.Client, cfg *config.Config) *service.IngestService {
	t.Helper()

	logger := zap.NewNop()
	return service.NewIngestService(
		db,
		client,
		parser.NewInfoTableParser(logger),
		service.NewReconciliationService(logger),
		cfg,
		logger,
	)
}

// NewTestConfig creates a minimal valid configuration for pipeline tests.
func NewTestConfig(whales ...config.WhaleConfig) *config.Config {
	return &config.Config{
		UserAgent: "Test Suite test@example.com",
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 10,
			MaxRetries:        1,
		},
		DateRange: config.DateRangeConfig{
			StartYear: 2024,
			EndYear:   2025,
		},
		Whales: whales,
	}
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeCIK generates a normalized ten-digit CIK for testing.
//
// Example usage:
//
//	cik := testutil.MakeCIK()
//	// Returns: "0004829301"
func MakeCIK() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return fmt.Sprintf("%010d", rand.Intn(1_000_000_000))
}

// MakeCUSIP generates a nine-character CUSIP-shaped identifier for testing.
//
// Example usage:
//
//	cusip := testutil.MakeCUSIP()
//	// Returns: "X1A2B3C4D"
func MakeCUSIP() string {
	return randomAlphanumeric(9)
}

// MakeAccessionNumber generates an SEC accession number in dashed form.
//
// Example usage:
//
//	accession := testutil.MakeAccessionNumber()
//	// Returns: "0001067983-25-483920"
func MakeAccessionNumber() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return fmt.Sprintf("%010d-25-%06d", rand.Intn(1_000_000_000), rand.Intn(1_000_000))
}

// MakeFilerName generates a unique filer name for testing.
func MakeFilerName(base string) string {
	if base == "" {
		base = "Filer"
	}
	return base + " " + randomAlphanumeric(6)
}

// MakeSecurityName generates a unique security name for testing.
func MakeSecurityName(base string) string {
	if base == "" {
		base = "Security"
	}
	return base + " " + randomAlphanumeric(6)
}

// Date parses a YYYY-MM-DD string. Test dates are literals, so a malformed
// input panics instead of threading an error through every factory call.
func Date(s string) time.Time {
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic("testutil: invalid date " + s)
	}
	return parsed
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
