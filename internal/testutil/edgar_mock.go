package testutil

import (
	"context"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/edgar"
)

// MockEdgarClient is a mock implementation of edgar.Client for testing.
// It serves predefined filing metadata and documents instead of making
// actual EDGAR requests.
type MockEdgarClient struct {
	// Filings maps a normalized CIK to the filing metadata returned by
	// Get13FFilings.
	Filings map[string][]edgar.FilingMetadata
	// Documents maps an accession number to the raw information table
	// bytes returned by DownloadInfoTable. Accession numbers absent from
	// the map return ErrInfoTableNotFound, mirroring filings with no
	// discoverable information table.
	Documents map[string][]byte
	// FilingsErr, when set, is returned from Get13FFilings.
	FilingsErr error
	// DownloadErr, when set, is returned from DownloadInfoTable.
	DownloadErr error
	// DownloadCount tracks how many documents were requested.
	DownloadCount int
}

// NewMockEdgarClient creates an empty mock EDGAR client.
func NewMockEdgarClient() *MockEdgarClient {
	return &MockEdgarClient{
		Filings:   make(map[string][]edgar.FilingMetadata),
		Documents: make(map[string][]byte),
	}
}

// WithFilings registers filing metadata for a CIK.
func (m *MockEdgarClient) WithFilings(cik string, filings ...edgar.FilingMetadata) *MockEdgarClient {
	m.Filings[cik] = append(m.Filings[cik], filings...)
	return m
}

// WithDocument registers an information table document for an accession
// number.
func (m *MockEdgarClient) WithDocument(accessionNumber string, doc []byte) *MockEdgarClient {
	m.Documents[accessionNumber] = doc
	return m
}

// Get13FFilings returns the registered metadata for the CIK, filtered to the
// requested report-date year range.
func (m *MockEdgarClient) Get13FFilings(_ context.Context, cik string, startYear, endYear int) ([]edgar.FilingMetadata, error) {
	if m.FilingsErr != nil {
		return nil, m.FilingsErr
	}

	var result []edgar.FilingMetadata
	for _, f := range m.Filings[cik] {
		year := f.ReportDate.Year()
		if year >= startYear && year <= endYear {
			result = append(result, f)
		}
	}
	return result, nil
}

// DownloadInfoTable returns the registered document for the accession
// number.
func (m *MockEdgarClient) DownloadInfoTable(_ context.Context, _, accessionNumber string) ([]byte, error) {
	m.DownloadCount++
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}

	doc, ok := m.Documents[accessionNumber]
	if !ok {
		return nil, apperrors.ErrInfoTableNotFound
	}
	return doc, nil
}
