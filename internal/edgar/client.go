// Package edgar provides a client for the SEC EDGAR archive: filing
// submission indexes, filing index pages and information table documents.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
)

const (
	defaultBaseURL     = "https://data.sec.gov"
	defaultArchivesURL = "https://www.sec.gov/Archives/edgar/data"

	requestTimeout = 30 * time.Second
)

// Client is the interface the ingestion pipeline consumes. It is satisfied
// by HTTPClient and by the test mock.
type Client interface {
	Get13FFilings(ctx context.Context, cik string, startYear, endYear int) ([]FilingMetadata, error)
	DownloadInfoTable(ctx context.Context, cik, accessionNumber string) ([]byte, error)
}

// HTTPClient fetches filing data from SEC EDGAR. Every request carries the
// configured identifying User-Agent header (an SEC requirement), takes a
// token from the rate limiter first, and is retried with backoff up to the
// configured maximum on transient failures.
type HTTPClient struct {
	// BaseURL serves the submissions API; ArchivesURL serves filing
	// documents. Overridable for tests.
	BaseURL     string
	ArchivesURL string

	httpClient *http.Client
	limiter    *RateLimiter
	userAgent  string
	maxRetries uint64
	logger     *zap.Logger
}

// NewHTTPClient creates an EDGAR client enforcing the given
// requests-per-second ceiling and retry budget.
func NewHTTPClient(userAgent string, requestsPerSecond, maxRetries int, logger *zap.Logger) *HTTPClient {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &HTTPClient{
		BaseURL:     defaultBaseURL,
		ArchivesURL: defaultArchivesURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
		limiter:     NewRateLimiter(requestsPerSecond, time.Second),
		userAgent:   userAgent,
		maxRetries:  uint64(maxRetries),
		logger:      logger,
	}
}

// Get13FFilings fetches the submission index for a CIK and returns its
// 13F-HR filings whose report date falls within [startYear, endYear],
// in the order the SEC lists them (most recent first).
func (c *HTTPClient) Get13FFilings(ctx context.Context, cik string, startYear, endYear int) ([]FilingMetadata, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.BaseURL, cik)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for CIK %s: %w", cik, err)
	}

	var submissions submissionsResponse
	if err := json.Unmarshal(body, &submissions); err != nil {
		return nil, fmt.Errorf("%w: submissions for CIK %s: %v", apperrors.ErrMalformedDocument, cik, err)
	}

	recent := submissions.Filings.Recent
	filings := []FilingMetadata{}

	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || recent.Form[i] != "13F-HR" {
			continue
		}
		if i >= len(recent.ReportDate) || i >= len(recent.FilingDate) || i >= len(recent.PrimaryDocument) {
			continue
		}

		reportDate, err := time.Parse("2006-01-02", recent.ReportDate[i])
		if err != nil {
			continue
		}
		if reportDate.Year() < startYear || reportDate.Year() > endYear {
			continue
		}

		filingDate, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			continue
		}

		filings = append(filings, FilingMetadata{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      filingDate,
			ReportDate:      reportDate,
			PrimaryDocument: recent.PrimaryDocument[i],
			FormType:        recent.Form[i],
		})
	}

	c.logger.Info("fetched 13F-HR filings",
		zap.String("cik", cik),
		zap.Int("count", len(filings)),
		zap.Int("start_year", startYear),
		zap.Int("end_year", endYear),
	)

	return filings, nil
}

// FindInfoTableDocument parses a filing's -index.html page and returns the
// filename of the document the SEC labels with Type "INFORMATION TABLE".
// XML candidates are preferred over HTML renderings of the same table.
// Returns apperrors.ErrInfoTableNotFound when the filing lists none.
func (c *HTTPClient) FindInfoTableDocument(ctx context.Context, cik, accessionNumber string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/%s-index.html",
		c.ArchivesURL,
		strings.TrimLeft(cik, "0"),
		strings.ReplaceAll(accessionNumber, "-", ""),
		accessionNumber,
	)

	body, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch filing index for %s: %w", accessionNumber, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("%w: filing index for %s: %v", apperrors.ErrMalformedDocument, accessionNumber, err)
	}

	// The index page lists documents in a table whose columns are
	// [Seq, Description, Document, Type, Size].
	candidates := []string{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		if !strings.Contains(strings.ToUpper(cells.Eq(3).Text()), "INFORMATION TABLE") {
			return
		}
		href, ok := cells.Eq(2).Find("a").Attr("href")
		if !ok {
			return
		}
		candidates = append(candidates, path.Base(href))
	})

	for _, name := range candidates {
		if strings.HasSuffix(strings.ToLower(name), ".xml") {
			return name, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}

	return "", fmt.Errorf("%w: filing %s", apperrors.ErrInfoTableNotFound, accessionNumber)
}

// DownloadInfoTable locates and downloads the information table document for
// a 13F filing.
func (c *HTTPClient) DownloadInfoTable(ctx context.Context, cik, accessionNumber string) ([]byte, error) {
	document, err := c.FindInfoTableDocument(ctx, cik, accessionNumber)
	if err != nil {
		return nil, err
	}

	return c.DownloadDocument(ctx, cik, accessionNumber, document)
}

// DownloadDocument downloads a named document from a filing's archive
// directory. The archives path uses the CIK without leading zeros and the
// accession number without dashes.
func (c *HTTPClient) DownloadDocument(ctx context.Context, cik, accessionNumber, document string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/%s",
		c.ArchivesURL,
		strings.TrimLeft(cik, "0"),
		strings.ReplaceAll(accessionNumber, "-", ""),
		document,
	)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s from filing %s: %w", document, accessionNumber, err)
	}

	c.logger.Debug("downloaded filing document",
		zap.String("accession_number", accessionNumber),
		zap.String("document", document),
		zap.Int("bytes", len(body)),
	)

	return body, nil
}

// get performs a rate-limited GET with the required User-Agent header.
// Network failures, timeouts, 429 and 5xx responses are retried with
// fibonacci backoff up to the configured maximum; other non-2xx statuses
// fail immediately.
func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json, text/html, application/xml")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("request failed, will retry", zap.String("url", url), zap.Error(err))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			// Fall through to read the body.
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			c.logger.Warn("transient response, will retry",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
			)
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
		default:
			return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}
