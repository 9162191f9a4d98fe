package edgar_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/edgar"
)

const submissionsJSON = `{
	"filings": {
		"recent": {
			"accessionNumber": ["0001067983-25-000005", "0001067983-25-000002", "0001067983-25-000001", "0001067983-22-000001"],
			"filingDate": ["2025-05-15", "2025-03-01", "2025-02-14", "2022-02-14"],
			"reportDate": ["2025-03-31", "2025-02-28", "2024-12-31", "2021-12-31"],
			"form": ["13F-HR", "8-K", "13F-HR", "13F-HR"],
			"primaryDocument": ["primary.xml", "pressrelease.htm", "primary.xml", "primary.xml"]
		}
	}
}`

const indexHTML = `<html><body><table>
	<tr><th>Seq</th><th>Description</th><th>Document</th><th>Type</th><th>Size</th></tr>
	<tr><td>1</td><td>Primary</td><td><a href="/Archives/edgar/data/1067983/000106798325000005/primary.xml">primary.xml</a></td><td>13F-HR</td><td>4096</td></tr>
	<tr><td>2</td><td>Info table (html)</td><td><a href="/Archives/edgar/data/1067983/000106798325000005/infotable.html">infotable.html</a></td><td>INFORMATION TABLE</td><td>8192</td></tr>
	<tr><td>3</td><td>Info table</td><td><a href="/Archives/edgar/data/1067983/000106798325000005/infotable.xml">infotable.xml</a></td><td>INFORMATION TABLE</td><td>8192</td></tr>
</table></body></html>`

func newTestClient(t *testing.T, handler http.Handler) (*edgar.HTTPClient, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := edgar.NewHTTPClient("Test Suite test@example.com", 100, 2, zap.NewNop())
	client.BaseURL = server.URL
	client.ArchivesURL = server.URL
	return client, server
}

// TestHTTPClient_Get13FFilings tests submission index parsing and filtering.
//
// WHY: The submissions API mixes every form type the filer ever submitted.
// Only 13F-HR filings within the configured report-year range may reach the
// pipeline.
func TestHTTPClient_Get13FFilings(t *testing.T) {
	var userAgent atomic.Value

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path != "/submissions/CIK0001067983.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(submissionsJSON))
	}))

	filings, err := client.Get13FFilings(context.Background(), "0001067983", 2024, 2025)
	if err != nil {
		t.Fatalf("Get13FFilings() returned unexpected error: %v", err)
	}

	// The 8-K and the 2021 13F-HR are filtered out.
	if len(filings) != 2 {
		t.Fatalf("Expected 2 filings, got %d", len(filings))
	}
	if filings[0].AccessionNumber != "0001067983-25-000005" {
		t.Errorf("Expected most recent filing first, got %s", filings[0].AccessionNumber)
	}
	if filings[0].ReportDate.Format("2006-01-02") != "2025-03-31" {
		t.Errorf("Unexpected report date: %v", filings[0].ReportDate)
	}
	if filings[1].AccessionNumber != "0001067983-25-000001" {
		t.Errorf("Expected older 13F-HR second, got %s", filings[1].AccessionNumber)
	}

	if got := userAgent.Load(); got != "Test Suite test@example.com" {
		t.Errorf("Expected identifying User-Agent header, got %v", got)
	}
}

// TestHTTPClient_FindInfoTableDocument tests index page discovery.
//
// WHY: The information table's filename varies per filing; only its Type
// label is stable. XML documents must win over HTML renderings of the same
// table.
func TestHTTPClient_FindInfoTableDocument(t *testing.T) {
	t.Run("prefers the xml information table", func(t *testing.T) {
		var requestedPath atomic.Value

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath.Store(r.URL.Path)
			w.Write([]byte(indexHTML))
		}))

		name, err := client.FindInfoTableDocument(context.Background(), "0001067983", "0001067983-25-000005")
		if err != nil {
			t.Fatalf("FindInfoTableDocument() returned unexpected error: %v", err)
		}
		if name != "infotable.xml" {
			t.Errorf("Expected infotable.xml, got %s", name)
		}

		// CIK loses its leading zeros and the accession its dashes in the
		// archives path.
		want := "/1067983/000106798325000005/0001067983-25-000005-index.html"
		if got := requestedPath.Load(); got != want {
			t.Errorf("Expected request path %s, got %v", want, got)
		}
	})

	t.Run("returns ErrInfoTableNotFound when the index lists none", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body><table>
				<tr><td>1</td><td>Primary</td><td><a href="primary.xml">primary.xml</a></td><td>13F-HR</td><td>4096</td></tr>
			</table></body></html>`))
		}))

		_, err := client.FindInfoTableDocument(context.Background(), "0001067983", "0001067983-25-000005")
		if !errors.Is(err, apperrors.ErrInfoTableNotFound) {
			t.Errorf("Expected ErrInfoTableNotFound, got %v", err)
		}
	})
}

// TestHTTPClient_DownloadInfoTable tests the discovery-then-download
// sequence.
func TestHTTPClient_DownloadInfoTable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1067983/000106798325000005/0001067983-25-000005-index.html":
			w.Write([]byte(indexHTML))
		case "/1067983/000106798325000005/infotable.xml":
			w.Write([]byte("<informationTable/>"))
		default:
			http.NotFound(w, r)
		}
	}))

	body, err := client.DownloadInfoTable(context.Background(), "0001067983", "0001067983-25-000005")
	if err != nil {
		t.Fatalf("DownloadInfoTable() returned unexpected error: %v", err)
	}
	if string(body) != "<informationTable/>" {
		t.Errorf("Unexpected document body: %q", body)
	}
}

// TestHTTPClient_Retry tests the transient-failure retry policy.
//
// WHY: EDGAR throttles aggressively. 429 and 5xx responses must be retried
// within the budget; a 404 is permanent and must fail on the first attempt.
func TestHTTPClient_Retry(t *testing.T) {
	t.Run("retries transient statuses until success", func(t *testing.T) {
		var calls atomic.Int64

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1:
				w.WriteHeader(http.StatusTooManyRequests)
			case 2:
				w.WriteHeader(http.StatusInternalServerError)
			default:
				w.Write([]byte(submissionsJSON))
			}
		}))

		_, err := client.Get13FFilings(context.Background(), "0001067983", 2024, 2025)
		if err != nil {
			t.Fatalf("Get13FFilings() returned unexpected error: %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("Expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		var calls atomic.Int64

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))

		_, err := client.Get13FFilings(context.Background(), "0001067983", 2024, 2025)
		if err == nil {
			t.Fatal("Expected error for 404 response")
		}
		if calls.Load() != 1 {
			t.Errorf("Expected 1 attempt, got %d", calls.Load())
		}
	})

	t.Run("gives up after exhausting the retry budget", func(t *testing.T) {
		var calls atomic.Int64

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, err := client.Get13FFilings(context.Background(), "0001067983", 2024, 2025)
		if err == nil {
			t.Fatal("Expected error after retry budget exhausted")
		}
		// 1 initial attempt + 2 retries.
		if calls.Load() != 3 {
			t.Errorf("Expected 3 attempts, got %d", calls.Load())
		}
	})
}
