package api_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/api"
	"github.com/whalewatch/whale-watcher/internal/config"
	"github.com/whalewatch/whale-watcher/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.NewTestConfig()
	cfg.Server = config.ServerConfig{
		Host:        "localhost",
		Port:        "0",
		CORSOrigins: []string{"http://localhost:3000"},
	}

	router := api.NewRouter(
		db,
		testutil.NewTestFilerService(t, db),
		testutil.NewTestPositionChangeService(t, db),
		cfg,
		zap.NewNop(),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, db
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response from %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// TestRouter_Health tests the health endpoint.
func TestRouter_Health(t *testing.T) {
	server, _ := newTestServer(t)

	if status := getJSON(t, server.URL+"/api/system/health", nil); status != http.StatusOK {
		t.Errorf("Expected 200, got %d", status)
	}
}

// TestRouter_Filers tests the filer endpoints end to end.
func TestRouter_Filers(t *testing.T) {
	t.Run("lists filers", func(t *testing.T) {
		server, db := newTestServer(t)
		testutil.CreateFiler(t, db, "0001067983")

		var filers []map[string]any
		if status := getJSON(t, server.URL+"/api/filers", &filers); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(filers) != 1 {
			t.Fatalf("Expected 1 filer, got %d", len(filers))
		}
		if filers[0]["cik"] != "0001067983" {
			t.Errorf("Unexpected filer payload: %+v", filers[0])
		}
	})

	t.Run("returns a filer's filings and holdings", func(t *testing.T) {
		server, db := newTestServer(t)
		filer := testutil.CreateFiler(t, db, "0001067983")
		filing := testutil.CreateFiling(t, db, filer.ID, "2025-03-31")
		testutil.CreateHolding(t, db, filing.ID, "037833100", 100000, 15000000)

		var filings []map[string]any
		if status := getJSON(t, server.URL+"/api/filers/0001067983/filings", &filings); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(filings) != 1 {
			t.Fatalf("Expected 1 filing, got %d", len(filings))
		}
		if filings[0]["period_of_report"] != "2025-03-31" {
			t.Errorf("Unexpected filing payload: %+v", filings[0])
		}

		var holdings []map[string]any
		if status := getJSON(t, server.URL+"/api/filings/"+filing.ID+"/holdings", &holdings); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(holdings) != 1 || holdings[0]["cusip"] != "037833100" {
			t.Errorf("Unexpected holdings payload: %+v", holdings)
		}
	})

	t.Run("returns 404 for an unknown filer", func(t *testing.T) {
		server, _ := newTestServer(t)

		if status := getJSON(t, server.URL+"/api/filers/0009999999", nil); status != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", status)
		}
	})
}

// TestRouter_PositionChanges tests change queries through the full stack.
func TestRouter_PositionChanges(t *testing.T) {
	t.Run("returns reconciled changes with nullable fields as JSON null", func(t *testing.T) {
		server, db := newTestServer(t)

		filer := testutil.CreateFiler(t, db, "0001067983")
		q1 := testutil.CreateFiling(t, db, filer.ID, "2024-12-31")
		q2 := testutil.CreateFiling(t, db, filer.ID, "2025-03-31")
		testutil.CreateHolding(t, db, q1.ID, "88160R101", 20000, 3000000)
		testutil.CreateHolding(t, db, q2.ID, "67066G104", 10000, 9000000)

		svc := testutil.NewTestReconciliationService(t)
		if _, err := svc.Reconcile(db, q2.ID); err != nil {
			t.Fatalf("Reconcile() returned unexpected error: %v", err)
		}

		var changes []map[string]any
		if status := getJSON(t, server.URL+"/api/filings/"+q2.ID+"/changes", &changes); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(changes) != 2 {
			t.Fatalf("Expected 2 changes, got %d", len(changes))
		}

		byCUSIP := map[string]map[string]any{}
		for _, c := range changes {
			byCUSIP[c["cusip"].(string)] = c
		}

		newPos := byCUSIP["67066G104"]
		if newPos["change_type"] != "NEW" {
			t.Errorf("Expected NEW, got %v", newPos["change_type"])
		}
		if newPos["prev_shares"] != nil || newPos["shares_change_pct"] != nil {
			t.Errorf("Expected null previous fields on NEW: %+v", newPos)
		}

		closed := byCUSIP["88160R101"]
		if closed["change_type"] != "CLOSED" {
			t.Errorf("Expected CLOSED, got %v", closed["change_type"])
		}
		if closed["curr_shares"] != nil {
			t.Errorf("Expected null current shares on CLOSED: %+v", closed)
		}

		// The type filter narrows the result set.
		var filtered []map[string]any
		if status := getJSON(t, server.URL+"/api/filings/"+q2.ID+"/changes?type=CLOSED", &filtered); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(filtered) != 1 || filtered[0]["cusip"] != "88160R101" {
			t.Errorf("Unexpected filtered payload: %+v", filtered)
		}

		// The filer-history variant requires a type.
		var history []map[string]any
		if status := getJSON(t, server.URL+"/api/filers/0001067983/changes?type=NEW", &history); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(history) != 1 || history[0]["cusip"] != "67066G104" {
			t.Errorf("Unexpected filer history payload: %+v", history)
		}
		if status := getJSON(t, server.URL+"/api/filers/0001067983/changes", nil); status != http.StatusBadRequest {
			t.Errorf("Expected 400 without a type, got %d", status)
		}

		// Top movers over the latest period.
		var movers []map[string]any
		if status := getJSON(t, server.URL+"/api/filers/0001067983/changes/top?by=value&limit=1", &movers); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(movers) != 1 || movers[0]["cusip"] != "67066G104" {
			t.Errorf("Unexpected top movers payload: %+v", movers)
		}
	})

	t.Run("rejects an unknown change type filter", func(t *testing.T) {
		server, _ := newTestServer(t)

		url := server.URL + "/api/filings/" + testutil.MakeID() + "/changes?type=SIDEWAYS"
		if status := getJSON(t, url, nil); status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", status)
		}
	})

	t.Run("returns 404 for changes of an unknown filing", func(t *testing.T) {
		server, _ := newTestServer(t)

		url := server.URL + "/api/filings/" + testutil.MakeID() + "/changes"
		if status := getJSON(t, url, nil); status != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", status)
		}
	})

	t.Run("rejects a bad top movers ranking", func(t *testing.T) {
		server, _ := newTestServer(t)

		url := server.URL + "/api/filers/0001067983/changes/top?by=volume"
		if status := getJSON(t, url, nil); status != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", status)
		}
	})
}
