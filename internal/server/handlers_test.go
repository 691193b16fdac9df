package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/claude/vitals/internal/kv"
	"github.com/claude/vitals/internal/mcp"
	"github.com/claude/vitals/internal/report"
	"github.com/claude/vitals/internal/snapshot"
)

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func newTestServer(apiKey, mcpSecret string) (*Server, *kv.Memory) {
	backend := kv.NewMemory()
	store := snapshot.NewStore(backend)
	store.Now = func() time.Time { return testNow }
	agg := report.NewAggregator(store, nil)
	agg.Now = func() time.Time { return testNow }
	dispatcher := mcp.NewDispatcher(agg, "test", slog.Default())
	s := New(store, dispatcher, apiKey, mcpSecret, "test", slog.Default())
	s.now = func() time.Time { return testNow }
	return s, backend
}

func postForm(t *testing.T, s *Server, path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// TestIngestHeartRate walks the full ingestion path: raw newline-separated
// samples in, reduced summary with zone buckets stored under yesterday's key.
func TestIngestHeartRate(t *testing.T) {
	s, backend := newTestServer("", "")

	form := url.Values{"heartrate": {"72\n75\n130\n165"}}
	rec := postForm(t, s, "/api/v1/ingest/", form, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		OK   bool     `json:"ok"`
		Date string   `json:"date"`
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Date != "2026-08-27" {
		t.Errorf("response = %+v, want ok for 2026-08-27", resp)
	}
	if len(resp.Keys) != 1 || resp.Keys[0] != "heartrate" {
		t.Errorf("keys = %v", resp.Keys)
	}

	stored, ok, err := backend.Get(context.Background(), "health:2026-08-27")
	if err != nil || !ok {
		t.Fatalf("stored snapshot missing: ok=%v err=%v", ok, err)
	}
	var doc struct {
		HeartRate struct {
			Avg     float64 `json:"avg"`
			Min     float64 `json:"min"`
			Max     float64 `json:"max"`
			Count   int     `json:"count"`
			HRZones struct {
				Zones map[string]int `json:"zones"`
			} `json:"hr_zones"`
		} `json:"heartrate"`
		Updated string `json:"_updated"`
	}
	if err := json.Unmarshal([]byte(stored), &doc); err != nil {
		t.Fatal(err)
	}
	hr := doc.HeartRate
	if hr.Avg != 110.5 || hr.Min != 72 || hr.Max != 165 || hr.Count != 4 {
		t.Errorf("summary = %+v", hr)
	}
	if hr.HRZones.Zones["rest"] != 2 || hr.HRZones.Zones["moderate"] != 1 || hr.HRZones.Zones["max"] != 1 {
		t.Errorf("zones = %v", hr.HRZones.Zones)
	}
	if doc.Updated != "2026-08-28T10:00:00Z" {
		t.Errorf("_updated = %q", doc.Updated)
	}
}

// TestIngestMergesFields verifies a second push for the same day overwrites
// only the fields it names.
func TestIngestMergesFields(t *testing.T) {
	s, backend := newTestServer("", "")

	postForm(t, s, "/api/v1/ingest/", url.Values{"steps": {"1000"}, "hrv": {"55"}}, nil)
	postForm(t, s, "/api/v1/ingest/", url.Values{"steps": {"2500"}}, nil)

	stored, _, _ := backend.Get(context.Background(), "health:2026-08-27")
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stored), &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["hrv"]; !ok {
		t.Error("hrv dropped by second push")
	}
	var steps struct {
		Avg float64 `json:"avg"`
	}
	json.Unmarshal(doc["steps"], &steps)
	if steps.Avg != 2500 {
		t.Errorf("steps.avg = %v, want 2500", steps.Avg)
	}
}

// TestIngestInfo verifies the GET description payload.
func TestIngestInfo(t *testing.T) {
	s, _ := newTestServer("", "")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingest/", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"endpoint":"ingest"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

// TestMCPRoundTrip verifies a JSON-RPC initialize request over HTTP.
func TestMCPRoundTrip(t *testing.T) {
	s, _ := newTestServer("", "")
	req := httptest.NewRequest(http.MethodPost, "/mcp/",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"protocolVersion":"2024-11-05"`) {
		t.Errorf("body = %s", body)
	}
	if !strings.Contains(body, `"id":1`) {
		t.Errorf("body = %s", body)
	}
}

// TestMCPUnknownMethodOverHTTP verifies the transport stays 200 while the
// envelope carries the JSON-RPC error.
func TestMCPUnknownMethodOverHTTP(t *testing.T) {
	s, _ := newTestServer("", "")
	req := httptest.NewRequest(http.MethodPost, "/mcp/",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with error in envelope", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":-32601`) {
		t.Errorf("body = %s", rec.Body)
	}
}

// TestMCPDiscovery verifies the GET document lists server identity and tools.
func TestMCPDiscovery(t *testing.T) {
	s, _ := newTestServer("", "")
	req := httptest.NewRequest(http.MethodGet, "/mcp/", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Tools   []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "vitals" || doc.Version != "test" {
		t.Errorf("identity = %+v", doc)
	}
	if len(doc.Tools) != 3 {
		t.Errorf("tools = %d, want 3", len(doc.Tools))
	}
}
