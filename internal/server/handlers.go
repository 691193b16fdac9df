package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/claude/vitals/internal/metrics"
	"github.com/claude/vitals/internal/snapshot"
)

// handleIngest receives form-encoded metric fields pushed by the phone
// automation. Each field's first value is parsed and reduced, then merged
// into yesterday's snapshot (the push covers the prior 24 hours).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body: " + err.Error()})
		return
	}

	dateKey := s.now().AddDate(0, 0, -1).Format(snapshot.DateFormat)

	updates := make(map[string]any, len(r.PostForm))
	keys := make([]string, 0, len(r.PostForm))
	for name, values := range r.PostForm {
		raw := ""
		if len(values) > 0 {
			raw = values[0]
		}
		updates[name] = metrics.Reduce(name, metrics.ParseValues(raw))
		keys = append(keys, name)
	}
	sort.Strings(keys)

	if err := s.snapshots.MergeAndSave(r.Context(), dateKey, updates); err != nil {
		s.log.Error("ingest error", "date", dateKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"date": dateKey,
		"keys": keys,
	})
}

func (s *Server) handleIngestInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"endpoint":    "ingest",
		"method":      "POST",
		"description": "Receives health data from the phone sync shortcut",
	})
}

// handleMCP passes one JSON-RPC message to the tool dispatcher. Transport
// status is always 200; errors travel in the JSON-RPC envelope.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.dispatcher.HandleMessage(r.Context(), body))
}

// handleMCPInfo serves the discovery document: server identity plus tool
// descriptors.
func (s *Server) handleMCPInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        s.dispatcher.ServerName(),
		"version":     s.version,
		"description": "Personal health metrics aggregated from daily phone syncs",
		"tools":       s.dispatcher.Tools(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
