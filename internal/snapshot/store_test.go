package snapshot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/claude/vitals/internal/kv"
	"github.com/claude/vitals/internal/metrics"
)

func testStore() (*Store, *kv.Memory) {
	backend := kv.NewMemory()
	s := NewStore(backend)
	s.Now = func() time.Time { return time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC) }
	return s, backend
}

// TestLoadAbsent verifies a missing backend entry yields an empty snapshot,
// not an error.
func TestLoadAbsent(t *testing.T) {
	s, _ := testStore()
	snap, err := s.Load(context.Background(), "2026-08-27")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("snapshot = %v, want empty", snap)
	}
}

// TestLoadCorrupt verifies malformed stored JSON is a propagated error,
// distinct from the absent case.
func TestLoadCorrupt(t *testing.T) {
	s, backend := testStore()
	backend.Set(context.Background(), "health:2026-08-27", "{not json")

	if _, err := s.Load(context.Background(), "2026-08-27"); err == nil {
		t.Error("expected error for corrupt document")
	}
}

// TestMergeAndSaveCreates verifies first ingestion for a date creates the
// document under the health: key with an _updated stamp.
func TestMergeAndSaveCreates(t *testing.T) {
	ctx := context.Background()
	s, backend := testStore()

	err := s.MergeAndSave(ctx, "2026-08-27", map[string]any{
		"hrv": metrics.Stats{Avg: 55.5, Min: 48, Max: 62, Count: 12},
	})
	if err != nil {
		t.Fatalf("MergeAndSave error: %v", err)
	}

	text, ok, _ := backend.Get(ctx, "health:2026-08-27")
	if !ok {
		t.Fatal("document not written")
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("stored document is not JSON: %v", err)
	}
	hrv := doc["hrv"].(map[string]any)
	if hrv["avg"] != 55.5 {
		t.Errorf("hrv.avg = %v, want 55.5", hrv["avg"])
	}
	if doc["_updated"] != "2026-08-28T09:30:00Z" {
		t.Errorf("_updated = %v", doc["_updated"])
	}
}

// TestMergeAndSaveReplacesWholesale verifies a re-submitted metric replaces
// its previous summary entirely while untouched metrics survive.
func TestMergeAndSaveReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s, _ := testStore()

	if err := s.MergeAndSave(ctx, "2026-08-27", map[string]any{
		"heartRate": metrics.Stats{Avg: 70, Min: 60, Max: 90, Count: 10},
		"steps":     metrics.Stats{Avg: 500, Min: 0, Max: 1200, Count: 10},
	}); err != nil {
		t.Fatalf("first MergeAndSave error: %v", err)
	}

	// Second push replaces heartRate with a count-only summary.
	if err := s.MergeAndSave(ctx, "2026-08-27", map[string]any{
		"heartRate": metrics.CountOnly{Count: 3},
	}); err != nil {
		t.Fatalf("second MergeAndSave error: %v", err)
	}

	snap, err := s.Load(ctx, "2026-08-27")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	var hr map[string]any
	if err := json.Unmarshal(snap["heartRate"], &hr); err != nil {
		t.Fatalf("decode heartRate: %v", err)
	}
	if _, stale := hr["avg"]; stale {
		t.Error("old heartRate fields survived the overwrite")
	}
	if hr["count"] != 3.0 {
		t.Errorf("heartRate.count = %v, want 3", hr["count"])
	}

	if _, ok := snap["steps"]; !ok {
		t.Error("untouched metric steps was dropped")
	}
}

// TestMergeAndSaveCorruptExisting verifies a merge on top of a corrupt
// document fails without writing, leaving the stored content unchanged.
func TestMergeAndSaveCorruptExisting(t *testing.T) {
	ctx := context.Background()
	s, backend := testStore()
	backend.Set(ctx, "health:2026-08-27", "{broken")

	err := s.MergeAndSave(ctx, "2026-08-27", map[string]any{"steps": metrics.CountOnly{Count: 1}})
	if err == nil {
		t.Fatal("expected error for corrupt existing document")
	}

	text, _, _ := backend.Get(ctx, "health:2026-08-27")
	if text != "{broken" {
		t.Errorf("stored content changed to %q after failed merge", text)
	}
}
