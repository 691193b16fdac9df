// Package snapshot persists one JSON document of metric summaries per
// calendar day on top of the key-value backend.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/vitals/internal/kv"
)

// keyPrefix namespaces snapshot keys in the backend: "health:YYYY-MM-DD".
const keyPrefix = "health:"

// DateFormat is the calendar-day key layout.
const DateFormat = "2006-01-02"

// Snapshot is one day's document: metric name → stored summary, plus the
// "_updated" timestamp. Summaries are kept as raw JSON so a merge replaces
// a metric wholesale without reinterpreting its shape.
type Snapshot map[string]json.RawMessage

// Store reads and writes daily snapshots through a kv.Store.
type Store struct {
	backend kv.Store

	// Now is the clock used for the _updated stamp; overridable in tests.
	Now func() time.Time
}

// NewStore creates a snapshot store over the given backend.
func NewStore(backend kv.Store) *Store {
	return &Store{backend: backend, Now: time.Now}
}

// Load fetches the snapshot for a date key. A missing entry yields an empty
// snapshot; stored text that fails to parse as JSON is a propagated error,
// since it indicates corruption rather than absence.
func (s *Store) Load(ctx context.Context, dateKey string) (Snapshot, error) {
	text, ok, err := s.backend.Get(ctx, keyPrefix+dateKey)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", dateKey, err)
	}
	if !ok || text == "" {
		return Snapshot{}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		return nil, fmt.Errorf("snapshot %s: corrupt stored document: %w", dateKey, err)
	}
	return snap, nil
}

// MergeAndSave loads the existing snapshot for a date, overwrites each named
// metric with its new summary (no deep merge — a field replaces wholesale),
// stamps _updated, and writes the whole document back.
//
// This is an unsynchronized read-modify-write: two concurrent ingestions for
// the same date race and the last writer's full document wins. Accepted for
// single-user, low-frequency pushes.
func (s *Store) MergeAndSave(ctx context.Context, dateKey string, updates map[string]any) error {
	snap, err := s.Load(ctx, dateKey)
	if err != nil {
		return err
	}

	for name, summary := range updates {
		raw, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encoding summary %s: %w", name, err)
		}
		snap[name] = raw
	}

	stamp, err := json.Marshal(s.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("encoding timestamp: %w", err)
	}
	snap["_updated"] = stamp

	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", dateKey, err)
	}

	if err := s.backend.Set(ctx, keyPrefix+dateKey, string(doc)); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", dateKey, err)
	}
	return nil
}
