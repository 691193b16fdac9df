package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/claude/vitals/internal/snapshot"
)

// Default lookback windows.
const (
	DefaultTrendDays    = 7
	DefaultBaselineDays = 14
	recentDayCount      = 3
)

// NoData is the distinguishable "nothing stored" payload. It is a normal
// result, not an error: the caller needs to tell "not yet synced" apart from
// a failed query.
type NoData struct {
	Error string `json:"error"`
}

// Baseline is a rolling HRV mean over a trailing window. Days counts the
// days that actually contributed, which can be fewer than the window.
type Baseline struct {
	Baseline *float64 `json:"baseline"`
	Days     int      `json:"days"`
}

// BaselineComparison relates today's HRV to the rolling baseline.
type BaselineComparison struct {
	Baseline     float64 `json:"baseline"`
	BaselineDays int     `json:"baseline_days"`
	PctDiff      int     `json:"pct_diff"`
}

// RecoveryStatus blends today's metrics, the baseline comparison, and the
// last three days' summaries. Raw numbers only; interpretation is left to
// the client.
type RecoveryStatus struct {
	Date          string                 `json:"date"`
	WeeklyRoutine map[string]int         `json:"weekly_routine"`
	Today         *DayMetrics            `json:"today,omitempty"`
	HRVvsBaseline *BaselineComparison    `json:"hrv_vs_baseline,omitempty"`
	RecentDays    map[string]*DayMetrics `json:"recent_days,omitempty"`
}

// Aggregator composes per-day extractions across date ranges. All operations
// are relative to the host's current local calendar day.
type Aggregator struct {
	store   *snapshot.Store
	routine map[string]int

	// Now is the clock used to resolve "today"; overridable in tests.
	Now func() time.Time
}

// NewAggregator creates an Aggregator. routine is the configured weekly
// exercise routine, passed through to recovery status (nil when unset).
func NewAggregator(store *snapshot.Store, routine map[string]int) *Aggregator {
	if len(routine) == 0 {
		routine = nil
	}
	return &Aggregator{store: store, routine: routine, Now: time.Now}
}

func (a *Aggregator) dateKey(daysAgo int) string {
	return a.Now().AddDate(0, 0, -daysAgo).Format(snapshot.DateFormat)
}

// Today returns today's stored snapshot verbatim — not run through the
// extractor — or a no-data payload when nothing has synced yet.
func (a *Aggregator) Today(ctx context.Context) (any, error) {
	snap, err := a.store.Load(ctx, a.dateKey(0))
	if err != nil {
		return nil, err
	}
	if len(snap) == 0 {
		return NoData{Error: "No data synced today. Run the phone sync shortcut."}, nil
	}
	return snap, nil
}

// Trends builds the multi-day trend table, today going backward. Days with
// no usable data are omitted rather than included as null gaps; an entirely
// empty table becomes a no-data payload.
func (a *Aggregator) Trends(ctx context.Context, days int) (any, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}

	table := make(map[string]*DayMetrics)
	for i := 0; i < days; i++ {
		date := a.dateKey(i)
		snap, err := a.store.Load(ctx, date)
		if err != nil {
			return nil, err
		}
		if dm := ExtractDay(snap); dm != nil {
			table[date] = dm
		}
	}

	if len(table) == 0 {
		return NoData{Error: fmt.Sprintf("No data for last %d days.", days)}, nil
	}
	return table, nil
}

// HRVBaseline computes the rolling HRV mean over the trailing window,
// excluding today. Only days with a truthy hrv.avg contribute; the mean is
// over contributing days, not the window size.
func (a *Aggregator) HRVBaseline(ctx context.Context, days int) (Baseline, error) {
	if days <= 0 {
		days = DefaultBaselineDays
	}

	var values []float64
	for i := 1; i <= days; i++ {
		snap, err := a.store.Load(ctx, a.dateKey(i))
		if err != nil {
			return Baseline{}, err
		}
		if p := probeMetric(snap, "hrv"); p != nil && p.Avg != nil && *p.Avg != 0 {
			values = append(values, *p.Avg)
		}
	}

	if len(values) == 0 {
		return Baseline{Days: 0}, nil
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := round1(sum / float64(len(values)))
	return Baseline{Baseline: &mean, Days: len(values)}, nil
}

// RecoveryStatus assembles today's extraction, the baseline comparison (only
// when both sides exist), and the last three days keyed day_minus_1..3.
func (a *Aggregator) RecoveryStatus(ctx context.Context) (*RecoveryStatus, error) {
	todaySnap, err := a.store.Load(ctx, a.dateKey(0))
	if err != nil {
		return nil, err
	}

	baseline, err := a.HRVBaseline(ctx, DefaultBaselineDays)
	if err != nil {
		return nil, err
	}

	status := &RecoveryStatus{
		Date:          a.dateKey(0),
		WeeklyRoutine: a.routine,
		Today:         ExtractDay(todaySnap),
	}

	if status.Today != nil && status.Today.HRV != nil && baseline.Baseline != nil {
		b := *baseline.Baseline
		status.HRVvsBaseline = &BaselineComparison{
			Baseline:     b,
			BaselineDays: baseline.Days,
			PctDiff:      int(math.Round((*status.Today.HRV - b) / b * 100)),
		}
	}

	recent := make(map[string]*DayMetrics)
	for i := 1; i <= recentDayCount; i++ {
		snap, err := a.store.Load(ctx, a.dateKey(i))
		if err != nil {
			return nil, err
		}
		if dm := ExtractDay(snap); dm != nil {
			recent[fmt.Sprintf("day_minus_%d", i)] = dm
		}
	}
	if len(recent) > 0 {
		status.RecentDays = recent
	}

	return status, nil
}
