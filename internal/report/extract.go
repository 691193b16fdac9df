// Package report turns stored snapshots into the canonical per-day view and
// the multi-day aggregations (trend table, HRV baseline, recovery status)
// served to the tool-calling client.
package report

import (
	"encoding/json"
	"math"

	"github.com/claude/vitals/internal/snapshot"
)

// DayMetrics is the canonical, schema-version-independent view of one day.
// Fields are present only when the underlying data exists; all multi-day
// aggregation consumes this shape regardless of which historical schema the
// raw snapshot used.
type DayMetrics struct {
	HRV             *float64           `json:"hrv,omitempty"`
	RestingHR       *float64           `json:"resting_hr,omitempty"`
	HRZones         map[string]float64 `json:"hr_zones,omitempty"`
	Sleep           *SleepView         `json:"sleep,omitempty"`
	ExerciseMin     *int               `json:"exercise_min,omitempty"`
	Steps           *int               `json:"steps,omitempty"`
	ActiveCalories  *int               `json:"active_calories,omitempty"`
	MindfulMin      *int               `json:"mindful_min,omitempty"`
	RespiratoryRate *float64           `json:"respiratory_rate,omitempty"`
}

// SleepView passes through whatever sleep fields the stored summary has,
// nulls included.
type SleepView struct {
	Quality          *string  `json:"quality"`
	FragmentationPct *float64 `json:"fragmentation_pct"`
	HasDeep          *bool    `json:"has_deep"`
	HasRem           *bool    `json:"has_rem"`
}

// metricProbe decodes a stored metric summary tolerantly: it carries the
// union of fields across both historical storage shapes, and any field the
// summary lacks stays nil.
type metricProbe struct {
	Avg     *float64 `json:"avg"`
	Min     *float64 `json:"min"`
	Count   *float64 `json:"count"`
	Total   *float64 `json:"total"`
	HRZones *struct {
		ZonePct map[string]float64 `json:"zone_pct"`
	} `json:"hr_zones"`
}

// probeMetric decodes one metric entry from a snapshot. Returns nil when the
// key is absent or the entry is not an object (tolerated as unusable data,
// unlike a corrupt document which fails at load time).
func probeMetric(snap snapshot.Snapshot, key string) *metricProbe {
	raw, ok := snap[key]
	if !ok {
		return nil
	}
	var p metricProbe
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

// cumulativeValue resolves a daily running total across both storage shapes:
// the new shape carries an explicit total, the old shape reconstructs it as
// round(avg * count). Keys are probed in order; the first present entry
// wins. Reports false when no key exists.
func cumulativeValue(snap snapshot.Snapshot, keys ...string) (int, bool) {
	for _, key := range keys {
		p := probeMetric(snap, key)
		if p == nil {
			continue
		}
		if p.Total != nil {
			return int(math.Round(*p.Total)), true
		}
		if p.Avg != nil && p.Count != nil {
			return int(math.Round(*p.Avg * *p.Count)), true
		}
		return 0, true
	}
	return 0, false
}

// ExtractDay normalizes a stored snapshot into the canonical day view.
// Returns nil for an empty snapshot, and nil again when the document exists
// but no usable field could be extracted.
func ExtractDay(snap snapshot.Snapshot) *DayMetrics {
	if len(snap) == 0 {
		return nil
	}

	dm := &DayMetrics{}
	populated := false

	if p := probeMetric(snap, "hrv"); p != nil && p.Avg != nil && *p.Avg != 0 {
		v := round1(*p.Avg)
		dm.HRV = &v
		populated = true
	}

	if p := probeMetric(snap, "heartRate"); p != nil {
		if p.Min != nil && *p.Min != 0 {
			v := round1(*p.Min)
			dm.RestingHR = &v
			populated = true
		}
		if p.HRZones != nil && len(p.HRZones.ZonePct) > 0 {
			dm.HRZones = p.HRZones.ZonePct
			populated = true
		}
	}

	if raw, ok := snap["sleep"]; ok {
		var view SleepView
		if err := json.Unmarshal(raw, &view); err == nil {
			dm.Sleep = &view
			populated = true
		}
	}

	// "exercise " with a trailing space first: an upstream naming quirk left
	// some documents keyed that way.
	if v, ok := cumulativeValue(snap, "exercise ", "exercise"); ok {
		dm.ExerciseMin = &v
		populated = true
	}
	if v, ok := cumulativeValue(snap, "steps"); ok {
		dm.Steps = &v
		populated = true
	}
	if v, ok := cumulativeValue(snap, "activeEnergy"); ok {
		dm.ActiveCalories = &v
		populated = true
	}
	if v, ok := cumulativeValue(snap, "mindful"); ok {
		dm.MindfulMin = &v
		populated = true
	}

	if p := probeMetric(snap, "respRate"); p != nil && p.Avg != nil && *p.Avg != 0 {
		v := round1(*p.Avg)
		dm.RespiratoryRate = &v
		populated = true
	}

	if !populated {
		return nil
	}
	return dm
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
