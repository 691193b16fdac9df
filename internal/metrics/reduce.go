package metrics

import (
	"math"
	"strings"
)

// Stats is the generic numeric summary for one metric on one day.
type Stats struct {
	Avg     float64      `json:"avg"`
	Min     float64      `json:"min"`
	Max     float64      `json:"max"`
	Count   int          `json:"count"`
	HRZones *ZoneSummary `json:"hr_zones,omitempty"`
}

// ZoneSummary buckets heart rate samples into training zones.
type ZoneSummary struct {
	Zones         map[string]int `json:"zones"`
	ZonePct       map[string]int `json:"zone_pct"`
	TrainingLoad  int            `json:"training_load"`
	HighIntensity int            `json:"high_intensity"`
}

// SleepSummary describes one night's sleep stage distribution.
type SleepSummary struct {
	Stages           map[string]int `json:"stages"`
	FragmentationPct float64        `json:"fragmentation_pct"`
	Quality          string         `json:"quality"`
	HasREM           bool           `json:"has_rem"`
	HasDeep          bool           `json:"has_deep"`
}

// CountOnly is the degenerate summary for a metric with no numeric samples.
type CountOnly struct {
	Count int `json:"count"`
}

// RawValues preserves unrecognized sleep payloads verbatim.
type RawValues struct {
	Values []any `json:"values"`
}

// Sleep stage bucket names.
const (
	StageREM   = "REM"
	StageCore  = "Core"
	StageDeep  = "Deep"
	StageAwake = "Awake"
)

// Reduce computes the stored summary for one metric's parsed atoms. The
// metric name picks the reducer: "sleep" gets stage analysis, everything
// else gets numeric stats, and "heartrate" additionally gets zone buckets.
// Reduce is pure — the same atoms always produce the same summary.
func Reduce(name string, values []any) any {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sleep":
		return reduceSleep(values)
	case "heartrate":
		nums := numericOnly(values)
		if len(nums) == 0 {
			return CountOnly{Count: len(values)}
		}
		s := numericStats(nums)
		s.HRZones = reduceHRZones(nums)
		return s
	default:
		nums := numericOnly(values)
		if len(nums) == 0 {
			return CountOnly{Count: len(values)}
		}
		return numericStats(nums)
	}
}

func numericOnly(values []any) []float64 {
	var nums []float64
	for _, v := range values {
		if f, ok := v.(float64); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

func numericStats(nums []float64) Stats {
	sum, min, max := 0.0, nums[0], nums[0]
	for _, n := range nums {
		sum += n
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	return Stats{
		Avg:   round2(sum / float64(len(nums))),
		Min:   round2(min),
		Max:   round2(max),
		Count: len(nums),
	}
}

// reduceHRZones buckets each sample into exactly one zone. Boundaries are
// exclusive of the upper bound: <100 rest, <120 light, <140 moderate,
// <160 hard, else max.
func reduceHRZones(nums []float64) *ZoneSummary {
	if len(nums) == 0 {
		return &ZoneSummary{}
	}

	zones := map[string]int{"rest": 0, "light": 0, "moderate": 0, "hard": 0, "max": 0}
	for _, hr := range nums {
		switch {
		case hr < 100:
			zones["rest"]++
		case hr < 120:
			zones["light"]++
		case hr < 140:
			zones["moderate"]++
		case hr < 160:
			zones["hard"]++
		default:
			zones["max"]++
		}
	}

	total := len(nums)
	pct := make(map[string]int, len(zones))
	for k, v := range zones {
		pct[k] = roundInt(float64(v) / float64(total) * 100)
	}

	return &ZoneSummary{
		Zones:         zones,
		ZonePct:       pct,
		TrainingLoad:  zones["moderate"] + zones["hard"] + zones["max"],
		HighIntensity: zones["hard"] + zones["max"],
	}
}

// reduceSleep counts stage labels by substring, first match wins. Atoms that
// match no stage (including numbers) are ignored for counting; if nothing
// matches at all the raw atoms are preserved instead of lost.
func reduceSleep(values []any) any {
	stages := map[string]int{StageREM: 0, StageCore: 0, StageDeep: 0, StageAwake: 0}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(s, "REM"):
			stages[StageREM]++
		case strings.Contains(s, "Core") || strings.Contains(s, "Light"):
			stages[StageCore]++
		case strings.Contains(s, "Deep"):
			stages[StageDeep]++
		case strings.Contains(s, "Awake") || strings.Contains(s, "Wake"):
			stages[StageAwake]++
		}
	}

	total := 0
	for _, n := range stages {
		total += n
	}
	if total == 0 {
		return RawValues{Values: values}
	}

	fragmentation := round1(float64(stages[StageAwake]) / float64(total) * 100)

	var quality string
	switch {
	case fragmentation < 20 && stages[StageREM] > 0 && stages[StageDeep] > 0:
		quality = "good"
	case fragmentation < 35:
		quality = "fair"
	default:
		quality = "poor"
	}

	return SleepSummary{
		Stages:           stages,
		FragmentationPct: fragmentation,
		Quality:          quality,
		HasREM:           stages[StageREM] > 0,
		HasDeep:          stages[StageDeep] > 0,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func roundInt(v float64) int { return int(math.Round(v)) }
