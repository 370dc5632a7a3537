// Package presence derives presence, consistency, streak, momentum and best-day
// signals from a source's daily series.
package presence

import (
	"math"
	"sort"
	"time"

	"github.com/TobiSchelling/Pulse/internal/format"
	"github.com/TobiSchelling/Pulse/internal/metric"
)

// Burstiness values.
const (
	Spread    = "spread"
	Clustered = "clustered"
)

// Momentum values.
const (
	Rising  = "rising"
	Stable  = "stable"
	Cooling = "cooling"
	Paused  = "paused"
)

// DefaultStreakThreshold is the minimum daily value that counts toward a streak.
const DefaultStreakThreshold = 1.0

// Presence summarises how many days of a window had any activity.
type Presence struct {
	DaysActive     int `json:"days_active"`
	WindowDays     int `json:"window_days"`
	LongestGapDays int `json:"longest_gap_days"`
}

// Consistency describes the distribution of daily values.
// CV is nil when the mean is zero; Burstiness is empty when CV is nil.
type Consistency struct {
	ActiveRatio float64  `json:"active_ratio"`
	Median      float64  `json:"median"`
	Mean        float64  `json:"mean"`
	CV          *float64 `json:"cv"`
	Burstiness  string   `json:"burstiness,omitempty"`
}

// Streak holds the current and longest run of qualifying days.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// BestDay is the single highest-value day in a window.
type BestDay struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

// Snapshot is the per-source bundle consumed by phase classification and the
// context compactor.
type Snapshot struct {
	Presence    Presence    `json:"presence"`
	Consistency Consistency `json:"consistency"`
	Streaks     Streak      `json:"streaks"`
	Best        *BestDay    `json:"best,omitempty"`
	Momentum    string      `json:"momentum"`
}

// Analyze builds a snapshot from the last-30 and last-90 day series.
func Analyze(series30, series90 []metric.DailyPoint, windowDays int, threshold float64) Snapshot {
	s := Snapshot{
		Presence:    Measure(series30, windowDays),
		Consistency: MeasureConsistency(series30, windowDays),
		Streaks:     Streaks(series30, threshold),
		Momentum:    Momentum(metric.SumDaily(series30), metric.SumDaily(series90)),
	}
	if best, ok := Best(series30); ok {
		s.Best = &best
	}
	return s
}

// Measure computes days active and the longest gap between active days.
func Measure(series []metric.DailyPoint, windowDays int) Presence {
	return Presence{
		DaysActive:     len(series),
		WindowDays:     windowDays,
		LongestGapDays: LongestGap(series, windowDays),
	}
}

// LongestGap returns the largest number of inactive days between two distinct
// active days. With no activity the whole window is a gap.
func LongestGap(series []metric.DailyPoint, windowDays int) int {
	if len(series) == 0 {
		return windowDays
	}
	days := sortedDays(series)
	longest := 0
	prev := days[0]
	for _, cur := range days[1:] {
		if cur.Equal(prev) {
			continue
		}
		if gap := daysBetween(prev, cur) - 1; gap > longest {
			longest = gap
		}
		prev = cur
	}
	return longest
}

// MeasureConsistency computes active ratio, median, mean and coefficient of
// variation over the present values.
func MeasureConsistency(series []metric.DailyPoint, windowDays int) Consistency {
	if len(series) == 0 || windowDays <= 0 {
		return Consistency{}
	}
	values := make([]float64, len(series))
	var sum float64
	for i, p := range series {
		values[i] = p.Value
		sum += p.Value
	}
	mean := sum / float64(len(values))

	c := Consistency{
		ActiveRatio: format.Round(float64(len(values))/float64(windowDays), 2),
		Median:      median(values),
		Mean:        mean,
	}
	if mean != 0 {
		cv := pstdev(values, mean) / mean
		c.CV = &cv
		if cv < 0.5 {
			c.Burstiness = Spread
		} else {
			c.Burstiness = Clustered
		}
	}
	return c
}

// Streaks walks the series chronologically. A qualifying day directly after
// the previous day extends the run; a qualifying day after a gap starts a new
// run of 1; a non-qualifying day resets the current run to 0.
func Streaks(series []metric.DailyPoint, threshold float64) Streak {
	ordered := make([]metric.DailyPoint, len(series))
	copy(ordered, series)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Day.Before(ordered[j].Day) })

	var s Streak
	var last time.Time
	for i, p := range ordered {
		if p.Value < threshold {
			s.Current = 0
			last = p.Day
			continue
		}
		if i > 0 && daysBetween(last, p.Day) == 1 {
			s.Current++
		} else {
			s.Current = 1
		}
		if s.Current > s.Longest {
			s.Longest = s.Current
		}
		last = p.Day
	}
	return s
}

// Momentum classifies the share of 90-day activity that happened in the last 30 days.
func Momentum(sum30, sum90 float64) string {
	if sum90 == 0 {
		return Paused
	}
	ratio := sum30 / sum90
	switch {
	case ratio >= 0.6:
		return Rising
	case ratio >= 0.3:
		return Stable
	default:
		return Cooling
	}
}

// Best returns the highest-value day; ties go to the first in input order.
func Best(series []metric.DailyPoint) (BestDay, bool) {
	if len(series) == 0 {
		return BestDay{}, false
	}
	best := series[0]
	for _, p := range series[1:] {
		if p.Value > best.Value {
			best = p
		}
	}
	return BestDay{Day: best.Day.Format("2006-01-02"), Value: best.Value}, true
}

func sortedDays(series []metric.DailyPoint) []time.Time {
	days := make([]time.Time, len(series))
	for i, p := range series {
		days[i] = p.Day
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func pstdev(values []float64, mean float64) float64 {
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
