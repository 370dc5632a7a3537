// Package trend compares the latest month of a source against the month
// before it and derives the recency weight used for theme scoring.
package trend

import (
	"github.com/TobiSchelling/Pulse/internal/format"
	"github.com/TobiSchelling/Pulse/internal/metric"
)

const (
	DefaultEmergePct  = 50.0
	DefaultDeclinePct = 30.0
)

// Directions.
const (
	Emerging  = "emerging"
	Declining = "declining"
	Steady    = "steady"
)

// Trend is the month-over-month movement of one source.
type Trend struct {
	Name       string  `json:"name"`
	Source     string  `json:"source"`
	LastValue  float64 `json:"last_value"`
	PriorValue float64 `json:"prior_value"`
	ChangePct  float64 `json:"change_pct"`
	Direction  string  `json:"direction"`
}

// Detector classifies monthly movement against percentage thresholds.
type Detector struct {
	emergePct  float64
	declinePct float64
}

// NewDetector creates a detector. Non-positive thresholds select the defaults.
func NewDetector(emergePct, declinePct float64) *Detector {
	if emergePct <= 0 {
		emergePct = DefaultEmergePct
	}
	if declinePct <= 0 {
		declinePct = DefaultDeclinePct
	}
	return &Detector{emergePct: emergePct, declinePct: declinePct}
}

// Detect compares monthly[0] (latest) with monthly[1]. It reports false when
// there are fewer than two months or both are zero.
func (d *Detector) Detect(source string, monthly []metric.TrendPoint) (Trend, bool) {
	if len(monthly) < 2 {
		return Trend{}, false
	}
	last, prior := monthly[0].Value, monthly[1].Value
	if last == 0 && prior == 0 {
		return Trend{}, false
	}

	change := 100.0
	if prior != 0 {
		change = (last - prior) / prior * 100
	}
	direction := Steady
	switch {
	case change >= d.emergePct:
		direction = Emerging
	case change <= -d.declinePct:
		direction = Declining
	}
	return Trend{
		Name:       source + "_overall",
		Source:     source,
		LastValue:  last,
		PriorValue: prior,
		ChangePct:  format.Round(change, 1),
		Direction:  direction,
	}, true
}

// Split detects trends for every source in order and returns the emerging and
// declining ones.
func (d *Detector) Split(sources []string, monthly map[string][]metric.TrendPoint) (emerging, declining []Trend) {
	for _, src := range sources {
		t, ok := d.Detect(src, monthly[src])
		if !ok {
			continue
		}
		switch t.Direction {
		case Emerging:
			emerging = append(emerging, t)
		case Declining:
			declining = append(declining, t)
		}
	}
	return emerging, declining
}

// RecentActivityFactor is the latest month over the average of the earlier
// months, capped at 1. With no earlier activity it is 1 if the latest month
// has activity and 0 otherwise.
func RecentActivityFactor(monthly []metric.TrendPoint) float64 {
	if len(monthly) == 0 {
		return 0
	}
	last := monthly[0].Value
	var sum float64
	for _, p := range monthly[1:] {
		sum += p.Value
	}
	var avg float64
	if n := len(monthly) - 1; n > 0 {
		avg = sum / float64(n)
	}
	if avg == 0 {
		if last > 0 {
			return 1
		}
		return 0
	}
	if f := last / avg; f < 1 {
		return f
	}
	return 1
}
