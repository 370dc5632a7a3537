// Package phase maps a source snapshot onto an engagement phase and quality.
package phase

import "github.com/TobiSchelling/Pulse/internal/presence"

// Phases.
const (
	Execution   = "execution"
	Maintenance = "maintenance"
	Recovery    = "recovery"
	Paused      = "paused"
)

// Engagement qualities.
const (
	Steady     = "steady"
	Focused    = "focused"
	Fragmented = "fragmented"
	Sparse     = "sparse"
)

// Classify returns the phase for a momentum and active ratio.
func Classify(momentum string, activeRatio float64) string {
	switch {
	case momentum == presence.Rising && activeRatio >= 0.5:
		return Execution
	case momentum == presence.Stable && activeRatio >= 0.3:
		return Maintenance
	case momentum == presence.Cooling:
		return Recovery
	default:
		return Paused
	}
}

// Engagement grades how evenly activity is spread.
func Engagement(activeRatio float64, burstiness string) string {
	switch {
	case activeRatio >= 0.6 && burstiness == presence.Spread:
		return Steady
	case activeRatio >= 0.3 && burstiness != presence.Clustered:
		return Focused
	case activeRatio > 0:
		return Fragmented
	default:
		return Sparse
	}
}

// Of classifies a snapshot, returning phase and engagement.
func Of(s presence.Snapshot) (string, string) {
	ratio := s.Consistency.ActiveRatio
	return Classify(s.Momentum, ratio), Engagement(ratio, s.Consistency.Burstiness)
}
