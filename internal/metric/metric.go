// Package metric holds the typed records produced at the repository boundary
// and the validation pass applied before any analysis.
package metric

import (
	"time"

	"github.com/TobiSchelling/Pulse/internal/window"
)

// Confidence grades how much a metric can be trusted.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Metric is a single windowed aggregate for one source.
// Identity key is (Name, Source, Window).
type Metric struct {
	Name         string
	Source       string
	Window       window.Name
	Value        float64
	Unit         string
	CoverageDays int
	Confidence   Confidence
}

// Key identifies a metric.
type Key struct {
	Name   string
	Source string
	Window window.Name
}

// Key returns the identity key of the metric.
func (m Metric) Key() Key {
	return Key{Name: m.Name, Source: m.Source, Window: m.Window}
}

// Totals is a scalar aggregate plus the number of distinct active days.
type Totals struct {
	Value        float64
	CoverageDays int
}

// DailyPoint is one active day for a source. Missing days mean no activity.
type DailyPoint struct {
	Day   time.Time
	Value float64
}

// TrendPoint is one month of a source's activity, keyed by "YYYY-MM".
type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// Category is a labelled share of a source's activity (project, habit, data type).
type Category struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// SourceInfo describes what a source measures.
type SourceInfo struct {
	Name            string
	Metric          string
	Unit            string
	StreakThreshold float64
	Tables          []string
}

// Find returns the metric matching the key, if any.
func Find(metrics []Metric, key Key) (Metric, bool) {
	for _, m := range metrics {
		if m.Key() == key {
			return m, true
		}
	}
	return Metric{}, false
}

// SumDaily adds up the values of a daily series.
func SumDaily(series []DailyPoint) float64 {
	var total float64
	for _, p := range series {
		total += p.Value
	}
	return total
}
