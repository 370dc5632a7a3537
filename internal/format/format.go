// Package format renders numbers with their unit and window so that every
// figure handed to the narrative generator is self-describing.
package format

import (
	"fmt"
	"math"
	"strconv"
)

// Percent renders value/denom as a one-decimal percentage tagged with a window.
// A zero denominator renders as "0% (window)".
func Percent(value, denom float64, window string) string {
	if denom == 0 {
		return fmt.Sprintf("0%% (%s)", window)
	}
	pct := math.Round(value/denom*1000) / 10
	return fmt.Sprintf("%s%% (%s)", strconv.FormatFloat(pct, 'f', 1, 64), window)
}

// Minutes renders a minute total as hours and minutes, e.g. "2h 5m (last week)".
func Minutes(total float64, window string) string {
	hours := int(math.Floor(total / 60))
	minutes := int(math.Mod(total, 60))
	if hours > 0 {
		return fmt.Sprintf("%dh %dm (%s)", hours, minutes, window)
	}
	return fmt.Sprintf("%dm (%s)", minutes, window)
}

// Count renders an integral count with its unit, e.g. "12 tasks (last 7d)".
func Count(value float64, unit, window string) string {
	return fmt.Sprintf("%d %s (%s)", int(value), unit, window)
}

// Value picks the rendering that matches a metric unit.
func Value(value float64, unit, window string) string {
	if unit == "minutes" {
		return Minutes(value, window)
	}
	return Count(value, unit, window)
}

// Round rounds to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
