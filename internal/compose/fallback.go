package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TobiSchelling/Pulse/internal/trend"
)

// FallbackHeader opens every locally rendered summary.
const FallbackHeader = "LLM unavailable; local fallback summary."

// Fallback renders a deterministic plain-text summary of the payload for use
// when the narrative generator cannot be reached.
func Fallback(p *Payload) string {
	lines := []string{FallbackHeader}
	for _, s := range p.Summaries {
		latest := 0.0
		if len(s.Monthly) > 0 {
			latest = s.Monthly[0].Value
		}
		cats := make([]string, 0, 3)
		for i, c := range s.Categories {
			if i == 3 {
				break
			}
			cats = append(cats, fmt.Sprintf("%s (%s)", c.Label, num(c.Value)))
		}
		top := "none"
		if len(cats) > 0 {
			top = strings.Join(cats, ", ")
		}
		lines = append(lines, fmt.Sprintf("- %s: %d months, latest=%s, top categories: %s",
			s.Source, len(s.Monthly), num(latest), top))
	}
	if len(p.Emerging) > 0 {
		lines = append(lines, "Emerging: "+trendNames(p.Emerging))
	}
	if len(p.Declining) > 0 {
		lines = append(lines, "Declining: "+trendNames(p.Declining))
	}
	gaps := append(append([]string{}, p.DataGaps...), p.Uncertainties...)
	if len(gaps) > 0 {
		lines = append(lines, "Data gaps: "+strings.Join(gaps, "; "))
	}
	return strings.Join(lines, "\n")
}

func trendNames(ts []trend.Trend) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
