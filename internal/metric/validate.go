package metric

import (
	"fmt"

	"github.com/TobiSchelling/Pulse/internal/window"
)

// Validate drops impossible metrics and returns the survivors together with
// one caveat per dropped metric, in detection order.
//
// A negative value is always dropped. A LAST_30_DAYS value larger than the
// LAST_90_DAYS value for the same (source, name) is dropped too, since the
// 30-day window is a subset of the 90-day one. The second rule assumes both
// queries read the same snapshot; a race between them can discard valid data.
func Validate(metrics []Metric) ([]Metric, []string) {
	var caveats []string
	filtered := make([]Metric, 0, len(metrics))

	for _, m := range metrics {
		if m.Value < 0 {
			caveats = append(caveats, fmt.Sprintf("dropped negative metric %s %s %s", m.Name, m.Source, m.Window))
			continue
		}
		filtered = append(filtered, m)
	}

	final := make([]Metric, 0, len(filtered))
	for _, m := range filtered {
		if m.Window == window.Last30Days {
			last90, ok := Find(filtered, Key{Name: m.Name, Source: m.Source, Window: window.Last90Days})
			if ok && m.Value > last90.Value {
				caveats = append(caveats, fmt.Sprintf(
					"dropped %s %s last 30 days metric (%g) exceeding last 90 days (%g)",
					m.Source, m.Name, m.Value, last90.Value))
				continue
			}
		}
		final = append(final, m)
	}
	return final, caveats
}
