package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/Pulse/internal/cluster"
	"github.com/TobiSchelling/Pulse/internal/correlate"
	"github.com/TobiSchelling/Pulse/internal/format"
	"github.com/TobiSchelling/Pulse/internal/metric"
	"github.com/TobiSchelling/Pulse/internal/phase"
	"github.com/TobiSchelling/Pulse/internal/presence"
	"github.com/TobiSchelling/Pulse/internal/trend"
	"github.com/TobiSchelling/Pulse/internal/window"
)

const (
	MaxContextChars           = 6000
	DefaultChangeThresholdPct = 20.0
	TruncationMarker          = " [trunc]"

	maxHighlights = 3
	maxChanges    = 5
	maxKeyFacts   = 3
)

// SourceInput is the analysed data for one collected source.
type SourceInput struct {
	Info       metric.SourceInfo
	Snapshot   presence.Snapshot
	Monthly    []metric.TrendPoint
	Categories []metric.Category
}

// Input is everything the compactor needs for one context build.
type Input struct {
	Period        string
	Start, End    time.Time
	Sources       []SourceInput
	Metrics       []metric.Metric
	Themes        []cluster.Theme
	Correlations  []correlate.Correlation
	Emerging      []trend.Trend
	Declining     []trend.Trend
	Uncertainties []string
	DataGaps      []string
}

// DateRange is the reported span. Both dates are inclusive.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MetricView is a metric as handed to the narrative generator.
type MetricView struct {
	Name         string            `json:"name"`
	Value        float64           `json:"value"`
	Unit         string            `json:"unit"`
	Display      string            `json:"display"`
	CoverageDays int               `json:"coverage_days"`
	Confidence   metric.Confidence `json:"confidence"`
}

// SourceView is the derived per-source section of the context.
type SourceView struct {
	Source      string                `json:"source,omitempty"`
	Phase       string                `json:"phase"`
	Momentum    string                `json:"momentum"`
	Engagement  string                `json:"engagement"`
	Presence    presence.Presence     `json:"presence"`
	Consistency presence.Consistency  `json:"consistency"`
	Streaks     presence.Streak       `json:"streaks"`
	Best        *presence.BestDay     `json:"best,omitempty"`
	Metrics     map[string]MetricView `json:"metrics"`
	KeyFacts    []string              `json:"key_facts"`
}

// Summary keeps the monthly and category data the fallback renderer lists.
type Summary struct {
	Source     string              `json:"source"`
	Monthly    []metric.TrendPoint `json:"monthly"`
	Categories []metric.Category   `json:"categories"`
}

// Highlights are cross-source positives.
type Highlights struct {
	Wins      []string `json:"wins"`
	Streaks   []string `json:"streaks"`
	Stability []string `json:"stability"`
}

// Changes compares the last 30 days with the 30 before.
type Changes struct {
	Increases []string `json:"meaningful_increases"`
	Decreases []string `json:"meaningful_decreases"`
	NoChange  []string `json:"no_change"`
}

// Payload is the assembled context for one build.
type Payload struct {
	Period        string                  `json:"period"`
	DateRange     DateRange               `json:"date_range"`
	Sources       []SourceView            `json:"sources"`
	Summaries     []Summary               `json:"summaries"`
	Highlights    Highlights              `json:"highlights"`
	Changes       Changes                 `json:"changes"`
	Themes        []cluster.Theme         `json:"themes"`
	Correlations  []correlate.Correlation `json:"correlations"`
	Emerging      []trend.Trend           `json:"emerging"`
	Declining     []trend.Trend           `json:"declining"`
	Uncertainties []string                `json:"uncertainties"`
	DataGaps      []string                `json:"data_gaps"`
}

// Compactor assembles and serializes context payloads.
type Compactor struct {
	maxChars  int
	changePct float64
}

// NewCompactor creates a compactor. maxChars is capped at MaxContextChars and
// non-positive values select it.
func NewCompactor(maxChars int, changeThresholdPct float64) *Compactor {
	if maxChars <= 0 || maxChars > MaxContextChars {
		maxChars = MaxContextChars
	}
	if changeThresholdPct <= 0 {
		changeThresholdPct = DefaultChangeThresholdPct
	}
	return &Compactor{maxChars: maxChars, changePct: changeThresholdPct}
}

// MaxChars returns the effective character budget.
func (c *Compactor) MaxChars() int {
	return c.maxChars
}

// Build assembles the payload.
func (c *Compactor) Build(in Input) *Payload {
	p := &Payload{
		Period:        in.Period,
		DateRange:     DateRange{Start: window.FormatDate(in.Start), End: window.FormatDate(in.End.AddDate(0, 0, -1))},
		Themes:        in.Themes,
		Correlations:  in.Correlations,
		Emerging:      in.Emerging,
		Declining:     in.Declining,
		Uncertainties: in.Uncertainties,
		DataGaps:      in.DataGaps,
	}
	for _, src := range in.Sources {
		p.Sources = append(p.Sources, sourceView(src, in.Metrics))
		p.Summaries = append(p.Summaries, Summary{
			Source:     src.Info.Name,
			Monthly:    src.Monthly,
			Categories: src.Categories,
		})
	}
	p.Highlights = highlights(p.Sources)
	p.Changes = c.changes(in.Sources, in.Metrics)
	return p
}

func sourceView(src SourceInput, metrics []metric.Metric) SourceView {
	s := src.Snapshot
	ph, eng := phase.Of(s)
	v := SourceView{
		Source:      src.Info.Name,
		Phase:       ph,
		Momentum:    s.Momentum,
		Engagement:  eng,
		Presence:    s.Presence,
		Consistency: s.Consistency,
		Streaks:     s.Streaks,
		Best:        s.Best,
		Metrics:     make(map[string]MetricView),
	}
	for _, m := range metrics {
		if m.Source != src.Info.Name {
			continue
		}
		v.Metrics[strings.ToLower(string(m.Window))] = MetricView{
			Name:         m.Name,
			Value:        m.Value,
			Unit:         m.Unit,
			Display:      format.Value(m.Value, m.Unit, m.Window.Label()),
			CoverageDays: m.CoverageDays,
			Confidence:   m.Confidence,
		}
	}
	v.KeyFacts = keyFacts(src.Info.Unit, s)
	return v
}

func keyFacts(unit string, s presence.Snapshot) []string {
	label := window.Last30Days.Label()
	facts := []string{
		fmt.Sprintf("Active %d/%d days, %s; longest gap %d days",
			s.Presence.DaysActive, s.Presence.WindowDays,
			format.Percent(float64(s.Presence.DaysActive), float64(s.Presence.WindowDays), label),
			s.Presence.LongestGapDays),
	}
	variability := "n/a"
	if s.Consistency.CV != nil {
		variability = fmt.Sprintf("%.2f", *s.Consistency.CV)
	}
	facts = append(facts, fmt.Sprintf("Median daily value %s; variability %s",
		format.Value(s.Consistency.Median, unit, "per active day"), variability))
	facts = append(facts, fmt.Sprintf("Current streak %d days; longest %d",
		s.Streaks.Current, s.Streaks.Longest))
	return capped(facts, maxKeyFacts)
}

func highlights(views []SourceView) Highlights {
	var h Highlights
	for _, v := range views {
		if (v.Engagement == phase.Steady || v.Engagement == phase.Focused) &&
			(v.Phase == phase.Execution || v.Phase == phase.Maintenance) {
			h.Wins = append(h.Wins, fmt.Sprintf("%s: %s pattern with %s phase", v.Source, v.Engagement, v.Phase))
		}
		if v.Streaks.Longest >= 5 {
			h.Streaks = append(h.Streaks, fmt.Sprintf("%s: longest streak %d days", v.Source, v.Streaks.Longest))
		}
		if v.Engagement == phase.Steady {
			h.Stability = append(h.Stability, fmt.Sprintf("%s: stable engagement", v.Source))
		}
	}
	h.Wins = capped(h.Wins, maxHighlights)
	h.Streaks = capped(h.Streaks, maxHighlights)
	h.Stability = capped(h.Stability, maxHighlights)
	return h
}

func (c *Compactor) changes(sources []SourceInput, metrics []metric.Metric) Changes {
	var ch Changes
	threshold := c.changePct / 100
	for _, src := range sources {
		name := src.Info.Metric
		last, ok := metric.Find(metrics, metric.Key{Name: name, Source: src.Info.Name, Window: window.Last30Days})
		if !ok {
			continue
		}
		prior, ok := metric.Find(metrics, metric.Key{Name: name, Source: src.Info.Name, Window: window.Prior30Days})
		if !ok || prior.Value == 0 {
			continue
		}
		delta := (last.Value - prior.Value) / prior.Value
		switch {
		case delta >= threshold:
			ch.Increases = append(ch.Increases, fmt.Sprintf("%s: increased vs prior 30d (%s)", src.Info.Name, signedPct(delta)))
		case delta <= -threshold:
			ch.Decreases = append(ch.Decreases, fmt.Sprintf("%s: decreased vs prior 30d (%s)", src.Info.Name, signedPct(delta)))
		default:
			ch.NoChange = append(ch.NoChange, fmt.Sprintf("%s: stable vs prior 30d", src.Info.Name))
		}
	}
	ch.Increases = capped(ch.Increases, maxChanges)
	ch.Decreases = capped(ch.Decreases, maxChanges)
	ch.NoChange = capped(ch.NoChange, maxChanges)
	return ch
}

func signedPct(frac float64) string {
	return fmt.Sprintf("%+.1f%%", frac*100)
}

func capped(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
