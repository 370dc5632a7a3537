package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/Pulse/internal/cluster"
	"github.com/TobiSchelling/Pulse/internal/collect"
	"github.com/TobiSchelling/Pulse/internal/compose"
	"github.com/TobiSchelling/Pulse/internal/config"
	"github.com/TobiSchelling/Pulse/internal/correlate"
	"github.com/TobiSchelling/Pulse/internal/llm"
	"github.com/TobiSchelling/Pulse/internal/metric"
	"github.com/TobiSchelling/Pulse/internal/presence"
	"github.com/TobiSchelling/Pulse/internal/trend"
	"github.com/TobiSchelling/Pulse/internal/window"
)

// Snapshot windows are always the trailing 30 days.
const snapshotDays = 30

// Context is one built context: the structured payload and its serialized
// form as handed to the narrative generator.
type Context struct {
	RunID   string
	Payload *compose.Payload
	Text    string
}

// Answer is a narrative response. Fallback is set when the generator failed
// and the text is the locally rendered summary.
type Answer struct {
	Text     string
	Fallback bool
	Context  *Context
}

// Pipeline orchestrates collection, analysis, compaction and narration.
type Pipeline struct {
	collector  *collect.Collector
	clusterer  *cluster.Clusterer
	correlator *correlate.Analyzer
	detector   *trend.Detector
	compactor  *compose.Compactor
	provider   llm.Provider
	log        *zap.Logger
}

// New creates a pipeline reading from repo and narrating through provider.
func New(cfg *config.Config, repo collect.Repository, provider llm.Provider, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := cfg.Analysis
	return &Pipeline{
		collector: collect.NewCollector(repo, cfg.Sources, collect.Options{
			Workers: a.Workers,
			TopN:    a.TopN,
			Months:  a.Months,
		}, logger),
		clusterer:  cluster.NewClusterer(a.ThemeSimilarity, a.TopN),
		correlator: correlate.NewAnalyzer(a.Correlations),
		detector:   trend.NewDetector(a.EmergePct, a.DeclinePct),
		compactor:  compose.NewCompactor(a.MaxContextChars, a.ChangeThresholdPct),
		provider:   provider,
		log:        logger,
	}
}

// BuildContext collects and analyzes every configured source for the period
// ending at today and serializes the result within the character budget.
func (p *Pipeline) BuildContext(ctx context.Context, period window.Period, today time.Time) (*Context, error) {
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID), zap.String("period", string(period)))

	start, end := window.DateRange(period, today)
	started := time.Now()

	res, err := p.collector.Collect(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("collecting: %w", err)
	}
	metrics, caveats := metric.Validate(res.Metrics)
	for _, c := range caveats {
		log.Warn("metric caveat", zap.String("caveat", c))
	}

	var (
		inputs      []compose.SourceInput
		candidates  []cluster.Candidate
		names       = make([]string, 0, len(res.Sources))
		monthly     = make(map[string][]metric.TrendPoint, len(res.Sources))
		metricNames = make(map[string]string, len(res.Sources))
	)
	for _, sd := range res.Sources {
		src := sd.Info.Name
		names = append(names, src)
		monthly[src] = sd.Monthly
		metricNames[src] = sd.Info.Metric

		inputs = append(inputs, compose.SourceInput{
			Info:       sd.Info,
			Snapshot:   presence.Analyze(sd.Series30, sd.Series90, snapshotDays, sd.Info.StreakThreshold),
			Monthly:    sd.Monthly,
			Categories: sd.Categories,
		})

		recency := trend.RecentActivityFactor(sd.Monthly)
		for _, c := range sd.Categories {
			candidates = append(candidates, cluster.Candidate{
				Label:   c.Label,
				Value:   c.Value,
				Source:  src,
				Recency: recency,
			})
		}
	}

	emerging, declining := p.detector.Split(names, monthly)
	payload := p.compactor.Build(compose.Input{
		Period:        string(period),
		Start:         start,
		End:           end,
		Sources:       inputs,
		Metrics:       metrics,
		Themes:        p.clusterer.Themes(candidates),
		Correlations:  p.correlator.Analyze(monthly, metricNames),
		Emerging:      emerging,
		Declining:     declining,
		Uncertainties: caveats,
		DataGaps:      res.DataGaps,
	})

	text, err := p.compactor.Serialize(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing context: %w", err)
	}

	log.Info("context built",
		zap.Int("sources", len(inputs)),
		zap.Int("metrics", len(metrics)),
		zap.Int("themes", len(payload.Themes)),
		zap.Int("data_gaps", len(res.DataGaps)),
		zap.Int("chars", len([]rune(text))),
		zap.Duration("elapsed", time.Since(started)))

	return &Context{RunID: runID, Payload: payload, Text: text}, nil
}

// ProgressSummary narrates a structured progress report for the period.
func (p *Pipeline) ProgressSummary(ctx context.Context, period window.Period, today time.Time) (*Answer, error) {
	return p.narrate(ctx, period, today, progressPrompt, nil)
}

// Ask answers a free-form question against the period's context.
func (p *Pipeline) Ask(ctx context.Context, question string, period window.Period, today time.Time) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		question = defaultQuestion
	}
	return p.narrate(ctx, period, today, question, nil)
}

// Focus narrates activity related to one topic across all sources. Themes
// sharing a token with the topic are named in the prompt and in the fallback.
func (p *Pipeline) Focus(ctx context.Context, topic string, period window.Period, today time.Time) (*Answer, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("focus topic is empty")
	}
	return p.narrate(ctx, period, today, topic, func(c *Context) (string, []string) {
		matched := MatchThemes(c.Payload.Themes, topic)
		return focusPrompt(topic, matched), matched
	})
}

// focusFunc derives the prompt and the matched theme names from a context.
type focusFunc func(*Context) (string, []string)

func (p *Pipeline) narrate(ctx context.Context, period window.Period, today time.Time, prompt string, focus focusFunc) (*Answer, error) {
	c, err := p.BuildContext(ctx, period, today)
	if err != nil {
		return nil, err
	}

	var matched []string
	if focus != nil {
		prompt, matched = focus(c)
	}

	fallback := func() *Answer {
		text := compose.Fallback(c.Payload)
		if focus != nil {
			text += "\nFocus themes: " + joinOr(matched, "none")
		}
		return &Answer{Text: text, Fallback: true, Context: c}
	}

	if p.provider == nil || !p.provider.IsConfigured() {
		p.log.Warn("narrative generator not configured; using fallback", zap.String("run_id", c.RunID))
		return fallback(), nil
	}

	text, err := p.provider.Complete(ctx, Messages(c.Text, prompt))
	if err != nil {
		p.log.Error("narrative generation failed; using fallback",
			zap.String("run_id", c.RunID), zap.Error(err))
		return fallback(), nil
	}
	return &Answer{Text: text, Context: c}, nil
}

// MatchThemes returns the names of themes whose name or example labels share
// at least one token with the topic.
func MatchThemes(themes []cluster.Theme, topic string) []string {
	want := make(map[string]bool)
	for _, t := range cluster.Tokenize(topic) {
		want[t] = true
	}
	var out []string
	for _, th := range themes {
		if matchesAny(want, th.Theme) || slices.ContainsFunc(th.Examples, func(ex string) bool {
			return matchesAny(want, ex)
		}) {
			out = append(out, th.Theme)
		}
	}
	return out
}

func matchesAny(want map[string]bool, label string) bool {
	for _, t := range cluster.Tokenize(label) {
		if want[t] {
			return true
		}
	}
	return false
}

func joinOr(s []string, empty string) string {
	if len(s) == 0 {
		return empty
	}
	return strings.Join(s, ", ")
}
