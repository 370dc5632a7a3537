package collect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/Pulse/internal/metric"
	"github.com/TobiSchelling/Pulse/internal/window"
)

const (
	DefaultWorkers = 4
	DefaultTopN    = 5
	DefaultMonths  = 12
)

// Repository is the read-only store the collector queries. Unknown sources and
// missing tables must produce empty results, not errors.
type Repository interface {
	Describe(source string) (metric.SourceInfo, bool)
	TableExists(ctx context.Context, name string) (bool, error)
	Totals(ctx context.Context, source string, start, end time.Time) (*metric.Totals, error)
	DailySeries(ctx context.Context, source string, start, end time.Time) ([]metric.DailyPoint, error)
	TopCategories(ctx context.Context, source string, start, end time.Time, limit int) ([]metric.Category, error)
	MonthlySeries(ctx context.Context, source string, start, end time.Time) ([]metric.TrendPoint, error)
}

// SourceData is everything collected for one available source.
type SourceData struct {
	Info       metric.SourceInfo
	Metrics    []metric.Metric
	Series30   []metric.DailyPoint
	Series90   []metric.DailyPoint
	Monthly    []metric.TrendPoint
	Categories []metric.Category
}

// Result holds the output of a collection pass.
type Result struct {
	Sources  []SourceData
	Metrics  []metric.Metric
	DataGaps []string
}

// Options tunes a collector. Zero values select the defaults.
type Options struct {
	Workers int
	TopN    int
	Months  int
}

// Collector gathers windowed metrics and series for the configured sources.
type Collector struct {
	repo    Repository
	sources []string
	opts    Options
	log     *zap.Logger
}

// NewCollector creates a collector over the given sources, in report order.
func NewCollector(repo Repository, sources []string, opts Options, logger *zap.Logger) *Collector {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Months <= 0 {
		opts.Months = DefaultMonths
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{repo: repo, sources: sources, opts: opts, log: logger}
}

type slot struct {
	data SourceData
	ok   bool
	gap  string
}

// Collect reads every source for windows anchored at end and monthly data for
// [start, end). A failing or absent source becomes a data gap and never stops
// the others; only context cancellation fails the whole pass.
func (c *Collector) Collect(ctx context.Context, start, end time.Time) (*Result, error) {
	windows := window.Calculate(end)
	slots := make([]slot, len(c.sources))

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, src := range c.sources {
		g.Go(func() error {
			data, gap, err := c.collectSource(ctx, src, windows, start, end)
			switch {
			case err != nil:
				c.log.Warn("source collection failed", zap.String("source", src), zap.Error(err))
				slots[i] = slot{gap: fmt.Sprintf("%s: query failed (%v)", src, err)}
			case gap != "":
				c.log.Debug("source unavailable", zap.String("source", src), zap.String("reason", gap))
				slots[i] = slot{gap: gap}
			default:
				slots[i] = slot{data: data, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collecting sources: %w", err)
	}

	r := &Result{}
	for _, s := range slots {
		if !s.ok {
			r.DataGaps = append(r.DataGaps, s.gap)
			continue
		}
		r.Sources = append(r.Sources, s.data)
		r.Metrics = append(r.Metrics, s.data.Metrics...)
	}

	c.log.Info("collection complete",
		zap.Int("sources", len(r.Sources)),
		zap.Int("metrics", len(r.Metrics)),
		zap.Int("data_gaps", len(r.DataGaps)))
	return r, nil
}

// collectSource returns a non-empty gap when the source cannot be analysed
// for a reason other than a query error.
func (c *Collector) collectSource(ctx context.Context, src string, windows map[window.Name]window.Range, start, end time.Time) (SourceData, string, error) {
	info, ok := c.repo.Describe(src)
	if !ok {
		return SourceData{}, fmt.Sprintf("%s: unknown source", src), nil
	}
	for _, t := range info.Tables {
		exists, err := c.repo.TableExists(ctx, t)
		if err != nil {
			return SourceData{}, "", err
		}
		if !exists {
			return SourceData{}, fmt.Sprintf("%s: no data (%s table missing)", src, t), nil
		}
	}

	data := SourceData{Info: info}
	for _, w := range window.Canonical {
		r := windows[w]
		totals, err := c.repo.Totals(ctx, src, r.Start, r.End)
		if err != nil {
			return SourceData{}, "", fmt.Errorf("%s totals: %w", w, err)
		}
		if totals == nil {
			continue
		}
		data.Metrics = append(data.Metrics, metric.Metric{
			Name:         info.Metric,
			Source:       src,
			Window:       w,
			Value:        totals.Value,
			Unit:         info.Unit,
			CoverageDays: totals.CoverageDays,
			Confidence:   Confidence(w, totals.CoverageDays),
		})
	}

	var err error
	r30, r90 := windows[window.Last30Days], windows[window.Last90Days]
	if data.Series30, err = c.repo.DailySeries(ctx, src, r30.Start, r30.End); err != nil {
		return SourceData{}, "", fmt.Errorf("daily series: %w", err)
	}
	if data.Series90, err = c.repo.DailySeries(ctx, src, r90.Start, r90.End); err != nil {
		return SourceData{}, "", fmt.Errorf("daily series: %w", err)
	}
	if data.Monthly, err = c.repo.MonthlySeries(ctx, src, start, end); err != nil {
		return SourceData{}, "", fmt.Errorf("monthly series: %w", err)
	}
	if len(data.Monthly) > c.opts.Months {
		data.Monthly = data.Monthly[:c.opts.Months]
	}
	if data.Categories, err = c.repo.TopCategories(ctx, src, start, end, c.opts.TopN*2); err != nil {
		return SourceData{}, "", fmt.Errorf("categories: %w", err)
	}
	return data, "", nil
}

// Confidence grades a windowed metric: empty windows are low, baselines are
// medium and current windows are high.
func Confidence(w window.Name, coverageDays int) metric.Confidence {
	switch {
	case coverageDays == 0:
		return metric.ConfidenceLow
	case w.IsPrior():
		return metric.ConfidenceMedium
	default:
		return metric.ConfidenceHigh
	}
}
