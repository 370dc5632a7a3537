package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/TobiSchelling/Pulse/internal/metric"
)

// Strategy holds the queries for one source. Each query receives the
// half-open range as YYYY-MM-DD strings.
type Strategy struct {
	metric.SourceInfo

	Totals     func(ctx context.Context, q queryer, start, end string) (metric.Totals, error)
	Daily      func(ctx context.Context, q queryer, start, end string) ([]metric.DailyPoint, error)
	Categories func(ctx context.Context, q queryer, start, end string, limit int) ([]metric.Category, error)
	Monthly    func(ctx context.Context, q queryer, start, end string) ([]metric.TrendPoint, error)
}

// Registry maps a source name to its query strategy.
type Registry map[string]Strategy

// Names returns the registered source names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the strategies for the built-in sources.
func DefaultRegistry() Registry {
	return Registry{
		"asana": {
			SourceInfo: metric.SourceInfo{
				Name: "asana", Metric: "tasks_completed", Unit: "count",
				StreakThreshold: 1, Tables: []string{"asana_items"},
			},
			Totals: totalsQuery(`
SELECT COUNT(*), COUNT(DISTINCT date(date))
FROM asana_items
WHERE completed = 1 AND date >= ? AND date < ?`),
			Daily: dailyQuery(`
SELECT date(date) AS day, COUNT(*)
FROM asana_items
WHERE completed = 1 AND date >= ? AND date < ?
GROUP BY day ORDER BY day`),
			Categories: categoriesQuery("", `
SELECT COALESCE(NULLIF(project, ''), 'uncategorized') AS label, COUNT(*) AS items
FROM asana_items
WHERE completed = 1 AND date >= ? AND date < ?
GROUP BY label ORDER BY items DESC, label LIMIT ?`),
			Monthly: monthlyQuery(`
SELECT strftime('%Y-%m', date) AS period, COUNT(*)
FROM asana_items
WHERE completed = 1 AND date >= ? AND date < ?
GROUP BY period ORDER BY period DESC`),
		},
		"toggl": {
			SourceInfo: metric.SourceInfo{
				Name: "toggl", Metric: "minutes_tracked", Unit: "minutes",
				StreakThreshold: 1, Tables: []string{"toggl_items"},
			},
			Totals: totalsQuery(`
SELECT COALESCE(SUM(duration_minutes), 0), COUNT(DISTINCT date(start_time))
FROM toggl_items
WHERE start_time >= ? AND start_time < ?`),
			Daily: dailyQuery(`
SELECT date(start_time) AS day, COALESCE(SUM(duration_minutes), 0)
FROM toggl_items
WHERE start_time >= ? AND start_time < ?
GROUP BY day ORDER BY day`),
			Categories: categoriesQuery("", `
SELECT COALESCE(NULLIF(project_name, ''), 'uncategorized') AS label, COALESCE(SUM(duration_minutes), 0) AS total
FROM toggl_items
WHERE start_time >= ? AND start_time < ?
GROUP BY label ORDER BY total DESC, label LIMIT ?`),
			Monthly: monthlyQuery(`
SELECT strftime('%Y-%m', start_time) AS period, COALESCE(SUM(duration_minutes), 0)
FROM toggl_items
WHERE start_time >= ? AND start_time < ?
GROUP BY period ORDER BY period DESC`),
		},
		"habitica": {
			SourceInfo: metric.SourceInfo{
				Name: "habitica", Metric: "completions", Unit: "count",
				StreakThreshold: 1, Tables: []string{"habitica_items"},
			},
			Totals: totalsQuery(`
SELECT COUNT(*), COUNT(DISTINCT date(date_completed))
FROM habitica_items
WHERE completed = 1 AND date_completed >= ? AND date_completed < ?`),
			Daily: dailyQuery(`
SELECT date(date_completed) AS day, COUNT(*)
FROM habitica_items
WHERE completed = 1 AND date_completed >= ? AND date_completed < ?
GROUP BY day ORDER BY day`),
			Categories: categoriesQuery("", `
SELECT COALESCE(NULLIF(item_name, ''), 'uncategorized') AS label, COUNT(*) AS items
FROM habitica_items
WHERE completed = 1 AND date_completed >= ? AND date_completed < ?
GROUP BY label ORDER BY items DESC, label LIMIT ?`),
			Monthly: monthlyQuery(`
SELECT strftime('%Y-%m', date_completed) AS period, COUNT(*)
FROM habitica_items
WHERE completed = 1 AND date_completed >= ? AND date_completed < ?
GROUP BY period ORDER BY period DESC`),
		},
		"google_fit": {
			SourceInfo: metric.SourceInfo{
				Name: "google_fit", Metric: "steps", Unit: "steps",
				StreakThreshold: 2000, Tables: []string{"google_fit_steps"},
			},
			Totals: totalsQuery(`
SELECT COALESCE(SUM(steps), 0), COUNT(DISTINCT date(timestamp))
FROM google_fit_steps
WHERE timestamp >= ? AND timestamp < ?`),
			Daily: dailyQuery(`
SELECT date(timestamp) AS day, COALESCE(SUM(steps), 0)
FROM google_fit_steps
WHERE timestamp >= ? AND timestamp < ?
GROUP BY day ORDER BY day`),
			Categories: categoriesQuery("google_fit_general", `
SELECT data_type AS label, COUNT(*) AS records
FROM google_fit_general
WHERE date >= ? AND date < ?
GROUP BY label ORDER BY records DESC, label LIMIT ?`),
			Monthly: monthlyQuery(`
SELECT strftime('%Y-%m', timestamp) AS period, COALESCE(SUM(steps), 0)
FROM google_fit_steps
WHERE timestamp >= ? AND timestamp < ?
GROUP BY period ORDER BY period DESC`),
		},
	}
}

func totalsQuery(query string) func(context.Context, queryer, string, string) (metric.Totals, error) {
	return func(ctx context.Context, q queryer, start, end string) (metric.Totals, error) {
		var t metric.Totals
		if err := q.QueryRowContext(ctx, query, start, end).Scan(&t.Value, &t.CoverageDays); err != nil {
			return metric.Totals{}, fmt.Errorf("querying totals: %w", err)
		}
		return t, nil
	}
}

func dailyQuery(query string) func(context.Context, queryer, string, string) ([]metric.DailyPoint, error) {
	return func(ctx context.Context, q queryer, start, end string) ([]metric.DailyPoint, error) {
		rows, err := q.QueryContext(ctx, query, start, end)
		if err != nil {
			return nil, fmt.Errorf("querying daily series: %w", err)
		}
		defer rows.Close()

		var series []metric.DailyPoint
		for rows.Next() {
			var day string
			var value float64
			if err := rows.Scan(&day, &value); err != nil {
				return nil, fmt.Errorf("scanning daily series: %w", err)
			}
			d, err := time.Parse("2006-01-02", day)
			if err != nil {
				return nil, fmt.Errorf("parsing day %q: %w", day, err)
			}
			series = append(series, metric.DailyPoint{Day: d, Value: value})
		}
		return series, rows.Err()
	}
}

// categoriesQuery reads from an optional extra table; when that table is
// missing the source simply has no categories.
func categoriesQuery(table, query string) func(context.Context, queryer, string, string, int) ([]metric.Category, error) {
	return func(ctx context.Context, q queryer, start, end string, limit int) ([]metric.Category, error) {
		if table != "" {
			ok, err := tableExists(ctx, q, table)
			if err != nil || !ok {
				return nil, err
			}
		}
		rows, err := q.QueryContext(ctx, query, start, end, limit)
		if err != nil {
			return nil, fmt.Errorf("querying categories: %w", err)
		}
		defer rows.Close()

		var cats []metric.Category
		for rows.Next() {
			var c metric.Category
			if err := rows.Scan(&c.Label, &c.Value); err != nil {
				return nil, fmt.Errorf("scanning categories: %w", err)
			}
			cats = append(cats, c)
		}
		return cats, rows.Err()
	}
}

func monthlyQuery(query string) func(context.Context, queryer, string, string) ([]metric.TrendPoint, error) {
	return func(ctx context.Context, q queryer, start, end string) ([]metric.TrendPoint, error) {
		rows, err := q.QueryContext(ctx, query, start, end)
		if err != nil {
			return nil, fmt.Errorf("querying monthly series: %w", err)
		}
		defer rows.Close()

		var series []metric.TrendPoint
		for rows.Next() {
			var p metric.TrendPoint
			if err := rows.Scan(&p.Period, &p.Value); err != nil {
				return nil, fmt.Errorf("scanning monthly series: %w", err)
			}
			series = append(series, p)
		}
		return series, rows.Err()
	}
}
