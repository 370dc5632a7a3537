package database

import (
	"context"
	"fmt"
	"time"

	"github.com/TobiSchelling/Pulse/internal/metric"
	"github.com/TobiSchelling/Pulse/internal/window"
)

// Describe returns the metadata of a registered source.
func (db *DB) Describe(source string) (metric.SourceInfo, bool) {
	s, ok := db.registry[source]
	return s.SourceInfo, ok
}

// available resolves a source strategy and checks its backing tables.
// It returns false without error for unknown sources or missing tables.
func (db *DB) available(ctx context.Context, source string) (Strategy, bool, error) {
	s, ok := db.registry[source]
	if !ok {
		return Strategy{}, false, nil
	}
	for _, t := range s.Tables {
		exists, err := db.TableExists(ctx, t)
		if err != nil {
			return Strategy{}, false, err
		}
		if !exists {
			return Strategy{}, false, nil
		}
	}
	return s, true, nil
}

// Totals returns the scalar aggregate and coverage days for [start, end).
// It returns nil when the source is unknown or its tables are absent.
func (db *DB) Totals(ctx context.Context, source string, start, end time.Time) (*metric.Totals, error) {
	s, ok, err := db.available(ctx, source)
	if err != nil || !ok {
		return nil, err
	}
	t, err := s.Totals(ctx, db.conn, window.FormatDate(start), window.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &t, nil
}

// DailySeries returns one point per active day in [start, end).
func (db *DB) DailySeries(ctx context.Context, source string, start, end time.Time) ([]metric.DailyPoint, error) {
	s, ok, err := db.available(ctx, source)
	if err != nil || !ok {
		return nil, err
	}
	series, err := s.Daily(ctx, db.conn, window.FormatDate(start), window.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return series, nil
}

// TopCategories returns the largest categories in [start, end), biggest first.
func (db *DB) TopCategories(ctx context.Context, source string, start, end time.Time, limit int) ([]metric.Category, error) {
	s, ok, err := db.available(ctx, source)
	if err != nil || !ok {
		return nil, err
	}
	cats, err := s.Categories(ctx, db.conn, window.FormatDate(start), window.FormatDate(end), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return cats, nil
}

// MonthlySeries returns per-month totals in [start, end), latest month first.
func (db *DB) MonthlySeries(ctx context.Context, source string, start, end time.Time) ([]metric.TrendPoint, error) {
	s, ok, err := db.available(ctx, source)
	if err != nil || !ok {
		return nil, err
	}
	series, err := s.Monthly(ctx, db.conn, window.FormatDate(start), window.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return series, nil
}

// SourceStatus reports what the database holds for one source.
type SourceStatus struct {
	Name    string
	Present bool
	Missing []string
	Rows    int
}

// Status inspects every registered source's tables.
func (db *DB) Status(ctx context.Context) ([]SourceStatus, error) {
	var out []SourceStatus
	for _, name := range db.registry.Names() {
		s := db.registry[name]
		st := SourceStatus{Name: name, Present: true}
		for _, t := range s.Tables {
			exists, err := db.TableExists(ctx, t)
			if err != nil {
				return nil, err
			}
			if !exists {
				st.Present = false
				st.Missing = append(st.Missing, t)
				continue
			}
			var n int
			// Table names come from the registry, never from input.
			if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
				return nil, fmt.Errorf("counting %s: %w", t, err)
			}
			st.Rows += n
		}
		out = append(out, st)
	}
	return out, nil
}
