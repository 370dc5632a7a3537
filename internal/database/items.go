package database

import (
	"context"
	"fmt"
)

// AsanaItem is one task row.
type AsanaItem struct {
	Name      string
	Project   string
	Completed bool
	Date      string
}

// TogglItem is one time entry.
type TogglItem struct {
	Description     string
	ProjectName     string
	StartTime       string
	DurationMinutes float64
}

// HabiticaItem is one habit, daily or todo completion.
type HabiticaItem struct {
	ItemName      string
	ItemType      string
	Tags          string
	DateCompleted string
	Completed     bool
}

// StepSample is one google_fit_steps row.
type StepSample struct {
	Timestamp string
	Steps     int
}

// FitRecord is one google_fit_general row.
type FitRecord struct {
	DataType string
	Value    float64
	Date     string
}

// InsertAsanaItems writes task rows in a single transaction.
func (db *DB) InsertAsanaItems(ctx context.Context, items []AsanaItem) error {
	return db.insertAll(ctx, "asana_items", len(items),
		"INSERT INTO asana_items (name, project, completed, date) VALUES (?, ?, ?, ?)",
		func(i int) []any {
			it := items[i]
			return []any{it.Name, it.Project, boolInt(it.Completed), it.Date}
		})
}

// InsertTogglItems writes time entries in a single transaction.
func (db *DB) InsertTogglItems(ctx context.Context, items []TogglItem) error {
	return db.insertAll(ctx, "toggl_items", len(items),
		"INSERT INTO toggl_items (description, project_name, start_time, duration_minutes) VALUES (?, ?, ?, ?)",
		func(i int) []any {
			it := items[i]
			return []any{it.Description, it.ProjectName, it.StartTime, it.DurationMinutes}
		})
}

// InsertHabiticaItems writes habit completions in a single transaction.
func (db *DB) InsertHabiticaItems(ctx context.Context, items []HabiticaItem) error {
	return db.insertAll(ctx, "habitica_items", len(items),
		"INSERT INTO habitica_items (item_name, item_type, tags, date_completed, completed) VALUES (?, ?, ?, ?, ?)",
		func(i int) []any {
			it := items[i]
			return []any{it.ItemName, it.ItemType, it.Tags, it.DateCompleted, boolInt(it.Completed)}
		})
}

// InsertStepSamples writes step counts in a single transaction.
func (db *DB) InsertStepSamples(ctx context.Context, samples []StepSample) error {
	return db.insertAll(ctx, "google_fit_steps", len(samples),
		"INSERT INTO google_fit_steps (timestamp, steps) VALUES (?, ?)",
		func(i int) []any { return []any{samples[i].Timestamp, samples[i].Steps} })
}

// InsertFitRecords writes general fitness records in a single transaction.
func (db *DB) InsertFitRecords(ctx context.Context, records []FitRecord) error {
	return db.insertAll(ctx, "google_fit_general", len(records),
		"INSERT INTO google_fit_general (data_type, value, date) VALUES (?, ?, ?)",
		func(i int) []any { return []any{records[i].DataType, records[i].Value, records[i].Date} })
}

func (db *DB) insertAll(ctx context.Context, table string, n int, query string, args func(int) []any) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert %s: %w", table, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
