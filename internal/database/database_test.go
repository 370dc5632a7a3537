package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/TobiSchelling/Pulse/internal/metric"
)

func openEmptyDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db := openEmptyDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedAsana(t *testing.T, db *DB) {
	t.Helper()
	err := db.InsertAsanaItems(context.Background(), []AsanaItem{
		{Name: "a", Project: "Learning Portuguese", Completed: true, Date: "2026-02-27"},
		{Name: "b", Project: "Learning Portuguese", Completed: true, Date: "2026-02-27 18:30:00"},
		{Name: "c", Project: "Home", Completed: true, Date: "2026-02-28"},
		{Name: "d", Project: "Home", Completed: false, Date: "2026-02-28"},
		{Name: "e", Project: "", Completed: true, Date: "2026-01-30"},
		{Name: "f", Project: "Home", Completed: true, Date: "2026-01-29"},
		{Name: "g", Project: "Home", Completed: true, Date: "2026-03-01"},
	})
	if err != nil {
		t.Fatalf("seeding asana: %v", err)
	}
}

func TestTotalsHalfOpen(t *testing.T) {
	db := openTestDB(t)
	seedAsana(t, db)

	got, err := db.Totals(context.Background(), "asana", day("2026-01-30"), day("2026-03-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected totals")
	}
	if got.Value != 4 || got.CoverageDays != 3 {
		t.Errorf("expected 4 tasks over 3 days, got %+v", *got)
	}
}

func TestTotalsEmptyWindow(t *testing.T) {
	db := openTestDB(t)
	got, err := db.Totals(context.Background(), "toggl", day("2025-01-01"), day("2025-02-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Value != 0 || got.CoverageDays != 0 {
		t.Errorf("expected zero totals for an existing empty table, got %+v", got)
	}
}

func TestMissingTableYieldsEmptyResults(t *testing.T) {
	db := openEmptyDB(t)
	ctx := context.Background()
	start, end := day("2026-01-01"), day("2026-02-01")

	totals, err := db.Totals(ctx, "asana", start, end)
	if err != nil || totals != nil {
		t.Errorf("expected nil totals without error, got %+v, %v", totals, err)
	}
	series, err := db.DailySeries(ctx, "toggl", start, end)
	if err != nil || len(series) != 0 {
		t.Errorf("expected empty series, got %+v, %v", series, err)
	}
	cats, err := db.TopCategories(ctx, "habitica", start, end, 5)
	if err != nil || len(cats) != 0 {
		t.Errorf("expected no categories, got %+v, %v", cats, err)
	}
	monthly, err := db.MonthlySeries(ctx, "google_fit", start, end)
	if err != nil || len(monthly) != 0 {
		t.Errorf("expected empty monthly series, got %+v, %v", monthly, err)
	}
}

func TestUnknownSource(t *testing.T) {
	db := openTestDB(t)
	totals, err := db.Totals(context.Background(), "strava", day("2026-01-01"), day("2026-02-01"))
	if err != nil || totals != nil {
		t.Errorf("expected nil totals for unknown source, got %+v, %v", totals, err)
	}
	if _, ok := db.Describe("strava"); ok {
		t.Error("expected unknown source to be undescribed")
	}
}

func TestDailySeries(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertTogglItems(context.Background(), []TogglItem{
		{ProjectName: "Writing", StartTime: "2026-02-10 09:00:00", DurationMinutes: 30},
		{ProjectName: "Writing", StartTime: "2026-02-10 14:00:00", DurationMinutes: 45},
		{ProjectName: "Admin", StartTime: "2026-02-12T08:00:00", DurationMinutes: 15},
	})
	if err != nil {
		t.Fatalf("seeding toggl: %v", err)
	}

	got, err := db.DailySeries(context.Background(), "toggl", day("2026-02-01"), day("2026-03-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []metric.DailyPoint{
		{Day: day("2026-02-10"), Value: 75},
		{Day: day("2026-02-12"), Value: 15},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("daily series mismatch (-want +got):\n%s", diff)
	}
}

func TestTopCategories(t *testing.T) {
	db := openTestDB(t)
	seedAsana(t, db)

	got, err := db.TopCategories(context.Background(), "asana", day("2026-01-01"), day("2026-03-01"), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []metric.Category{
		{Label: "Home", Value: 2},
		{Label: "Learning Portuguese", Value: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestGoogleFitCategoriesNeedGeneralTable(t *testing.T) {
	db := openEmptyDB(t)
	ctx := context.Background()
	if _, err := db.conn.Exec("CREATE TABLE google_fit_steps (id INTEGER PRIMARY KEY, timestamp TEXT, steps INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	cats, err := db.TopCategories(ctx, "google_fit", day("2026-01-01"), day("2026-02-01"), 5)
	if err != nil || cats != nil {
		t.Errorf("expected no categories without google_fit_general, got %+v, %v", cats, err)
	}
}

func TestMonthlySeriesLatestFirst(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertStepSamples(context.Background(), []StepSample{
		{Timestamp: "2026-01-05 10:00:00", Steps: 4000},
		{Timestamp: "2026-01-06 10:00:00", Steps: 6000},
		{Timestamp: "2026-02-01 10:00:00", Steps: 3000},
	})
	if err != nil {
		t.Fatalf("seeding steps: %v", err)
	}

	got, err := db.MonthlySeries(context.Background(), "google_fit", day("2025-12-01"), day("2026-03-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []metric.TrendPoint{{Period: "2026-02", Value: 3000}, {Period: "2026-01", Value: 10000}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("monthly mismatch (-want +got):\n%s", diff)
	}
}

func TestStatus(t *testing.T) {
	db := openEmptyDB(t)
	ctx := context.Background()
	if _, err := db.conn.Exec("CREATE TABLE habitica_items (id INTEGER PRIMARY KEY, item_name TEXT, completed INTEGER, date_completed TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.conn.Exec("INSERT INTO habitica_items (item_name, completed, date_completed) VALUES ('Read', 1, '2026-02-01')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	statuses, err := db.Status(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []SourceStatus{
		{Name: "asana", Missing: []string{"asana_items"}},
		{Name: "google_fit", Missing: []string{"google_fit_steps"}},
		{Name: "habitica", Present: true, Rows: 1},
		{Name: "toggl", Missing: []string{"toggl_items"}},
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	want := []string{"asana", "google_fit", "habitica", "toggl"}
	if diff := cmp.Diff(want, DefaultRegistry().Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
