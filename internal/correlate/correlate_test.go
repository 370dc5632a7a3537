package correlate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TobiSchelling/Pulse/internal/metric"
)

func series(pairs ...any) []metric.TrendPoint {
	var out []metric.TrendPoint
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, metric.TrendPoint{Period: pairs[i].(string), Value: pairs[i+1].(float64)})
	}
	return out
}

func TestPearsonPerfectLinear(t *testing.T) {
	a := series("2026-01", 1.0, "2026-02", 2.0, "2026-03", 3.0, "2026-04", 4.0)
	b := series("2026-01", 10.0, "2026-02", 20.0, "2026-03", 30.0, "2026-04", 40.0)
	r, n, err := Pearson(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 1.0 || n != 4 {
		t.Errorf("expected r=1.0 over 4 points, got %v over %d", r, n)
	}
}

func TestPearsonNegative(t *testing.T) {
	a := series("2026-01", 1.0, "2026-02", 2.0, "2026-03", 3.0)
	b := series("2026-03", 1.0, "2026-02", 2.0, "2026-01", 3.0)
	r, _, err := Pearson(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != -1.0 {
		t.Errorf("expected r=-1.0 after alignment, got %v", r)
	}
}

func TestPearsonInsufficientAligned(t *testing.T) {
	a := series("2026-01", 1.0, "2026-02", 2.0, "2026-03", 3.0)
	b := series("2026-01", 5.0, "2026-02", 6.0, "2025-12", 7.0)
	_, n, err := Pearson(a, b)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 aligned points, got %d", n)
	}
}

func TestPearsonZeroVariance(t *testing.T) {
	a := series("2026-01", 5.0, "2026-02", 5.0, "2026-03", 5.0)
	b := series("2026-01", 1.0, "2026-02", 2.0, "2026-03", 3.0)
	if _, _, err := Pearson(a, b); !errors.Is(err, ErrZeroVariance) {
		t.Errorf("expected ErrZeroVariance, got %v", err)
	}
}

func TestAnalyzerSkipsSparsePairs(t *testing.T) {
	monthly := map[string][]metric.TrendPoint{
		"google_fit": series("2026-01", 1000.0, "2026-02", 2000.0, "2026-03", 4000.0),
		"asana":      series("2026-01", 2.0, "2026-02", 4.0, "2026-03", 8.0),
		"toggl":      series("2026-01", 60.0),
	}
	names := map[string]string{"google_fit": "steps", "asana": "tasks_completed", "toggl": "minutes_tracked"}
	a := NewAnalyzer([]Pair{{A: "google_fit", B: "asana"}, {A: "google_fit", B: "toggl"}, {A: "habitica", B: "asana"}})

	got := a.Analyze(monthly, names)
	want := []Correlation{{Pair: "steps_vs_tasks_completed", R: 1, Sources: []string{"google_fit", "asana"}, Points: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("correlations mismatch (-want +got):\n%s", diff)
	}
}
