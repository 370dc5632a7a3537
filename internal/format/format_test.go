package format

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		value, denom float64
		window       string
		want         string
	}{
		{50, 200, "last 30d", "25.0% (last 30d)"},
		{1, 3, "last 7d", "33.3% (last 7d)"},
		{5, 0, "last 90d", "0% (last 90d)"},
	}
	for _, tt := range tests {
		if got := Percent(tt.value, tt.denom, tt.window); got != tt.want {
			t.Errorf("Percent(%v, %v) = %q, want %q", tt.value, tt.denom, got, tt.want)
		}
	}
}

func TestMinutes(t *testing.T) {
	if got := Minutes(125, "last week"); got != "2h 5m (last week)" {
		t.Errorf("got %q", got)
	}
	if got := Minutes(45, "last 7d"); got != "45m (last 7d)" {
		t.Errorf("got %q", got)
	}
	if got := Minutes(60, "last 7d"); got != "1h 0m (last 7d)" {
		t.Errorf("got %q", got)
	}
}

func TestCount(t *testing.T) {
	if got := Count(12, "tasks", "last 7d"); got != "12 tasks (last 7d)" {
		t.Errorf("got %q", got)
	}
}

func TestValueDispatchesOnUnit(t *testing.T) {
	if got := Value(90, "minutes", "last 30d"); got != "1h 30m (last 30d)" {
		t.Errorf("got %q", got)
	}
	if got := Value(8000, "steps", "last 30d"); got != "8000 steps (last 30d)" {
		t.Errorf("got %q", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(0.12345, 3); got != 0.123 {
		t.Errorf("got %v", got)
	}
	if got := Round(0.666, 2); got != 0.67 {
		t.Errorf("got %v", got)
	}
}
