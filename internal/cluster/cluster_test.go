package cluster

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		label string
		want  []string
	}{
		{"Learning Portuguese", []string{"learning", "portuguese"}},
		{"portuguese_practice", []string{"portuguese", "practice"}},
		{"Health/Fitness - Gym", []string{"health", "fitness", "gym"}},
		{"The Project of the Year", []string{"year"}},
		{"todo", nil},
		{"Deep\u00a0Work", []string{"deep", "work"}},
		{"Deep\vWork\fBlock", []string{"deep", "work", "block"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.label)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.label, diff)
		}
	}
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"learning": true, "portuguese": true}
	b := map[string]bool{"portuguese": true, "practice": true}
	if got := Jaccard(a, b); got < 0.333 || got > 0.334 {
		t.Errorf("expected 1/3, got %v", got)
	}
	if got := Jaccard(map[string]bool{}, map[string]bool{}); got != 0 {
		t.Errorf("expected 0 for empty sets, got %v", got)
	}
}

func TestThemesMergeSharedTokens(t *testing.T) {
	c := NewClusterer(DefaultSimilarity, 5)
	themes := c.Themes([]Candidate{
		{Label: "Learning Portuguese", Value: 50, Source: "asana", Recency: 1},
		{Label: "Gym", Value: 20, Source: "habitica", Recency: 1},
		{Label: "portuguese_practice", Value: 30, Source: "habitica", Recency: 1},
	})

	if len(themes) != 2 {
		t.Fatalf("expected 2 themes, got %d: %+v", len(themes), themes)
	}
	want := Theme{
		Theme:      "learning / portuguese / practice",
		SharePct:   80,
		Sources:    []string{"asana", "habitica"},
		Examples:   []string{"Learning Portuguese", "portuguese_practice"},
		Relevance:  0.8,
		Lifecycle:  Active,
		Trajectory: Rising,
	}
	if diff := cmp.Diff(want, themes[0]); diff != "" {
		t.Errorf("portuguese theme mismatch (-want +got):\n%s", diff)
	}
	if themes[1].Theme != "gym" || themes[1].SharePct != 20 {
		t.Errorf("expected gym as its own theme, got %+v", themes[1])
	}
}

func TestThemesExcludeNoise(t *testing.T) {
	c := NewClusterer(0, 0)
	themes := c.Themes([]Candidate{
		{Label: "Writing", Value: 99, Source: "toggl", Recency: 1},
		{Label: "Chess", Value: 1, Source: "habitica", Recency: 1},
	})
	if len(themes) != 1 || themes[0].Theme != "writing" {
		t.Errorf("expected only the writing theme, got %+v", themes)
	}
}

func TestThemesOrderedByRelevanceAndTruncated(t *testing.T) {
	c := NewClusterer(DefaultSimilarity, 2)
	themes := c.Themes([]Candidate{
		{Label: "Reading", Value: 60, Source: "toggl", Recency: 0.2},
		{Label: "Running", Value: 30, Source: "google_fit", Recency: 1},
		{Label: "Cooking", Value: 10, Source: "habitica", Recency: 1},
	})
	if len(themes) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(themes))
	}
	// running 0.3 > reading 0.12 = cooking 0.1
	if themes[0].Theme != "running" || themes[1].Theme != "reading" {
		t.Errorf("unexpected order: %s, %s", themes[0].Theme, themes[1].Theme)
	}
}

func TestClusterStopwordOnlyLabel(t *testing.T) {
	c := NewClusterer(DefaultSimilarity, 5)
	clusters := c.Cluster([]Candidate{{Label: "The Task", Value: 3, Source: "asana", Recency: 1}})
	if len(clusters) != 1 || !clusters[0].Tokens["the task"] {
		t.Errorf("expected fallback token set, got %+v", clusters)
	}
}

func TestClusterKeepsMaxRecency(t *testing.T) {
	c := NewClusterer(DefaultSimilarity, 5)
	clusters := c.Cluster([]Candidate{
		{Label: "Deep Work", Value: 10, Source: "toggl", Recency: 0.2},
		{Label: "deep-work", Value: 5, Source: "asana", Recency: 0.9},
	})
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}
	if clusters[0].Recency != 0.9 || clusters[0].Total != 15 {
		t.Errorf("unexpected cluster %+v", clusters[0])
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		share, recency        float64
		lifecycle, trajectory string
	}{
		{0.01, 1, Noise, Stable},
		{0.5, 0.5, Active, Rising},
		{0.5, 0.3, Active, Rising},
		{0.5, 0.2, Paused, Stable},
		{0.2, 0.06, Consolidated, Stable},
		{0.06, 0.06, Noise, Stable},
		{0.2, 0.01, Abandoned, Fading},
		{0.03, 0.01, Noise, Fading},
	}
	for _, tt := range tests {
		l, tr := Classify(tt.share, tt.recency)
		if l != tt.lifecycle || tr != tt.trajectory {
			t.Errorf("Classify(%v, %v) = %s/%s, want %s/%s",
				tt.share, tt.recency, l, tr, tt.lifecycle, tt.trajectory)
		}
	}
}

func TestRelevanceFloorsShare(t *testing.T) {
	if got := Relevance(0.001, 0.5); got != 0.005 {
		t.Errorf("expected share floor of 0.01, got %v", got)
	}
}
