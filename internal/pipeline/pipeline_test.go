package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/Pulse/internal/cluster"
	"github.com/TobiSchelling/Pulse/internal/compose"
	"github.com/TobiSchelling/Pulse/internal/config"
	"github.com/TobiSchelling/Pulse/internal/database"
	"github.com/TobiSchelling/Pulse/internal/llm"
	"github.com/TobiSchelling/Pulse/internal/window"
)

var today = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type mockProvider struct {
	configured bool
	reply      string
	err        error
	calls      [][]llm.Message
}

func (m *mockProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	m.calls = append(m.calls, messages)
	return m.reply, m.err
}

func (m *mockProvider) IsConfigured() bool { return m.configured }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "pulse.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	require.NoError(t, db.InsertTogglItems(ctx, []database.TogglItem{
		{Description: "lesson", ProjectName: "Portuguese Practice", StartTime: "2026-02-10 09:00:00", DurationMinutes: 60},
		{Description: "lesson", ProjectName: "Portuguese Practice", StartTime: "2026-02-11 09:00:00", DurationMinutes: 45},
		{Description: "drafting", ProjectName: "Writing", StartTime: "2026-02-12 09:00:00", DurationMinutes: 90},
		{Description: "lesson", ProjectName: "Portuguese Practice", StartTime: "2026-02-20 09:00:00", DurationMinutes: 30},
	}))
	require.NoError(t, db.InsertAsanaItems(ctx, []database.AsanaItem{
		{Name: "vocab list", Project: "Learning Portuguese", Completed: true, Date: "2026-02-10"},
		{Name: "chapter 2", Project: "Writing", Completed: true, Date: "2026-02-15"},
		{Name: "open", Project: "Writing", Completed: false, Date: "2026-02-16"},
	}))
	require.NoError(t, db.InsertStepSamples(ctx, []database.StepSample{
		{Timestamp: "2026-02-10 08:00:00", Steps: 6000},
		{Timestamp: "2026-02-11 08:00:00", Steps: 7000},
	}))
	return db
}

func newTestPipeline(t *testing.T, provider llm.Provider) *Pipeline {
	t.Helper()
	cfg := config.Default()
	return New(cfg, openTestDB(t), provider, nil)
}

func TestBuildContext(t *testing.T) {
	p := newTestPipeline(t, nil)

	c, err := p.BuildContext(context.Background(), window.LastMonth, today)
	require.NoError(t, err)

	_, err = uuid.Parse(c.RunID)
	assert.NoError(t, err, "run id should be a uuid")

	assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), compose.MaxContextChars+utf8.RuneCountInString(compose.TruncationMarker))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.Text), &doc))
	sources, ok := doc["sources"].(map[string]any)
	require.True(t, ok, "sources should be an object")
	assert.Contains(t, sources, "toggl")
	assert.Contains(t, sources, "asana")

	assert.Equal(t, "last_month", c.Payload.Period)
	assert.Equal(t, "2026-01-31", c.Payload.DateRange.Start)
	assert.Equal(t, "2026-03-01", c.Payload.DateRange.End)
	assert.Len(t, c.Payload.Sources, 4)
	assert.NotEmpty(t, c.Payload.Themes)
}

func TestBuildContextCancelled(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.BuildContext(ctx, window.LastMonth, today)
	assert.Error(t, err)
}

func TestProgressSummaryUsesProvider(t *testing.T) {
	provider := &mockProvider{configured: true, reply: "## Executive Summary\n- steady"}
	p := newTestPipeline(t, provider)

	ans, err := p.ProgressSummary(context.Background(), window.LastMonth, today)
	require.NoError(t, err)
	assert.False(t, ans.Fallback)
	assert.Equal(t, "## Executive Summary\n- steady", ans.Text)

	require.Len(t, provider.calls, 1)
	msgs := provider.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, ans.Context.Text)
	assert.Contains(t, msgs[1].Content, "Question: Produce a concise, data-grounded progress summary.")
}

func TestProgressSummaryFallsBackOnError(t *testing.T) {
	provider := &mockProvider{configured: true, err: errors.New("connection refused")}
	p := newTestPipeline(t, provider)

	ans, err := p.ProgressSummary(context.Background(), window.LastMonth, today)
	require.NoError(t, err)
	assert.True(t, ans.Fallback)
	assert.True(t, strings.HasPrefix(ans.Text, compose.FallbackHeader))
	assert.Contains(t, ans.Text, "- toggl:")
}

func TestUnconfiguredProviderFallsBack(t *testing.T) {
	provider := &mockProvider{configured: false}
	p := newTestPipeline(t, provider)

	ans, err := p.Ask(context.Background(), "how was February?", window.LastMonth, today)
	require.NoError(t, err)
	assert.True(t, ans.Fallback)
	assert.Empty(t, provider.calls)
}

func TestAskDefaultsEmptyQuestion(t *testing.T) {
	provider := &mockProvider{configured: true, reply: "ok"}
	p := newTestPipeline(t, provider)

	_, err := p.Ask(context.Background(), "   ", window.Last12Months, today)
	require.NoError(t, err)
	require.Len(t, provider.calls, 1)
	assert.True(t, strings.HasSuffix(provider.calls[0][1].Content, "Question: "+defaultQuestion))
}

func TestFocusNamesMatchingThemes(t *testing.T) {
	provider := &mockProvider{configured: true, err: errors.New("timeout")}
	p := newTestPipeline(t, provider)

	ans, err := p.Focus(context.Background(), "learning Portuguese", window.Last90, today)
	require.NoError(t, err)
	assert.True(t, ans.Fallback)
	assert.Contains(t, ans.Text, "Focus themes: ")
	assert.Contains(t, ans.Text, "portuguese")

	require.Len(t, provider.calls, 1)
	assert.Contains(t, provider.calls[0][1].Content, `topic "learning Portuguese"`)
}

func TestFocusRejectsEmptyTopic(t *testing.T) {
	p := newTestPipeline(t, nil)
	_, err := p.Focus(context.Background(), " ", window.Last90, today)
	assert.Error(t, err)
}

func TestMatchThemes(t *testing.T) {
	themes := []cluster.Theme{
		{Theme: "learning / portuguese / practice"},
		{Theme: "gym"},
		{Theme: "writing"},
	}
	assert.Equal(t, []string{"learning / portuguese / practice"}, MatchThemes(themes, "Portuguese"))
	assert.Equal(t, []string{"gym", "writing"}, MatchThemes(themes, "gym and writing"))
	assert.Empty(t, MatchThemes(themes, "the"))
}

func TestMatchThemesUsesExampleLabels(t *testing.T) {
	themes := []cluster.Theme{
		{Theme: "deep / focus / reading", Examples: []string{"Deep Focus", "Reading Portuguese Novels"}},
		{Theme: "gym", Examples: []string{"Gym"}},
	}
	assert.Equal(t, []string{"deep / focus / reading"}, MatchThemes(themes, "portuguese"))
}
