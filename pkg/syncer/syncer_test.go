package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/toggl2github/pkg/config"
	"github.com/harrisonrobin/toggl2github/pkg/github"
	"github.com/harrisonrobin/toggl2github/pkg/toggl"
	"github.com/harrisonrobin/toggl2github/pkg/vault"
)

type fakeTracker struct {
	projects map[string]*toggl.Project
	tasks    []toggl.Task
}

func (f *fakeTracker) FindProject(_ context.Context, _ int64, name string) (*toggl.Project, error) {
	p, ok := f.projects[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, toggl.ErrProjectNotFound)
	}
	return p, nil
}

func (f *fakeTracker) ListTasks(context.Context, *toggl.Project) ([]toggl.Task, error) {
	return f.tasks, nil
}

type setCall struct {
	Number    int
	Title     string
	Field     string
	FieldType github.FieldType
	Value     string
}

type fakeBoard struct {
	items   []github.Item
	listErr error
	setErr  error
	calls   []setCall
}

func (f *fakeBoard) ListItems(context.Context, int) ([]github.Item, error) {
	return f.items, f.listErr
}

func (f *fakeBoard) SetFieldValue(_ context.Context, number int, title, field string, ft github.FieldType, value string) error {
	f.calls = append(f.calls, setCall{number, title, field, ft, value})
	return f.setErr
}

func task(desc string, seconds ...int64) toggl.Task {
	start := time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC)
	t := toggl.Task{Description: desc}
	for i, s := range seconds {
		begin := start.Add(time.Duration(i) * 24 * time.Hour)
		stop := begin.Add(time.Duration(s) * time.Second)
		t.Entries = append(t.Entries, toggl.Entry{ID: int64(i), Description: desc, Start: begin, Stop: &stop})
	}
	return t
}

func issueItem(number int, title string, assignees ...string) github.Item {
	if assignees == nil {
		assignees = []string{}
	}
	return github.Item{ID: fmt.Sprintf("PVTI_%d", number), Title: title, Number: &number, Assignees: assignees}
}

func newEngine(tasks []toggl.Task, items []github.Item, user string) (*Engine, *fakeBoard, *bytes.Buffer) {
	tracker := &fakeTracker{
		projects: map[string]*toggl.Project{"NNL": {ID: 1, Name: "NNL"}},
		tasks:    tasks,
	}
	board := &fakeBoard{items: items}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(tracker, board, 9, user, logger), board, &logs
}

func TestSync_UpdatesSoleAssignee(t *testing.T) {
	engine, board, _ := newEngine(
		[]toggl.Task{task("#42 Fix login bug", 3600, 3600)},
		[]github.Item{issueItem(42, "Fix login bug", "bob")},
		"bob",
	)

	report, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)

	assert.Equal(t, []setCall{{1, "Fix login bug", "Time Spent", github.FieldNumber, "2"}}, board.calls)
	assert.Equal(t, 1, report.Updated)
}

func TestSync_TitleComparisonIgnoresCase(t *testing.T) {
	engine, board, _ := newEngine(
		[]toggl.Task{task("#42 fix LOGIN bug", 7200)},
		[]github.Item{issueItem(42, "Fix login bug", "bob")},
		"bob",
	)

	_, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	require.Len(t, board.calls, 1)
	assert.Equal(t, "Fix login bug", board.calls[0].Title, "the board's own title is written back")
}

func TestSync_SkipsSharedAssignment(t *testing.T) {
	engine, board, logs := newEngine(
		[]toggl.Task{task("#42 Fix login bug", 7200)},
		[]github.Item{issueItem(42, "Fix login bug", "alice", "bob")},
		"bob",
	)

	report, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.Contains(t, logs.String(), "more than one person assigned")
	assert.Equal(t, 1, report.Skipped)
}

func TestSync_SkipsWhenNotAssigned(t *testing.T) {
	engine, board, logs := newEngine(
		[]toggl.Task{task("#42 Fix login bug", 7200)},
		[]github.Item{issueItem(42, "Fix login bug", "alice")},
		"bob",
	)

	_, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.Contains(t, logs.String(), "not assigned to bob")
}

func TestSync_SkipsUnassignedIssue(t *testing.T) {
	engine, board, logs := newEngine(
		[]toggl.Task{task("#42 Fix login bug", 7200)},
		[]github.Item{issueItem(42, "Fix login bug")},
		"bob",
	)

	_, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.Contains(t, logs.String(), "not assigned to bob")
}

func TestSync_SkipsItemWithoutAssigneeMetadata(t *testing.T) {
	item := issueItem(42, "Fix login bug")
	item.Assignees = nil
	engine, board, logs := newEngine([]toggl.Task{task("#42 Fix login bug", 7200)}, []github.Item{item}, "bob")

	_, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.Contains(t, logs.String(), "no assignee information")
}

func TestSync_IgnoresTasksNotNamedAfterIssue(t *testing.T) {
	engine, board, logs := newEngine(
		[]toggl.Task{task("Miscellaneous notes", 7200)},
		[]github.Item{issueItem(42, "Miscellaneous notes", "bob")},
		"bob",
	)

	report, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.NotContains(t, logs.String(), "no issue found")
	assert.Equal(t, 1, report.Unmatched)
}

func TestSync_NoIssueFound(t *testing.T) {
	engine, board, logs := newEngine(
		[]toggl.Task{task("#42 Fix login bug", 7200)},
		[]github.Item{issueItem(41, "Fix login bug", "bob"), issueItem(43, "Fix login bug", "bob")},
		"bob",
	)

	report, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.Contains(t, logs.String(), "no issue found for Fix login bug")
	assert.Equal(t, 1, report.NotFound)
}

func TestSync_DraftItemsNeverMatch(t *testing.T) {
	draft := github.Item{ID: "PVTI_d", Title: "Fix login bug"}
	engine, board, _ := newEngine([]toggl.Task{task("#42 Fix login bug", 7200)}, []github.Item{draft}, "bob")

	_, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
}

func TestSync_UnknownProjectIsFatal(t *testing.T) {
	engine, board, _ := newEngine(nil, nil, "bob")

	_, err := engine.Sync(context.Background(), "Nope", 1)
	assert.ErrorIs(t, err, toggl.ErrProjectNotFound)
	assert.Empty(t, board.calls)
}

func TestSync_BoardFetchErrorMeansNoMutation(t *testing.T) {
	engine, board, _ := newEngine([]toggl.Task{task("#42 Fix login bug", 7200)}, nil, "bob")
	board.listErr = errors.New("boom")

	_, err := engine.Sync(context.Background(), "NNL", 1)
	assert.Error(t, err)
	assert.Empty(t, board.calls)
}

func TestSync_MutationErrorStopsRun(t *testing.T) {
	engine, board, _ := newEngine(
		[]toggl.Task{task("#1 A", 3600), task("#2 B", 3600)},
		[]github.Item{issueItem(1, "A", "bob"), issueItem(2, "B", "bob")},
		"bob",
	)
	board.setErr = errors.New("boom")

	_, err := engine.Sync(context.Background(), "NNL", 1)
	assert.Error(t, err)
	assert.Len(t, board.calls, 1)
}

func TestSync_Idempotent(t *testing.T) {
	tasks := []toggl.Task{task("#42 Fix login bug", 5400), task("#7 Docs", 600)}
	items := []github.Item{issueItem(42, "Fix login bug", "bob"), issueItem(7, "Docs", "bob")}
	engine, board, _ := newEngine(tasks, items, "bob")

	_, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	first := append([]setCall(nil), board.calls...)
	board.calls = nil

	_, err = engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Equal(t, first, board.calls)
}

func TestParseMatchKey(t *testing.T) {
	key, ok := ParseMatchKey("#42 Fix login bug")
	require.True(t, ok)
	assert.Equal(t, MatchKey{Number: 42, Title: "Fix login bug"}, key)

	for _, desc := range []string{"Miscellaneous notes", "#42", "#42Fix", "see #42 Fix", "# 42 Fix"} {
		_, ok := ParseMatchKey(desc)
		assert.False(t, ok, desc)
	}
}

func TestHours_RoundsHalfToEven(t *testing.T) {
	assert.Equal(t, 2, Hours(7200))
	assert.Equal(t, 0, Hours(1799))
	assert.Equal(t, 0, Hours(1800))
	assert.Equal(t, 2, Hours(5400))
	assert.Equal(t, 2, Hours(9000))
	assert.Equal(t, 4, Hours(12600))
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	store := config.NewStore(filepath.Join(dir, "config.json"), vault.NewAgeFile(dir))
	require.NoError(t, store.Set(map[string]any{
		config.TogglWorkspaceID: "123456",
		config.TogglUser:        "me@example.com",
		config.TogglPassword:    "hunter2",
		config.GHUser:           "bob",
		config.GHToken:          "ghp_abc",
	}))

	creds, err := LoadCredentials(store)
	require.NoError(t, err)
	assert.Equal(t, &Credentials{
		WorkspaceID:   123456,
		TogglUser:     "me@example.com",
		TogglPassword: "hunter2",
		GHUser:        "bob",
		GHToken:       "ghp_abc",
	}, creds)
}

func TestLoadCredentials_MissingSettings(t *testing.T) {
	dir := t.TempDir()
	store := config.NewStore(filepath.Join(dir, "config.json"), vault.NewAgeFile(dir))

	_, err := LoadCredentials(store)
	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, config.MissingKeys, cfgErr.Kind)
}

func TestSync_SkipsTitleSharedByAnotherItem(t *testing.T) {
	engine, board, logs := newEngine(
		[]toggl.Task{task("#42 Fix login bug", 7200)},
		[]github.Item{issueItem(41, "Fix login bug", "alice"), issueItem(42, "Fix login bug", "bob")},
		"bob",
	)

	report, err := engine.Sync(context.Background(), "NNL", 1)
	require.NoError(t, err)
	assert.Empty(t, board.calls)
	assert.Contains(t, logs.String(), "title shared by several items")
	assert.Equal(t, 1, report.Skipped)
}
