// Package syncer writes Toggl task durations into the "Time Spent" field of
// the matching GitHub project items.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrisonrobin/toggl2github/pkg/config"
	"github.com/harrisonrobin/toggl2github/pkg/github"
	"github.com/harrisonrobin/toggl2github/pkg/toggl"
)

// TimeSpentField is the board field that receives the hours.
const TimeSpentField = "Time Spent"

// Credentials are the settings a sync needs.
type Credentials struct {
	WorkspaceID   int64
	TogglUser     string
	TogglPassword string
	GHUser        string
	GHToken       string
}

// LoadCredentials reads every setting Sync depends on.
func LoadCredentials(store *config.Store) (*Credentials, error) {
	vals, err := store.Get(
		config.TogglWorkspaceID,
		config.TogglUser,
		config.TogglPassword,
		config.GHUser,
		config.GHToken,
	)
	if err != nil {
		return nil, err
	}
	wid, err := vals.Int64(config.TogglWorkspaceID)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		WorkspaceID:   wid,
		TogglUser:     vals.String(config.TogglUser),
		TogglPassword: vals.String(config.TogglPassword),
		GHUser:        vals.String(config.GHUser),
		GHToken:       vals.String(config.GHToken),
	}, nil
}

// TimeTracker is the read side: Toggl projects and their tasks.
type TimeTracker interface {
	FindProject(ctx context.Context, workspaceID int64, name string) (*toggl.Project, error)
	ListTasks(ctx context.Context, project *toggl.Project) ([]toggl.Task, error)
}

// Board is the write side: a GitHub project.
type Board interface {
	ListItems(ctx context.Context, number int) ([]github.Item, error)
	SetFieldValue(ctx context.Context, number int, issueTitle, fieldName string, ft github.FieldType, value string) error
}

// MatchKey joins a task to a board item.
type MatchKey struct {
	Number int
	Title  string
}

var descriptionRe = regexp.MustCompile(`(?i)^#(\d+) (.+)`)

// ParseMatchKey reads "#<number> <title>" from a task description.
func ParseMatchKey(description string) (MatchKey, bool) {
	m := descriptionRe.FindStringSubmatch(description)
	if m == nil {
		return MatchKey{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return MatchKey{}, false
	}
	return MatchKey{Number: n, Title: m[2]}, true
}

// Matches compares issue number exactly and title ignoring case.
func (k MatchKey) Matches(it github.Item) bool {
	return it.Number != nil && *it.Number == k.Number && strings.EqualFold(it.Title, k.Title)
}

// Hours converts seconds to whole hours, rounding half to even.
func Hours(seconds int64) int {
	return int(math.RoundToEven(float64(seconds) / 3600))
}

// Report counts what one Sync did with each task.
type Report struct {
	Updated   int
	NotFound  int
	Skipped   int
	Unmatched int
}

func (r Report) String() string {
	return fmt.Sprintf("%d updated, %d skipped, %d without issue, %d not named after an issue",
		r.Updated, r.Skipped, r.NotFound, r.Unmatched)
}

// Engine runs syncs for one Toggl workspace and one GitHub user.
type Engine struct {
	tracker     TimeTracker
	board       Board
	workspaceID int64
	boardUser   string
	logger      *slog.Logger
}

func New(tracker TimeTracker, board Board, workspaceID int64, boardUser string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tracker:     tracker,
		board:       board,
		workspaceID: workspaceID,
		boardUser:   boardUser,
		logger:      logger,
	}
}

// Sync sets "Time Spent" on every item of project number that matches a task
// of the named Toggl project and is assigned to the board user alone. Items
// updated before an error stay updated.
func (e *Engine) Sync(ctx context.Context, togglProject string, number int) (Report, error) {
	var report Report

	project, err := e.tracker.FindProject(ctx, e.workspaceID, togglProject)
	if err != nil {
		return report, err
	}
	tasks, err := e.tracker.ListTasks(ctx, project)
	if err != nil {
		return report, err
	}
	items, err := e.board.ListItems(ctx, number)
	if err != nil {
		return report, err
	}

	for _, task := range tasks {
		key, ok := ParseMatchKey(task.Description)
		if !ok {
			e.logger.Debug("task is not named after an issue", "task", task.Description)
			report.Unmatched++
			continue
		}

		item, found := findItem(items, key)
		if !found {
			e.logger.Info("no issue found for "+key.Title, "issue", key.Number)
			report.NotFound++
			continue
		}

		if n := countTitle(items, item.Title); n > 1 {
			e.logger.Info("skipping issue", "issue", key.Number, "title", item.Title,
				"reason", "title shared by several items", "items", n)
			report.Skipped++
			continue
		}

		if reason := e.skipReason(item); reason != "" {
			e.logger.Info("skipping issue", "issue", key.Number, "title", item.Title, "reason", reason)
			report.Skipped++
			continue
		}

		hours := Hours(task.Duration())
		if err := e.board.SetFieldValue(ctx, number, item.Title, TimeSpentField, github.FieldNumber, strconv.Itoa(hours)); err != nil {
			return report, fmt.Errorf("failed to update %q: %w", item.Title, err)
		}
		e.logger.Info("updated time spent", "issue", key.Number, "title", item.Title,
			"hours", hours, "seconds", task.Duration())
		report.Updated++
	}
	return report, nil
}

func findItem(items []github.Item, key MatchKey) (github.Item, bool) {
	for _, it := range items {
		if key.Matches(it) {
			return it, true
		}
	}
	return github.Item{}, false
}

// countTitle counts items titled exactly title. The board updates items by
// title, so a shared title cannot be written safely.
func countTitle(items []github.Item, title string) int {
	n := 0
	for _, it := range items {
		if it.Title == title {
			n++
		}
	}
	return n
}

// skipReason explains why item must not be written, or returns "".
func (e *Engine) skipReason(item github.Item) string {
	if item.Assignees == nil {
		return "no assignee information"
	}
	assigned := false
	for _, login := range item.Assignees {
		if strings.EqualFold(login, e.boardUser) {
			assigned = true
			break
		}
	}
	switch {
	case assigned && len(item.Assignees) > 1:
		return "more than one person assigned"
	case !assigned:
		return "not assigned to " + e.boardUser
	default:
		return ""
	}
}
