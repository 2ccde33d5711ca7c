package toggl

import "time"

// Project is a Toggl project as returned by the workspace projects endpoint.
type Project struct {
	ID              int64    `json:"id"`
	WorkspaceID     int64    `json:"workspace_id"`
	ClientID        *int64   `json:"client_id"`
	Name            string   `json:"name"`
	IsPrivate       bool     `json:"is_private"`
	Active          bool     `json:"active"`
	At              string   `json:"at"`
	CreatedAt       string   `json:"created_at"`
	ServerDeletedAt *string  `json:"server_deleted_at"`
	Color           string   `json:"color"`
	Billable        *bool    `json:"billable"`
	Template        *bool    `json:"template"`
	AutoEstimates   *bool    `json:"auto_estimates"`
	EstimatedHours  *int64   `json:"estimated_hours"`
	Rate            *float64 `json:"rate"`
	Currency        *string  `json:"currency"`
	Recurring       bool     `json:"recurring"`
	FixedFee        *float64 `json:"fixed_fee"`
	ActualHours     *int64   `json:"actual_hours"`
	ActualSeconds   *int64   `json:"actual_seconds"`
	StartDate       string   `json:"start_date"`
	Status          string   `json:"status"`
}

// Entry is one tracked interval.
type Entry struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	PID         *int64     `json:"pid"` // legacy alias of project_id
	UserID      int64      `json:"user_id"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Billable    bool       `json:"billable"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	// Running is set when the API returned no stop time. The client then
	// stamps Stop with the fetch time.
	Running bool `json:"-"`
}

// Project returns the entry's project id, or 0 when it has none.
func (e Entry) Project() int64 {
	switch {
	case e.ProjectID != nil:
		return *e.ProjectID
	case e.PID != nil:
		return *e.PID
	default:
		return 0
	}
}

// End returns Stop, or the current time for an entry that is still running.
func (e Entry) End() time.Time {
	if e.Stop != nil {
		return *e.Stop
	}
	return time.Now()
}

// Duration is End minus Start in whole seconds. The API's own duration field
// is ignored because it is negative for running entries.
func (e Entry) Duration() int64 {
	return int64(e.End().Sub(e.Start) / time.Second)
}

// Task is every entry of a project sharing one description.
type Task struct {
	Description string
	Entries     []Entry
}

// Start is the earliest entry start.
func (t Task) Start() time.Time {
	var start time.Time
	for i, e := range t.Entries {
		if i == 0 || e.Start.Before(start) {
			start = e.Start
		}
	}
	return start
}

// Stop is the latest entry end.
func (t Task) Stop() time.Time {
	var stop time.Time
	for i, e := range t.Entries {
		if end := e.End(); i == 0 || end.After(stop) {
			stop = end
		}
	}
	return stop
}

// Duration sums the member entries. Gaps and overlaps between entries do not
// matter.
func (t Task) Duration() int64 {
	var total int64
	for _, e := range t.Entries {
		total += e.Duration()
	}
	return total
}

// GroupTasks groups entries by exact description. Tasks come out in the order
// their description first appears, which callers should not rely on.
func GroupTasks(entries []Entry) []Task {
	index := make(map[string]int)
	var tasks []Task
	for _, e := range entries {
		i, ok := index[e.Description]
		if !ok {
			i = len(tasks)
			index[e.Description] = i
			tasks = append(tasks, Task{Description: e.Description})
		}
		tasks[i].Entries = append(tasks[i].Entries, e)
	}
	return tasks
}
