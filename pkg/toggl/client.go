// Package toggl is a read-only client for the Toggl Track v9 API.
package toggl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harrisonrobin/toggl2github/pkg/api"
	"github.com/harrisonrobin/toggl2github/pkg/auth"
)

// APIEndpoint is the Toggl Track API base URL.
const APIEndpoint = "https://api.track.toggl.com/api/v9"

// ErrProjectNotFound is returned by FindProject when no project has the name.
var ErrProjectNotFound = errors.New("toggl project not found")

type Client struct {
	httpClient *http.Client
	baseURL    string
	user       string
	password   string
	now        func() time.Time
}

type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the time used to close running entries.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(user, password string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    APIEndpoint,
		user:       user,
		password:   password,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	if c.password == "" {
		return api.NewMissingCredential(op, "toggl_password")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth.BasicAuth(c.user, c.password))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := api.CheckResponse(op, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// ListProjects returns every project in the workspace, in API order.
func (c *Client) ListProjects(ctx context.Context, workspaceID int64) ([]Project, error) {
	var projects []Project
	path := fmt.Sprintf("/workspaces/%d/projects", workspaceID)
	if err := c.get(ctx, "list toggl projects", path, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FindProject returns the first project whose name equals name, ignoring case.
func (c *Client) FindProject(ctx context.Context, workspaceID int64, name string) (*Project, error) {
	projects, err := c.ListProjects(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if strings.EqualFold(projects[i].Name, name) {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("%q in workspace %d: %w", name, workspaceID, ErrProjectNotFound)
}

// ListEntries returns the authenticated user's time entries for project.
// Only the API's default page is read.
func (c *Client) ListEntries(ctx context.Context, project *Project) ([]Entry, error) {
	var all []Entry
	if err := c.get(ctx, "list toggl time entries", "/me/time_entries", &all); err != nil {
		return nil, err
	}

	now := c.now()
	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Project() != project.ID {
			continue
		}
		if e.Stop == nil {
			stop := now
			e.Stop = &stop
			e.Running = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ListTasks returns the project's entries grouped by description.
func (c *Client) ListTasks(ctx context.Context, project *Project) ([]Task, error) {
	entries, err := c.ListEntries(ctx, project)
	if err != nil {
		return nil, err
	}
	return GroupTasks(entries), nil
}
