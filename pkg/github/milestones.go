package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) repoURL(repo string, parts ...any) string {
	u := fmt.Sprintf("%s/repos/%s/%s", c.restURL, url.PathEscape(c.user), url.PathEscape(repo))
	for _, p := range parts {
		u += "/" + url.PathEscape(fmt.Sprint(p))
	}
	return u
}

// GetIssue returns the REST representation of an issue.
func (c *Client) GetIssue(ctx context.Context, repo string, number int) (*Issue, error) {
	var issue Issue
	op := fmt.Sprintf("get issue %s/%s#%d", c.user, repo, number)
	if err := c.do(ctx, op, http.MethodGet, c.repoURL(repo, "issues", number), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListMilestones lists milestones in state ("open", "closed" or "all").
func (c *Client) ListMilestones(ctx context.Context, repo, state string) ([]Milestone, error) {
	var milestones []Milestone
	u := c.repoURL(repo, "milestones") + "?state=" + url.QueryEscape(state)
	if err := c.do(ctx, "list milestones", http.MethodGet, u, nil, &milestones); err != nil {
		return nil, err
	}
	return milestones, nil
}

// CloseMilestone marks a milestone closed.
func (c *Client) CloseMilestone(ctx context.Context, repo string, number int) error {
	body := map[string]string{"state": "closed"}
	op := fmt.Sprintf("close milestone %d", number)
	if err := c.do(ctx, op, http.MethodPatch, c.repoURL(repo, "milestones", number), body, nil); err != nil {
		return err
	}
	c.logger.Info("milestone closed", "repo", c.user+"/"+repo, "milestone", number)
	return nil
}

// CloseCompletedMilestones closes every open milestone whose issues are all
// closed, and returns the numbers it closed.
func (c *Client) CloseCompletedMilestones(ctx context.Context, repo string) ([]int, error) {
	milestones, err := c.ListMilestones(ctx, repo, "all")
	if err != nil {
		return nil, err
	}

	var closed []int
	for _, m := range milestones {
		if !m.Closable() {
			continue
		}
		if err := c.CloseMilestone(ctx, repo, m.Number); err != nil {
			return closed, err
		}
		closed = append(closed, m.Number)
	}
	if len(closed) == 0 {
		c.logger.Info("no milestones to close", "repo", c.user+"/"+repo)
	}
	return closed, nil
}
