package github

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ResolveProjectID returns the node id of the user's project number.
func (c *Client) ResolveProjectID(ctx context.Context, number int) (string, error) {
	var data struct {
		User struct {
			ProjectV2 *struct {
				ID string `json:"id"`
			} `json:"projectV2"`
		} `json:"user"`
	}
	if err := c.graphql(ctx, "resolve project id", projectIDQuery(c.user, number), &data); err != nil {
		return "", err
	}
	if data.User.ProjectV2 == nil || data.User.ProjectV2.ID == "" {
		return "", fmt.Errorf("project %d of %s not found", number, c.user)
	}
	return data.User.ProjectV2.ID, nil
}

// ListItems returns the first page of the project's items.
func (c *Client) ListItems(ctx context.Context, number int) ([]Item, error) {
	projectID, err := c.ResolveProjectID(ctx, number)
	if err != nil {
		return nil, err
	}
	return c.projectItems(ctx, projectID)
}

func (c *Client) projectItems(ctx context.Context, projectID string) ([]Item, error) {
	var data struct {
		Node struct {
			Items struct {
				Nodes []itemNode `json:"nodes"`
			} `json:"items"`
		} `json:"node"`
	}
	if err := c.graphql(ctx, "list project items", projectItemsQuery(projectID), &data); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(data.Node.Items.Nodes))
	for _, n := range data.Node.Items.Nodes {
		items = append(items, n.item())
	}
	return items, nil
}

// ListFields returns the project's field definitions.
func (c *Client) ListFields(ctx context.Context, number int) ([]Field, error) {
	projectID, err := c.ResolveProjectID(ctx, number)
	if err != nil {
		return nil, err
	}
	return c.projectFields(ctx, projectID)
}

func (c *Client) projectFields(ctx context.Context, projectID string) ([]Field, error) {
	var data struct {
		Node struct {
			Fields struct {
				Nodes []Field `json:"nodes"`
			} `json:"fields"`
		} `json:"node"`
	}
	if err := c.graphql(ctx, "list project fields", projectFieldsQuery(projectID), &data); err != nil {
		return nil, err
	}
	return data.Node.Fields.Nodes, nil
}

func findField(fields []Field, name string) (string, bool) {
	for _, f := range fields {
		if f.ID != "" && strings.EqualFold(f.Name, name) {
			return f.ID, true
		}
	}
	return "", false
}

func findItem(items []Item, title string) (string, bool) {
	for _, it := range items {
		if it.Title == title {
			return it.ID, true
		}
	}
	return "", false
}

// ResolveFieldID finds a field by name, ignoring case.
func (c *Client) ResolveFieldID(ctx context.Context, number int, fieldName string) (string, bool, error) {
	fields, err := c.ListFields(ctx, number)
	if err != nil {
		return "", false, err
	}
	id, ok := findField(fields, fieldName)
	return id, ok, nil
}

// ResolveItemID finds the item whose title is exactly issueTitle.
func (c *Client) ResolveItemID(ctx context.Context, number int, issueTitle string) (string, bool, error) {
	items, err := c.ListItems(ctx, number)
	if err != nil {
		return "", false, err
	}
	id, ok := findItem(items, issueTitle)
	return id, ok, nil
}

// SetFieldValue sets fieldName on the item titled issueTitle. Project, field
// and item ids are looked up on every call.
func (c *Client) SetFieldValue(ctx context.Context, number int, issueTitle, fieldName string, ft FieldType, value string) error {
	projectID, err := c.ResolveProjectID(ctx, number)
	if err != nil {
		return err
	}

	fields, err := c.projectFields(ctx, projectID)
	if err != nil {
		return err
	}
	fieldID, ok := findField(fields, fieldName)
	if !ok {
		return fmt.Errorf("%q in project %d: %w", fieldName, number, ErrFieldNotFound)
	}

	items, err := c.projectItems(ctx, projectID)
	if err != nil {
		return err
	}
	itemID, ok := findItem(items, issueTitle)
	if !ok {
		return fmt.Errorf("%q in project %d: %w", issueTitle, number, ErrItemNotFound)
	}

	mutation, err := updateFieldValueMutation(projectID, itemID, fieldID, ft, value)
	if err != nil {
		return err
	}
	return c.graphql(ctx, "update field value", mutation, nil)
}

// CreateIssue is not supported yet.
func (c *Client) CreateIssue(ctx context.Context, number int, title, body string, fieldValues map[string]string) error {
	return fmt.Errorf("create issue %q: %w", title, errors.ErrUnsupported)
}

// DeleteIssue is not supported yet.
func (c *Client) DeleteIssue(ctx context.Context, number int, title string) error {
	return fmt.Errorf("delete issue %q: %w", title, errors.ErrUnsupported)
}
