// Package github talks to GitHub Projects (v2) over GraphQL and to the
// repository REST API for issues and milestones.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harrisonrobin/toggl2github/pkg/api"
	"github.com/harrisonrobin/toggl2github/pkg/auth"
)

const (
	GraphQLURL = "https://api.github.com/graphql"
	RESTURL    = "https://api.github.com"
)

var (
	ErrFieldNotFound = errors.New("project field not found")
	ErrItemNotFound  = errors.New("project item not found")
)

// Client is bound to one GitHub user and token.
type Client struct {
	httpClient *http.Client
	user       string
	token      string
	graphqlURL string
	restURL    string
	logger     *slog.Logger
}

type Option func(*Client)

// WithEndpoints overrides the GraphQL and REST roots, e.g. for httptest.
func WithEndpoints(graphqlURL, restURL string) Option {
	return func(c *Client) {
		c.graphqlURL = graphqlURL
		c.restURL = strings.TrimRight(restURL, "/")
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client that authenticates with token as a bearer token.
func NewClient(ctx context.Context, user, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: auth.NewBearerClient(ctx, token),
		user:       user,
		token:      token,
		graphqlURL: GraphQLURL,
		restURL:    RESTURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, op, method, url string, body any, out any) error {
	if c.token == "" {
		return api.NewMissingCredential(op, "gh_token")
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := api.CheckResponse(op, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphql posts query and decodes its data member into out.
func (c *Client) graphql(ctx context.Context, op, query string, out any) error {
	var resp graphQLResponse
	payload := map[string]string{"query": query}
	if err := c.do(ctx, op, http.MethodPost, c.graphqlURL, payload, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return &api.Error{Kind: api.GraphQL, Op: op, StatusCode: http.StatusOK, Messages: msgs}
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%s: failed to decode data: %w", op, err)
	}
	return nil
}
