// Package api holds the error taxonomy shared by the Toggl and GitHub clients.
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	// HTTPStatus is a non-2xx response.
	HTTPStatus ErrorKind = iota
	// GraphQL is a 2xx response whose body carries an "errors" array.
	GraphQL
	// MissingCredential means no request was sent because a credential was empty.
	MissingCredential
)

func (k ErrorKind) String() string {
	switch k {
	case HTTPStatus:
		return "http status"
	case GraphQL:
		return "graphql"
	case MissingCredential:
		return "missing credential"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// maxBody caps how much of a response body is kept on an Error.
const maxBody = 4096

// Error is returned by every API call that fails on the remote side.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Body       string
	Messages   []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case HTTPStatus:
		return fmt.Sprintf("%s: request failed with status code %d: %s", e.Op, e.StatusCode, e.Body)
	case GraphQL:
		return fmt.Sprintf("%s: graphql errors: %s", e.Op, strings.Join(e.Messages, "; "))
	case MissingCredential:
		return fmt.Sprintf("%s: %s", e.Op, e.Body)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// CheckResponse returns an HTTPStatus Error when resp is not 2xx. The body is
// consumed in that case.
func CheckResponse(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return &Error{
		Kind:       HTTPStatus,
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
	}
}

// NewMissingCredential reports a credential that was needed but empty.
func NewMissingCredential(op, what string) error {
	return &Error{Kind: MissingCredential, Op: op, Body: what + " is not set"}
}
