package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCheckResponse_SuccessReturnsNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckResponse("list projects", response(http.StatusOK, "[]")))
	assert.NoError(t, CheckResponse("list projects", response(http.StatusNoContent, "")))
}

func TestCheckResponse_NonSuccessCarriesStatusAndBody(t *testing.T) {
	t.Parallel()

	err := CheckResponse("list projects", response(http.StatusForbidden, "bad credentials\n"))
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &apiErr))
	assert.Equal(t, HTTPStatus, apiErr.Kind)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "bad credentials", apiErr.Body)
	assert.Contains(t, err.Error(), "status code 403")
}

func TestError_GraphQLMessagesJoined(t *testing.T) {
	t.Parallel()

	err := &Error{Kind: GraphQL, Op: "resolve project", Messages: []string{"a", "b"}}
	assert.Equal(t, "resolve project: graphql errors: a; b", err.Error())
}

func TestNewMissingCredential(t *testing.T) {
	t.Parallel()

	err := NewMissingCredential("toggl", "toggl_password")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, MissingCredential, apiErr.Kind)
	assert.Equal(t, "toggl: toggl_password is not set", err.Error())
}
