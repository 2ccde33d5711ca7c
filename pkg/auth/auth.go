// Package auth turns stored credentials into authenticated HTTP clients.
package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"golang.org/x/oauth2"
)

// NewBearerClient returns an *http.Client that sends token as an OAuth2
// bearer token on every request. GitHub personal access tokens never expire
// through the token source, so no refresh is attempted.
func NewBearerClient(ctx context.Context, token string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return oauth2.NewClient(ctx, src)
}

// BasicAuth returns the value of an HTTP Basic Authorization header.
func BasicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}
