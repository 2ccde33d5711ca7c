// Package vault stores secrets addressed by (service, username).
package vault

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned by Get when no secret is stored for the pair.
var ErrNotFound = errors.New("secret not found in vault")

// Vault is a password store keyed by service name and username.
type Vault interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
}

const (
	BackendKeyring = "keyring"
	BackendFile    = "file"

	// EnvBackend selects the backend when no flag is given.
	EnvBackend = "TOGGL2GITHUB_VAULT"
)

// Open returns the vault for backend. An empty backend falls back to
// $TOGGL2GITHUB_VAULT and then to the OS keyring. dir is where the file
// backend keeps its identity and ciphertext.
func Open(backend, dir string) (Vault, error) {
	if backend == "" {
		backend = os.Getenv(EnvBackend)
	}
	switch strings.ToLower(backend) {
	case "", BackendKeyring:
		return Keyring{}, nil
	case BackendFile, "age":
		return NewAgeFile(dir), nil
	default:
		return nil, fmt.Errorf("unknown vault backend %q (want %q or %q)", backend, BackendKeyring, BackendFile)
	}
}
