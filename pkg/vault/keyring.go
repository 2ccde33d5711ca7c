package vault

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring is the platform secret store: Keychain on macOS, the Secret Service
// on Linux and the Credential Manager on Windows.
type Keyring struct{}

func (Keyring) Set(service, user, password string) error {
	if err := keyring.Set(service, user, password); err != nil {
		return fmt.Errorf("failed to store password for %s in keyring: %w", user, err)
	}
	return nil
}

func (Keyring) Get(service, user string) (string, error) {
	password, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s/%s: %w", service, user, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password for %s from keyring: %w", user, err)
	}
	return password, nil
}
