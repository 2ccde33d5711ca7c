// Package config persists toggl2github settings. Plain values live in a JSON
// file under the user's config directory; secrets go to a vault keyed by the
// username paired with them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/harrisonrobin/toggl2github/pkg/vault"
)

const (
	xdgAppName = "toggl2github"
	configFile = "config.json"

	// ServiceName is the vault service every secret is stored under.
	ServiceName = "toggl2github"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "TOGGL2GITHUB_CONFIG"
)

// Recognized settings.
const (
	GHUser           = "gh_user"
	GHToken          = "gh_token"
	TogglUser        = "toggl_user"
	TogglPassword    = "toggl_password"
	TogglWorkspaceID = "toggl_workspace_id"
)

// Schema maps each secret setting to the plain setting holding its username.
// Keys not in the schema are plain.
type Schema map[string]string

// DefaultSchema declares the secrets toggl2github knows about.
var DefaultSchema = Schema{
	GHToken:       GHUser,
	TogglPassword: TogglUser,
}

// UserKey returns the username key paired with a secret key.
func (s Schema) UserKey(key string) (string, bool) {
	u, ok := s[key]
	return u, ok
}

// ErrorKind classifies a config Error.
type ErrorKind int

const (
	// MissingUsername: a secret was written without its paired username.
	MissingUsername ErrorKind = iota
	// MissingKeys: requested keys are absent from the config.
	MissingKeys
)

// Error is returned by Set and Get when the stored or supplied settings are
// incomplete.
type Error struct {
	Kind ErrorKind
	Keys []string
	Path string
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingUsername:
		return fmt.Sprintf("you must provide a user for the %s secret", strings.Join(e.Keys, ", "))
	case MissingKeys:
		return fmt.Sprintf("the following keys are missing from %s: %s", e.Path, strings.Join(e.Keys, ", "))
	default:
		return "config error"
	}
}

// GetConfigDir returns ~/.config/toggl2github.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

// GetConfigPath returns the config file path, honoring $TOGGL2GITHUB_CONFIG.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Store reads and writes settings. It does no locking: a single process is
// expected to own the file.
type Store struct {
	Path   string
	Vault  vault.Vault
	Schema Schema
}

// NewStore returns a Store backed by the file at path and the given vault.
func NewStore(path string, v vault.Vault) *Store {
	return &Store{Path: path, Vault: v, Schema: DefaultSchema}
}

// Open returns a Store at the default config path.
func Open(v vault.Vault) (*Store, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("could not find path to configuration file: %w", err)
	}
	return NewStore(path, v), nil
}

// Set stores pairs. Secrets go to the vault under the username supplied in the
// same call; everything else is merged into the config file, which is
// rewritten as a whole. Nothing is written if validation fails. The file is
// written before the vault, so a secret is never stored without its username
// on disk.
func (s *Store) Set(pairs map[string]any) error {
	plain := make(map[string]any, len(pairs))
	type secret struct{ user, password string }
	var secrets []secret
	var missing []string

	for key, value := range pairs {
		if err := checkValue(key, value); err != nil {
			return err
		}
		userKey, isSecret := s.Schema.UserKey(key)
		if !isSecret {
			plain[key] = value
			continue
		}
		user, ok := pairs[userKey]
		if !ok || asString(user) == "" {
			missing = append(missing, key)
			continue
		}
		secrets = append(secrets, secret{user: asString(user), password: asString(value)})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &Error{Kind: MissingUsername, Keys: missing, Path: s.Path}
	}

	current, err := s.load()
	if err != nil {
		return err
	}

	for k, v := range plain {
		current[k] = v
	}
	if err := s.save(current); err != nil {
		return err
	}

	for _, sec := range secrets {
		if err := s.Vault.Set(ServiceName, sec.user, sec.password); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the requested keys. Secret keys are read from the vault using
// the username stored under their paired key.
func (s *Store) Get(keys ...string) (Values, error) {
	current, err := s.load()
	if err != nil {
		return Values{}, err
	}

	var missing []string
	for _, key := range keys {
		if userKey, isSecret := s.Schema.UserKey(key); isSecret {
			if _, ok := current[userKey]; !ok {
				missing = append(missing, userKey)
			}
			continue
		}
		if _, ok := current[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Values{}, &Error{Kind: MissingKeys, Keys: dedupe(missing), Path: s.Path}
	}

	vals := Values{keys: keys, values: make(map[string]any, len(keys))}
	for _, key := range keys {
		userKey, isSecret := s.Schema.UserKey(key)
		if !isSecret {
			vals.values[key] = current[key]
			continue
		}
		password, err := s.Vault.Get(ServiceName, asString(current[userKey]))
		if errors.Is(err, vault.ErrNotFound) {
			return Values{}, &Error{Kind: MissingKeys, Keys: []string{key}, Path: "the vault"}
		}
		if err != nil {
			return Values{}, err
		}
		vals.values[key] = password
	}
	return vals, nil
}

func (s *Store) load() (map[string]any, error) {
	current := make(map[string]any)

	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return current, nil
		}
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&current); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return current, nil
}

func (s *Store) save(current map[string]any) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(current)
}

// Values is the result of Get, in the order the keys were requested.
type Values struct {
	keys   []string
	values map[string]any
}

// Keys returns the keys in request order.
func (v Values) Keys() []string {
	return v.keys
}

// String returns the value for key rendered as a string.
func (v Values) String(key string) string {
	return asString(v.values[key])
}

// Int64 returns the value for key as an integer.
func (v Values) Int64(key string) (int64, error) {
	n, err := strconv.ParseInt(v.String(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config value %s is not an integer: %w", key, err)
	}
	return n, nil
}

// Map returns a copy of the values as strings.
func (v Values) Map() map[string]string {
	m := make(map[string]string, len(v.values))
	for k := range v.values {
		m[k] = v.String(k)
	}
	return m
}

func checkValue(key string, value any) error {
	switch value.(type) {
	case string, int, int64, json.Number:
		return nil
	default:
		return fmt.Errorf("config value %s must be a string or an integer, got %T", key, value)
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
