package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
)

const (
	identityFile = "identity.txt"
	secretsFile  = "vault.age"
)

// AgeFile keeps secrets in a JSON map encrypted to a local age X25519
// identity. It is meant for machines without a keyring daemon.
type AgeFile struct {
	IdentityPath string
	Path         string
	mu           sync.Mutex
}

// NewAgeFile returns a file vault rooted at dir.
func NewAgeFile(dir string) *AgeFile {
	return &AgeFile{
		IdentityPath: filepath.Join(dir, identityFile),
		Path:         filepath.Join(dir, secretsFile),
	}
}

func entryKey(service, user string) string {
	return service + "/" + user
}

func (v *AgeFile) Set(service, user, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, err := v.identity(true)
	if err != nil {
		return err
	}
	secrets, err := v.load(id)
	if err != nil {
		return err
	}
	secrets[entryKey(service, user)] = password
	return v.save(id, secrets)
}

func (v *AgeFile) Get(service, user string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, err := v.identity(false)
	if err != nil {
		return "", err
	}
	if id == nil {
		return "", fmt.Errorf("%s/%s: %w", service, user, ErrNotFound)
	}
	secrets, err := v.load(id)
	if err != nil {
		return "", err
	}
	password, ok := secrets[entryKey(service, user)]
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", service, user, ErrNotFound)
	}
	return password, nil
}

// identity loads the X25519 identity, generating one when create is set and
// the file does not exist yet. It returns nil, nil when the file is absent
// and create is false.
func (v *AgeFile) identity(create bool) (*age.X25519Identity, error) {
	data, err := os.ReadFile(v.IdentityPath)
	if os.IsNotExist(err) {
		if !create {
			return nil, nil
		}
		return v.generateIdentity()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}

	ids, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file %s: %w", v.IdentityPath, err)
	}
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			return x, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity in %s", v.IdentityPath)
}

func (v *AgeFile) generateIdentity() (*age.X25519Identity, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(v.IdentityPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	content := fmt.Sprintf("# created: toggl2github\n# public key: %s\n%s\n", id.Recipient().String(), id.String())
	if err := os.WriteFile(v.IdentityPath, []byte(content), 0600); err != nil {
		return nil, fmt.Errorf("failed to write identity file: %w", err)
	}
	return id, nil
}

func (v *AgeFile) load(id *age.X25519Identity) (map[string]string, error) {
	secrets := make(map[string]string)

	ciphertext, err := os.ReadFile(v.Path)
	if os.IsNotExist(err) {
		return secrets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), id)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt vault file: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted vault: %w", err)
	}
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to decode vault: %w", err)
	}
	return secrets, nil
}

func (v *AgeFile) save(id *age.X25519Identity, secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, id.Recipient())
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("failed to write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close encryptor: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(v.Path), 0700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	return os.WriteFile(v.Path, buf.Bytes(), 0600)
}
