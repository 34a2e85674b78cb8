package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/certifypro/certportal/internal/crypto"
)

// tokenFileName is the on-disk key the bearer token is stored under.
const tokenFileName = "token"

// FileStore persists a single bearer token for certctl, sealed with the
// configured cipher, in a file named "token" under the state directory.
type FileStore struct {
	dir    string
	cipher *crypto.TokenCipher
}

// NewFileStore builds a store rooted at dir. The directory is created on
// first save, not here.
func NewFileStore(dir string, cipher *crypto.TokenCipher) *FileStore {
	return &FileStore{dir: dir, cipher: cipher}
}

// Path reports where the token lives.
func (f *FileStore) Path() string {
	return filepath.Join(f.dir, tokenFileName)
}

// Save seals the token and writes it, owner-readable only.
func (f *FileStore) Save(token string) error {
	sealed, err := f.cipher.Seal(token)
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(f.Path(), []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Load reads and unseals the stored token. A missing file returns
// ErrNoSession, not an I/O error: it just means nobody is signed in. An
// unreadable or tampered file is cleared and also reported as ErrNoSession,
// so the user is prompted to log in again instead of being stuck.
func (f *FileStore) Load() (string, error) {
	raw, err := os.ReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	token, err := f.cipher.Open(string(raw))
	if err != nil {
		_ = f.Clear()
		return "", ErrNoSession
	}
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Clear removes the stored token. Clearing an absent token is a no-op.
func (f *FileStore) Clear() error {
	err := os.Remove(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
