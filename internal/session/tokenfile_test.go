package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/certifypro/certportal/internal/crypto"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	cipher, err := crypto.NewTokenCipher(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}
	return NewFileStore(t.TempDir(), cipher)
}

func TestFileStoreRoundtrip(t *testing.T) {
	fs := newFileStore(t)

	if err := fs.Save("bearer-xyz"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "bearer-xyz" {
		t.Errorf("Load = %q", got)
	}
}

func TestFileStoreUsesTokenFileName(t *testing.T) {
	fs := newFileStore(t)
	if err := fs.Save("t"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(fs.Path()) != "token" {
		t.Errorf("token file named %q, want token", filepath.Base(fs.Path()))
	}
	if _, err := os.Stat(fs.Path()); err != nil {
		t.Errorf("token file missing: %v", err)
	}
}

func TestFileStoreTokenNotOnDiskInTheClear(t *testing.T) {
	fs := newFileStore(t)
	if err := fs.Save("bearer-xyz"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(fs.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, []byte("bearer-xyz")) {
		t.Error("token stored in the clear")
	}
}

func TestFileStoreMissingFileIsNoSession(t *testing.T) {
	fs := newFileStore(t)
	if _, err := fs.Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load err = %v, want ErrNoSession", err)
	}
}

func TestFileStoreTamperedFileClearedAndNoSession(t *testing.T) {
	fs := newFileStore(t)
	if err := fs.Save("bearer-xyz"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(fs.Path(), []byte("scribbled-over"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := fs.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load err = %v, want ErrNoSession", err)
	}
	if _, err := os.Stat(fs.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Error("tampered token file not cleared")
	}
}

func TestFileStoreClearIdempotent(t *testing.T) {
	fs := newFileStore(t)
	if err := fs.Clear(); err != nil {
		t.Errorf("Clear on empty store: %v", err)
	}
	if err := fs.Save("t"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Errorf("Clear: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
