package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func cipherKey() []byte {
	return bytes.Repeat([]byte("k"), 32)
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewTokenCipher_KeyLength(t *testing.T) {
	if _, err := NewTokenCipher(cipherKey()); err != nil {
		t.Fatalf("NewTokenCipher(32 bytes) error: %v", err)
	}

	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := NewTokenCipher(make([]byte, n)); err != ErrKeyLengthInvalid {
			t.Errorf("NewTokenCipher(len=%d) error = %v, want ErrKeyLengthInvalid", n, err)
		}
	}
}

func TestNewTokenCipher_CopiesKey(t *testing.T) {
	key := cipherKey()
	tc, err := NewTokenCipher(key)
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}
	sealed, _ := tc.Seal("bearer-token")

	// Zeroing the caller's slice must not break the cipher.
	for i := range key {
		key[i] = 0
	}

	got, err := tc.Open(sealed)
	if err != nil || got != "bearer-token" {
		t.Errorf("Open after caller zeroed key = %q, %v", got, err)
	}
}

func TestDeriveTokenCipher(t *testing.T) {
	salt := bytes.Repeat([]byte("s"), 16)

	t.Run("short salt rejected", func(t *testing.T) {
		if _, err := DeriveTokenCipher("pass", make([]byte, 8), 100000); err != ErrSaltTooShort {
			t.Errorf("error = %v, want ErrSaltTooShort", err)
		}
	})

	t.Run("weak iteration count is raised", func(t *testing.T) {
		if _, err := DeriveTokenCipher("pass", salt, 1); err != nil {
			t.Fatalf("DeriveTokenCipher: %v", err)
		}
	})

	t.Run("distinct passphrases cannot open each other's tokens", func(t *testing.T) {
		tc1, _ := DeriveTokenCipher("passphrase-one", salt, 100000)
		tc2, _ := DeriveTokenCipher("passphrase-two", salt, 100000)

		sealed, _ := tc1.Seal("token")
		if _, err := tc2.Open(sealed); err == nil {
			t.Error("cipher derived from a different passphrase opened the token")
		}
	})
}

// ---------------------------------------------------------------------------
// Seal / Open
// ---------------------------------------------------------------------------

func TestSealOpenRoundtrip(t *testing.T) {
	tc, err := NewTokenCipher(cipherKey())
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}

	tokens := []string{
		"tok",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." + strings.Repeat("x", 180),
		"with spaces and !@#$%",
		"line\nbreaks\tand tabs",
	}

	for _, token := range tokens {
		sealed, err := tc.Seal(token)
		if err != nil {
			t.Fatalf("Seal(%q): %v", token, err)
		}
		if sealed == token {
			t.Fatalf("Seal(%q) returned the plaintext", token)
		}
		opened, err := tc.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if opened != token {
			t.Errorf("roundtrip = %q, want %q", opened, token)
		}
	}
}

func TestSealOpenEmptyToken(t *testing.T) {
	tc, _ := NewTokenCipher(cipherKey())

	if sealed, err := tc.Seal(""); err != nil || sealed != "" {
		t.Errorf("Seal(\"\") = %q, %v", sealed, err)
	}
	if opened, err := tc.Open(""); err != nil || opened != "" {
		t.Errorf("Open(\"\") = %q, %v", opened, err)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	tc, _ := NewTokenCipher(cipherKey())
	s1, _ := tc.Seal("same-token")
	s2, _ := tc.Seal("same-token")
	if s1 == s2 {
		t.Error("two Seal calls produced identical ciphertext")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	tc, _ := NewTokenCipher(cipherKey())

	tests := []struct {
		name    string
		sealed  string
		wantErr error
	}{
		{"not base64", "!!!not-base64!!!", ErrCiphertextCorrupted},
		{"shorter than a nonce", "YQ==", ErrCiphertextCorrupted},
		{"valid base64 garbage", "dGhpcyBpcyBub3QgYSB2YWxpZCBjaXBoZXJ0ZXh0", ErrDecryptionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tc.Open(tt.sealed); err != tt.wantErr {
				t.Errorf("Open(%q) error = %v, want %v", tt.sealed, err, tt.wantErr)
			}
		})
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	tc1, _ := NewTokenCipher(bytes.Repeat([]byte("a"), 32))
	tc2, _ := NewTokenCipher(bytes.Repeat([]byte("b"), 32))

	sealed, err := tc1.Seal("platform-bearer-token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := tc2.Open(sealed); err != ErrDecryptionFailed {
		t.Errorf("Open with wrong key error = %v, want ErrDecryptionFailed", err)
	}
}

// ---------------------------------------------------------------------------
// Key and salt generation
// ---------------------------------------------------------------------------

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("len = %d, want 32", len(key))
	}
	key2, _ := GenerateKey()
	if bytes.Equal(key, key2) {
		t.Error("consecutive keys are identical")
	}
	if _, err := NewTokenCipher(key); err != nil {
		t.Errorf("generated key unusable: %v", err)
	}
}

func TestGenerateSalt(t *testing.T) {
	tests := []struct {
		length  int
		wantLen int
	}{
		{0, 16},
		{8, 16},
		{16, 16},
		{32, 32},
	}
	for _, tt := range tests {
		salt, err := GenerateSalt(tt.length)
		if err != nil {
			t.Fatalf("GenerateSalt(%d): %v", tt.length, err)
		}
		if len(salt) != tt.wantLen {
			t.Errorf("GenerateSalt(%d) len = %d, want %d", tt.length, len(salt), tt.wantLen)
		}
	}
}
