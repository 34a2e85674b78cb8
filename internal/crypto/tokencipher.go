// Package crypto provides AES-256-GCM authenticated encryption for the
// platform bearer tokens the portal holds at rest, both in the server-side
// session store and in the certctl token file. A bearer token grants full
// access to the owning account on the platform, so it is never written out
// in the clear. AES-256-GCM gives both confidentiality and integrity: a
// tampered ciphertext fails to open instead of yielding a corrupted token.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrKeyLengthInvalid is returned when a key is not exactly 32 bytes (AES-256).
	ErrKeyLengthInvalid = errors.New("crypto: key must be exactly 32 bytes for AES-256")
	// ErrCiphertextCorrupted is returned when ciphertext fails base64 decoding or is too short to hold a nonce.
	ErrCiphertextCorrupted = errors.New("crypto: ciphertext is corrupted or tampered")
	// ErrDecryptionFailed is returned when GCM authentication fails, indicating tampering or a wrong key.
	ErrDecryptionFailed = errors.New("crypto: decryption operation failed")
	// ErrSaltTooShort is returned when a derivation salt is under 16 bytes.
	ErrSaltTooShort = errors.New("crypto: salt must be at least 16 bytes")
)

// TokenCipher seals and opens bearer tokens with a fixed 32-byte key.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher builds a cipher from a 32-byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != 32 {
		return nil, ErrKeyLengthInvalid
	}
	owned := make([]byte, 32)
	copy(owned, key)
	return &TokenCipher{key: owned}, nil
}

// DeriveTokenCipher builds a cipher from a passphrase via PBKDF2-SHA256,
// for deployments that configure a passphrase rather than raw key bytes.
// Iterations below 10000 are raised to a secure default.
func DeriveTokenCipher(passphrase string, salt []byte, iterations int) (*TokenCipher, error) {
	if len(salt) < 16 {
		return nil, ErrSaltTooShort
	}
	if iterations < 10000 {
		iterations = 100000
	}
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
	return NewTokenCipher(key)
}

// Seal encrypts a token and returns base64(nonce || ciphertext). An empty
// token seals to the empty string.
func (tc *TokenCipher) Seal(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	aead, err := tc.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed token produced by Seal.
func (tc *TokenCipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrCiphertextCorrupted
	}
	aead, err := tc.aead()
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrCiphertextCorrupted
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	token, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(token), nil
}

func (tc *TokenCipher) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(tc.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateKey creates a cryptographically secure random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateSalt creates a random salt of at least 16 bytes.
func GenerateSalt(length int) ([]byte, error) {
	if length < 16 {
		length = 16
	}
	salt := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}
