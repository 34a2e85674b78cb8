// Package anchor provides helpers for the blockchain anchor hashes attached to
// certificates. An anchor hash is the platform's tamper-evidence marker: a
// 0x-prefixed, 64-character lowercase hex digest recorded when the certificate
// is issued. The portal never computes or validates anchors authoritatively
// (the platform owns that), but it checks the format before displaying one and
// can fingerprint arbitrary payloads for side-by-side comparison in support
// tooling.
package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const (
	prefix  = "0x"
	hexLen  = 64
	fullLen = len(prefix) + hexLen
)

// WellFormed reports whether s looks like a platform anchor hash: "0x"
// followed by exactly 64 hex digits. It says nothing about whether the hash
// is actually anchored.
func WellFormed(s string) bool {
	if len(s) != fullLen || !strings.HasPrefix(s, prefix) {
		return false
	}
	_, err := hex.DecodeString(s[len(prefix):])
	return err == nil
}

// Short returns a display form of an anchor hash: the prefix plus the first
// and last six hex digits. Malformed input is returned unchanged.
func Short(s string) string {
	if !WellFormed(s) {
		return s
	}
	digits := s[len(prefix):]
	return prefix + digits[:6] + "…" + digits[hexLen-6:]
}

// Fingerprint computes the anchor-format SHA-256 digest of a payload.
func Fingerprint(reader io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to fingerprint payload: %w", err)
	}
	return prefix + hex.EncodeToString(hasher.Sum(nil)), nil
}

// Matches reports whether the payload's fingerprint equals the given anchor
// hash. Comparison is case-insensitive on the hex digits.
func Matches(reader io.Reader, anchorHash string) (bool, error) {
	got, err := Fingerprint(reader)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, anchorHash), nil
}
