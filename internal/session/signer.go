// Package session holds the portal's server-side session state: the signed-in
// user snapshot plus the platform bearer token, encrypted at rest. The browser
// only ever sees a signed session cookie carrying an opaque session ID; the
// bearer token never leaves the portal process.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuerName = "certportal"

var (
	// ErrSecretTooWeak is returned when the configured signing secret is under
	// 32 characters outside dev mode.
	ErrSecretTooWeak = errors.New("session: signing secret must be at least 32 characters")
	// ErrCookieInvalid is returned for cookies that fail signature or claims
	// validation, including expiry.
	ErrCookieInvalid = errors.New("session: cookie is invalid")
)

// Claims is the payload of the session cookie. It identifies the server-side
// session record; it carries no credentials of its own.
type Claims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Signer mints and validates session cookies with HMAC-SHA256.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner validates the signing secret and returns a Signer. In production
// an empty or short secret is a startup failure. In dev mode a missing secret
// is replaced with a random one, which means cookies stop validating across
// restarts; the warning says so.
func NewSigner(secret string, ttl time.Duration, devMode bool) (*Signer, error) {
	if secret == "" {
		if !devMode {
			return nil, fmt.Errorf("%w: set CFP_SESSION_JWT_SECRET (generate with: openssl rand -hex 32)", ErrSecretTooWeak)
		}
		secret = randomSecret()
		slog.Warn("session signing secret not set, generated a random one; sessions will not survive a restart")
	}
	if len(secret) < 32 {
		if !devMode {
			return nil, ErrSecretTooWeak
		}
		slog.Warn("session signing secret is shorter than 32 characters")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports the cookie lifetime the signer stamps into claims.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign mints a cookie value binding the browser to a session record.
func (s *Signer) Sign(sessionID, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			Subject:   sessionID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates a cookie value and returns its claims. All failure modes
// (bad signature, expired, wrong algorithm, malformed) collapse to
// ErrCookieInvalid; callers treat them identically by clearing the cookie.
func (s *Signer) Parse(cookie string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(cookie, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrCookieInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrCookieInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.SessionID == "" {
		return nil, ErrCookieInvalid
	}
	return claims, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
