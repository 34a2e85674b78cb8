package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/certifypro/certportal/internal/crypto"
	"github.com/certifypro/certportal/internal/platform"
)

// ErrNoSession is returned when a cookie does not resolve to a live session.
var ErrNoSession = errors.New("session: not signed in")

// AuthAPI is the slice of the platform client the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*platform.AuthSession, error)
	Register(ctx context.Context, input platform.RegisterInput) (*platform.AuthSession, error)
	VerifyToken(ctx context.Context, creds platform.Credentials) (*platform.User, error)
}

// Manager owns the login, resolve, refresh, and logout flows. It is the only
// code that handles bearer tokens in the clear, and only transiently.
type Manager struct {
	api    AuthAPI
	store  *Store
	cipher *crypto.TokenCipher
	signer *Signer
}

// NewManager wires the session flows together.
func NewManager(api AuthAPI, store *Store, cipher *crypto.TokenCipher, signer *Signer) *Manager {
	return &Manager{api: api, store: store, cipher: cipher, signer: signer}
}

// Login signs in against the platform and establishes a session. It returns
// the user snapshot and the cookie value for the browser. The bearer token is
// sealed before it touches the store.
func (m *Manager) Login(ctx context.Context, email, password string) (*platform.User, string, error) {
	auth, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	return m.establish(auth)
}

// Register creates a platform account and establishes a session for it, the
// same way Login does.
func (m *Manager) Register(ctx context.Context, input platform.RegisterInput) (*platform.User, string, error) {
	auth, err := m.api.Register(ctx, input)
	if err != nil {
		return nil, "", err
	}
	return m.establish(auth)
}

func (m *Manager) establish(auth *platform.AuthSession) (*platform.User, string, error) {
	sealed, err := m.cipher.Seal(auth.Token)
	if err != nil {
		return nil, "", fmt.Errorf("sealing bearer token: %w", err)
	}
	s := m.store.Create(auth.User, sealed)
	cookie, err := m.signer.Sign(s.ID, auth.User.Username)
	if err != nil {
		m.store.Delete(s.ID)
		return nil, "", fmt.Errorf("signing session cookie: %w", err)
	}
	user := auth.User
	return &user, cookie, nil
}

// Resolve turns a cookie into the session's user snapshot and live platform
// credentials. Any failure, from a bad signature to a swept session, returns
// ErrNoSession; the caller responds 401 and clears the cookie.
func (m *Manager) Resolve(cookie string) (*platform.User, platform.Credentials, error) {
	claims, err := m.signer.Parse(cookie)
	if err != nil {
		return nil, platform.Credentials{}, ErrNoSession
	}
	s := m.store.Get(claims.SessionID)
	if s == nil {
		return nil, platform.Credentials{}, ErrNoSession
	}
	token, err := m.cipher.Open(s.SealedToken)
	if err != nil {
		// An unopenable token means the cipher key changed under a live
		// session. The record is useless; drop it.
		m.store.Delete(s.ID)
		return nil, platform.Credentials{}, ErrNoSession
	}
	user := s.User
	return &user, platform.Credentials{Token: token}, nil
}

// Refresh re-verifies the session's token with the platform and replaces the
// stored user snapshot with the response, wholesale. If the platform no
// longer honors the token the session is destroyed and ErrNoSession is
// returned.
func (m *Manager) Refresh(ctx context.Context, cookie string) (*platform.User, error) {
	claims, err := m.signer.Parse(cookie)
	if err != nil {
		return nil, ErrNoSession
	}
	s := m.store.Get(claims.SessionID)
	if s == nil {
		return nil, ErrNoSession
	}
	token, err := m.cipher.Open(s.SealedToken)
	if err != nil {
		m.store.Delete(s.ID)
		return nil, ErrNoSession
	}
	user, err := m.api.VerifyToken(ctx, platform.Credentials{Token: token})
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			m.store.Delete(s.ID)
			return nil, ErrNoSession
		}
		// Transport trouble is not a reason to log anyone out.
		return nil, err
	}
	m.store.Replace(s.ID, *user, s.SealedToken)
	return user, nil
}

// Logout destroys the session behind the cookie. A cookie that no longer
// resolves is not an error; logout is idempotent.
func (m *Manager) Logout(cookie string) {
	claims, err := m.signer.Parse(cookie)
	if err != nil {
		return
	}
	m.store.Delete(claims.SessionID)
}
