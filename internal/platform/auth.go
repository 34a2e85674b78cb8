// auth.go implements the authentication operations: login, registration, and
// the once-per-session token validation check.
package platform

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges email and password for an AuthSession. The returned token
// is the caller's responsibility to hold; this client stores nothing.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthSession, error) {
	if email == "" || password == "" {
		return nil, NewAPIError(0, "email and password are required", ErrValidation)
	}
	body := map[string]string{"email": email, "password": password}
	var session AuthSession
	if err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Register creates a new account and signs it in.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthSession, error) {
	if input.Role == RoleAdmin {
		return nil, NewAPIError(0, "admin accounts cannot self-register", ErrValidation)
	}
	if !input.Role.Valid() {
		return nil, NewAPIError(0, "unknown role", ErrValidation)
	}
	var session AuthSession
	if err := c.do(ctx, "auth.register", http.MethodPost, "/auth/register", nil, input, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// VerifyToken asks the platform whether the bearer token is still valid,
// returning the owning user when it is. Callers holding a persisted token run
// this once at session start and discard the token on failure.
func (c *Client) VerifyToken(ctx context.Context, creds Credentials) (*User, error) {
	if creds.Token == "" {
		return nil, NewAPIError(0, "no token to verify", ErrUnauthorized)
	}
	var user User
	if err := c.do(ctx, "auth.verify", http.MethodGet, "/auth/verify", &creds, nil, &user); err != nil {
		// An expired or revoked token may surface as 401 or, on some
		// deployments, 400. Collapse both to the unauthorized sentinel so the
		// session layer has one signal for "drop the stored token".
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return nil, NewAPIError(apiErr.StatusCode, apiErr.Message, ErrUnauthorized)
		}
		return nil, err
	}
	return &user, nil
}
