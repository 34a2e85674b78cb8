// Package authn exposes the portal's authentication endpoints. Login and
// registration establish a server-side session and hand the browser a signed
// cookie; the platform bearer token itself never reaches the client.
package authn

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/api/respond"
	"github.com/certifypro/certportal/internal/audit"
	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/session"
)

// CookieSettings controls how the session cookie is written.
type CookieSettings struct {
	Name   string
	MaxAge int
	Secure bool
}

// Handler serves the auth endpoints.
type Handler struct {
	manager  *session.Manager
	recorder *audit.Recorder
	cookie   CookieSettings
}

// NewHandler wires the auth endpoints.
func NewHandler(manager *session.Manager, recorder *audit.Recorder, cookie CookieSettings) *Handler {
	return &Handler{manager: manager, recorder: recorder, cookie: cookie}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /portal/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "email and password are required")
		return
	}

	user, cookie, err := h.manager.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.recorder.Record(c.Request.Context(), audit.Event{
			Action:    audit.ActionLogin,
			Actor:     req.Email,
			IPAddress: c.ClientIP(),
			RequestID: c.GetString(middleware.RequestIDKey),
			Success:   false,
		})
		respond.Error(c, err, "Login failed")
		return
	}

	h.setCookie(c, cookie)
	h.recorder.Record(c.Request.Context(), audit.Event{
		Action:    audit.ActionLogin,
		Actor:     user.Username,
		ActorRole: user.Role.String(),
		IPAddress: c.ClientIP(),
		RequestID: c.GetString(middleware.RequestIDKey),
		Success:   true,
	})
	respond.OK(c, http.StatusOK, "Login successful", gin.H{"user": user})
}

// Register handles POST /portal/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var input platform.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Fail(c, http.StatusBadRequest, "username, email, role, and password are required")
		return
	}

	user, cookie, err := h.manager.Register(c.Request.Context(), input)
	if err != nil {
		respond.Error(c, err, "Registration failed")
		return
	}

	h.setCookie(c, cookie)
	h.recorder.Record(c.Request.Context(), audit.Event{
		Action:    audit.ActionRegister,
		Actor:     user.Username,
		ActorRole: user.Role.String(),
		IPAddress: c.ClientIP(),
		RequestID: c.GetString(middleware.RequestIDKey),
		Success:   true,
	})
	respond.OK(c, http.StatusCreated, "Account created", gin.H{"user": user})
}

// Logout handles POST /portal/auth/logout. Idempotent: logging out without a
// session still succeeds.
func (h *Handler) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(h.cookie.Name); err == nil && cookie != "" {
		h.manager.Logout(cookie)
	}
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	h.recorder.Record(c.Request.Context(), audit.Event{
		Action:    audit.ActionLogout,
		IPAddress: c.ClientIP(),
		RequestID: c.GetString(middleware.RequestIDKey),
		Success:   true,
	})
	respond.OK(c, http.StatusOK, "Logged out", nil)
}

// Me handles GET /portal/auth/me behind session auth.
func (h *Handler) Me(c *gin.Context) {
	respond.OK(c, http.StatusOK, "", gin.H{"user": middleware.CurrentUser(c)})
}

// Refresh handles POST /portal/auth/refresh: it re-verifies the session's
// token with the platform and returns the fresh user snapshot.
func (h *Handler) Refresh(c *gin.Context) {
	cookie, err := c.Cookie(h.cookie.Name)
	if err != nil || cookie == "" {
		respond.Fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	user, err := h.manager.Refresh(c.Request.Context(), cookie)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
			respond.Fail(c, http.StatusUnauthorized, "Session expired, please log in again")
			return
		}
		respond.Error(c, err, "Could not refresh session")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"user": user})
}

func (h *Handler) setCookie(c *gin.Context, value string) {
	c.SetCookie(h.cookie.Name, value, h.cookie.MaxAge, "/", "", h.cookie.Secure, true)
}
