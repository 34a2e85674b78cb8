// auth.go authenticates portal requests from the session cookie. The cookie
// carries a signed session ID; the session manager resolves it to the user
// snapshot and the platform credentials, both placed in the gin context for
// handlers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/session"
)

const (
	// UserKey is the gin.Context key holding the *platform.User snapshot.
	UserKey = "user"
	// UserIDKey is the gin.Context key holding the user's ID string.
	UserIDKey = "user_id"
	// CredsKey is the gin.Context key holding platform.Credentials.
	CredsKey = "platform_creds"
)

// SessionAuthMiddleware resolves the session cookie into an authenticated
// identity. Requests without a resolvable session are rejected with 401 and
// the cookie is cleared so the browser stops presenting it.
func SessionAuthMiddleware(manager *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cookieName)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}

		user, creds, err := manager.Resolve(cookie)
		if err != nil {
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Session expired, please log in again",
			})
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Set(CredsKey, creds)

		c.Next()
	}
}

// RequireRoles restricts a route to the given platform roles. Must be
// registered after SessionAuthMiddleware.
func RequireRoles(roles ...platform.Role) gin.HandlerFunc {
	allowed := make(map[platform.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}
		if !allowed[user.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user snapshot, or nil when the
// request did not pass SessionAuthMiddleware.
func CurrentUser(c *gin.Context) *platform.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*platform.User)
	if !ok {
		return nil
	}
	return user
}

// Credentials returns the platform credentials for the authenticated session.
func Credentials(c *gin.Context) platform.Credentials {
	v, ok := c.Get(CredsKey)
	if !ok {
		return platform.Credentials{}
	}
	creds, ok := v.(platform.Credentials)
	if !ok {
		return platform.Credentials{}
	}
	return creds
}
