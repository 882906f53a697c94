package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeySession is the key for storing the session in gin context
	ContextKeySession = "session"
	// ContextKeyUserID is the key for storing the authenticated user ID
	ContextKeyUserID = "authUserID"
)

// Middleware extracts and validates a session token from the request.
// Sets session and authUserID in context if valid.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.GetHeader("X-Session-Token")
		}

		if token != "" {
			session, err := m.Validate(c.Request.Context(), token)
			if err == nil {
				c.Set(ContextKeySession, session)
				c.Set(ContextKeyUserID, session.UserID)
			}
		}

		c.Next()
	}
}

// RequireAuth middleware rejects requests without a valid session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextKeySession); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Session required. Include 'Authorization: Bearer st_...' header.",
			})
			return
		}
		c.Next()
	}
}

// RequireSelf requires auth AND that the :id param is the caller's own ID.
func RequireSelf(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextKeyUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Session required.",
			})
			return
		}
		if c.Param(paramName) != userID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "You may only act on your own account.",
			})
			return
		}
		c.Next()
	}
}

// RequireAdminSecret guards operator endpoints with a shared secret header.
func RequireAdminSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin secret required.",
			})
			return
		}
		c.Next()
	}
}

// AuthenticatedUserID returns the authenticated user's ID, or "" if the
// request carries no valid session.
func AuthenticatedUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// CurrentSession returns the session from context (if authenticated)
func CurrentSession(c *gin.Context) (*Session, bool) {
	v, exists := c.Get(ContextKeySession)
	if !exists {
		return nil, false
	}
	return v.(*Session), true
}

// IsAuthenticated checks if the request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ContextKeySession)
	return exists
}
