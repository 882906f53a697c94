package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for login and session management.
type Handler struct {
	manager  *Manager
	profiles ProfileProvider
}

// NewHandler creates a new auth handler.
func NewHandler(manager *Manager, profiles ProfileProvider) *Handler {
	return &Handler{manager: manager, profiles: profiles}
}

// RegisterRoutes sets up auth endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", h.Me)
}

// RegisterAdminRoutes sets up credential issuance endpoints.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/users/:id/access-codes", h.IssueAccessCode)
	r.DELETE("/users/:id/access-codes", h.RevokeAccessCodes)
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

// Login exchanges an access code for a session token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "access_code is required",
		})
		return
	}

	token, session, err := h.manager.Login(c.Request.Context(), req.AccessCode)
	if err != nil {
		if errors.Is(err, ErrAccountFrozen) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "account_frozen",
				"message": "This account is frozen",
			})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_access_code",
			"message": "Access code is invalid or revoked",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt,
	})
}

// Logout revokes the caller's session. Always succeeds.
func (h *Handler) Logout(c *gin.Context) {
	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.GetHeader("X-Session-Token")
	}
	if err := h.manager.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "logout_failed",
			"message": "Failed to revoke session",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Me returns the caller's profile.
func (h *Handler) Me(c *gin.Context) {
	userID := AuthenticatedUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Session required",
		})
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// IssueAccessCode mints a login credential for a user. The raw code appears
// in the response exactly once.
func (h *Handler) IssueAccessCode(c *gin.Context) {
	userID := c.Param("id")
	if _, err := h.profiles.Get(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}

	raw, code, err := h.manager.IssueAccessCode(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "issue_failed",
			"message": "Failed to issue access code",
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_code": raw,
		"id":          code.ID,
		"user_id":     code.UserID,
	})
}

// RevokeAccessCodes invalidates every access code issued to a user.
func (h *Handler) RevokeAccessCodes(c *gin.Context) {
	if err := h.manager.store.RevokeAccessCodes(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "revoke_failed",
			"message": "Failed to revoke access codes",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
