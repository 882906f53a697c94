package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/idgen"
	"github.com/portale-hq/portale/internal/validation"
)

// Handler provides HTTP endpoints for user profiles.
type Handler struct {
	store Store
}

// NewHandler creates a new users handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up the public user endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.GET("/users/:id/stats", h.GetUserStats)
}

// RegisterAdminRoutes sets up endpoints for the admin surface.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.CreateUser)
	r.POST("/users/:id/freeze", h.FreezeUser)
}

// CreateUserRequest is the request body for POST /admin/users.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Bio      string `json:"bio"`
}

// CreateUser provisions a new profile. Admin only; regular users enter the
// platform through issued access hashes.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username and email are required",
		})
		return
	}

	req.Username = validation.SanitizeUsername(req.Username)
	if verrs := validation.Validate(
		validation.ValidUsername("username", req.Username),
		validation.ValidEmail("email", req.Email),
		validation.MaxLength("bio", req.Bio, 500),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verrs.Error(),
			"details": verrs,
		})
		return
	}

	profile := &Profile{
		ID:       idgen.WithPrefix("usr_"),
		Username: req.Username,
		Email:    req.Email,
		Bio:      validation.SanitizeString(req.Bio, 500),
		Role:     RoleUser,
	}
	if err := h.store.Create(c.Request.Context(), profile); err != nil {
		if errors.Is(err, ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "user_exists",
				"message": "A user with that ID or username already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create user",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": profile})
}

// GetUser returns a single profile.
func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// GetUserStats returns a user's activity counters.
func (h *Handler) GetUserStats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// ListUsers returns recently created profiles.
func (h *Handler) ListUsers(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	profiles, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list users",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles, "count": len(profiles)})
}

// FreezeUser marks an account as frozen; frozen accounts cannot log in.
func (h *Handler) FreezeUser(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}

	profile.Frozen = true
	if err := h.store.Update(ctx, profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to freeze user",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}
