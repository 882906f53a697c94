package ranking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/auth"
)

// Handler exposes the leaderboard over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new ranking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public leaderboard endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/leaderboard", h.GetLeaderboard)
	r.GET("/leaderboard/compare", h.CompareUsers)
	r.GET("/users/:id/rank", h.GetUserRank)
}

// RegisterAuthRoutes sets up endpoints that act on behalf of the caller.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.GET("/leaderboard/me", h.GetMyRank)
	r.GET("/leaderboard/report", h.GetMyReport)
}

// GetLeaderboard handles GET /v1/leaderboard?limit=50
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	entries, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build leaderboard"})
		return
	}
	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"total_users": total,
	})
}

// GetUserRank handles GET /v1/users/:id/rank
func (h *Handler) GetUserRank(c *gin.Context) {
	h.respondRank(c, c.Param("id"))
}

// GetMyRank handles GET /v1/leaderboard/me
func (h *Handler) GetMyRank(c *gin.Context) {
	h.respondRank(c, auth.AuthenticatedUserID(c))
}

func (h *Handler) respondRank(c *gin.Context, userID string) {
	entry, progress, err := h.service.UserRank(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotRanked) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not ranked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute rank"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry":    entry,
		"progress": progress,
	})
}

// CompareUsers handles GET /v1/leaderboard/compare?user1=usr_a&user2=usr_b
func (h *Handler) CompareUsers(c *gin.Context) {
	user1 := c.Query("user1")
	user2 := c.Query("user2")
	if user1 == "" || user2 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user1 and user2 are required"})
		return
	}

	cmp, err := h.service.CompareUsers(c.Request.Context(), user1, user2)
	if err != nil {
		if errors.Is(err, ErrUserNotRanked) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not ranked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compare users"})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// GetMyReport handles GET /v1/leaderboard/report
func (h *Handler) GetMyReport(c *gin.Context) {
	report, err := h.service.UserReport(c.Request.Context(), auth.AuthenticatedUserID(c))
	if err != nil {
		if errors.Is(err, ErrUserNotRanked) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not ranked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}
