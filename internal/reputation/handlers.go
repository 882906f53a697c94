package reputation

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProfileProvider supplies reputation totals for users. Implemented by the
// users store.
type ProfileProvider interface {
	ReputationOf(ctx context.Context, userID string) (int, error)
}

// Handler provides HTTP endpoints for reputation levels and feature access.
type Handler struct {
	provider ProfileProvider
}

// NewHandler creates a new reputation handler.
func NewHandler(provider ProfileProvider) *Handler {
	return &Handler{provider: provider}
}

// RegisterRoutes sets up reputation endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reputation/:id", h.GetReputation)
	r.GET("/reputation/:id/features", h.GetFeatures)
	r.GET("/reputation/levels", h.GetLevels)
}

// GetReputation returns a user's level and progress toward the next one.
func (h *Handler) GetReputation(c *gin.Context) {
	id := c.Param("id")
	points, err := h.provider.ReputationOf(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    id,
		"reputation": points,
		"level":      Level(points),
		"progress":   ProgressToNextLevel(points),
	})
}

// GetFeatures returns the feature set unlocked at a user's current level.
func (h *Handler) GetFeatures(c *gin.Context) {
	id := c.Param("id")
	points, err := h.provider.ReputationOf(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "user_not_found",
			"message": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  id,
		"level":    Level(points),
		"features": UnlockedFeatures(points),
	})
}

// GetLevels returns the full level ladder so clients can render it without
// hardcoding thresholds.
func (h *Handler) GetLevels(c *gin.Context) {
	levels := make([]gin.H, 0, MaxLevel+1)
	for lvl := 0; lvl <= MaxLevel; lvl++ {
		levels = append(levels, gin.H{
			"level":      lvl,
			"min_points": ReputationForLevel(lvl),
			"features":   UnlockedFeatures(ReputationForLevel(lvl)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}
