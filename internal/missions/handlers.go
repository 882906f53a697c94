package missions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/auth"
	"github.com/portale-hq/portale/internal/idgen"
)

// Handler provides HTTP endpoints for the mission catalog and participation.
type Handler struct {
	store   Store
	service *Service
}

// NewHandler creates a new missions handler.
func NewHandler(store Store, service *Service) *Handler {
	return &Handler{store: store, service: service}
}

// RegisterRoutes sets up mission endpoints. Participation routes require an
// authenticated session.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/missions", h.ListMissions)
	r.GET("/missions/stats", h.GetStats)
	r.GET("/missions/:id", h.GetMission)
}

// RegisterAuthRoutes sets up endpoints that act on behalf of the caller.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.GET("/missions/available", h.GetAvailable)
	r.GET("/missions/suggested", h.GetSuggested)
	r.GET("/missions/:id/access", h.CheckAccess)
	r.POST("/missions/:id/start", h.StartMission)
	r.POST("/missions/:id/complete", h.CompleteMission)
	r.GET("/me/progress", h.ListMyProgress)
}

// RegisterAdminRoutes sets up catalog management endpoints.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/missions", h.CreateMission)
}

// CreateMissionRequest is the request body for POST /admin/missions.
type CreateMissionRequest struct {
	Title              string `json:"title" binding:"required"`
	Description        string `json:"description"`
	Type               Type   `json:"type" binding:"required"`
	RewardTokens       int    `json:"reward_tokens"`
	ReputationGain     int    `json:"reputation_gain"`
	MinReputation      int    `json:"min_reputation_required"`
	MinLevel           int    `json:"min_level_required"`
	MaxParticipants    int    `json:"max_participants"`
	TimeAllowedSeconds int64  `json:"time_allowed_seconds"`
	ExpiresAt          string `json:"expires_at" binding:"required"`
}

// CreateMission adds a mission to the catalog.
func (h *Handler) CreateMission(c *gin.Context) {
	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "title, type and expires_at are required",
		})
		return
	}
	if !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Unknown mission type: " + string(req.Type),
		})
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "expires_at must be RFC3339",
		})
		return
	}

	mission := &Mission{
		ID:                 idgen.WithPrefix("msn_"),
		Title:              req.Title,
		Description:        req.Description,
		Type:               req.Type,
		Status:             StatusAvailable,
		RewardTokens:       req.RewardTokens,
		ReputationGain:     req.ReputationGain,
		MinReputation:      req.MinReputation,
		MinLevel:           req.MinLevel,
		MaxParticipants:    req.MaxParticipants,
		TimeAllowedSeconds: req.TimeAllowedSeconds,
		ExpiresAt:          expiresAt,
	}
	if err := h.store.Create(c.Request.Context(), mission); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create mission",
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mission": mission})
}

// ListMissions returns the catalog, optionally filtered by type and status.
func (h *Handler) ListMissions(c *gin.Context) {
	filter := ListFilter{
		Type:   Type(c.Query("type")),
		Status: Status(c.Query("status")),
		Limit:  100,
	}
	list, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list missions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": list, "count": len(list)})
}

// GetMission returns a single mission.
func (h *Handler) GetMission(c *gin.Context) {
	mission, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "mission_not_found",
			"message": "Mission not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mission": mission})
}

// GetStats returns catalog-level totals.
func (h *Handler) GetStats(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), ListFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "stats_failed",
			"message": "Failed to compute mission stats",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": Stats(list)})
}

// GetAvailable returns the missions the caller can take right now.
func (h *Handler) GetAvailable(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)
	list, err := h.service.Available(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list available missions",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": list, "count": len(list)})
}

// GetSuggested recommends the caller's next mission.
func (h *Handler) GetSuggested(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)
	mission, err := h.service.Suggest(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "suggest_failed",
			"message": "Failed to suggest a mission",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mission": mission})
}

// CheckAccess returns the eligibility verdict without starting the mission.
func (h *Handler) CheckAccess(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)
	check, err := h.service.CheckAccess(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrMissionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "mission_not_found",
				"message": "Mission not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "access_check_failed",
			"message": "Failed to check mission access",
		})
		return
	}
	c.JSON(http.StatusOK, check)
}

// StartMission begins the mission for the caller.
func (h *Handler) StartMission(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)
	progress, err := h.service.Start(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondMissionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// CompleteMissionRequest carries the typed completion payload plus the time
// the caller spent.
type CompleteMissionRequest struct {
	Completion       Completion `json:"completion"`
	TimeSpentSeconds int64      `json:"time_spent_seconds"`
}

// CompleteMission finishes the mission for the caller and pays out rewards.
func (h *Handler) CompleteMission(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)

	var req CompleteMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain a completion payload",
		})
		return
	}

	result, err := h.service.Complete(c.Request.Context(), userID, c.Param("id"),
		req.Completion, time.Duration(req.TimeSpentSeconds)*time.Second)
	if err != nil {
		respondMissionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyProgress returns the caller's mission progress records.
func (h *Handler) ListMyProgress(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)
	progress, err := h.store.ListProgress(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list mission progress",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress, "count": len(progress)})
}

func respondMissionError(c *gin.Context, err error) {
	var denied *AccessDeniedError
	if errors.As(err, &denied) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":           string(denied.Check.Reason),
			"message":         denied.Check.Message,
			"hours_remaining": denied.Check.HoursRemaining,
		})
		return
	}
	var invalid *InvalidCompletionError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid_completion",
			"message":        "Completion payload is missing required fields",
			"missing_fields": invalid.Missing,
		})
		return
	}
	if errors.Is(err, ErrMissionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "mission_not_found",
			"message": "Mission not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "mission_operation_failed",
		"message": "Mission operation failed",
	})
}
