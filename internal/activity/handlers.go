package activity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/auth"
	"github.com/portale-hq/portale/internal/pagination"
)

// Handler provides HTTP endpoints for the activity feed.
type Handler struct {
	service *Service
}

// NewHandler creates a new activity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the public feed endpoint.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/activity", h.GetFeed)
}

// RegisterAuthRoutes sets up the caller's own feed endpoint.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.GET("/me/activity", h.GetMyFeed)
}

// GetFeed handles GET /v1/activity?limit=50&cursor=...&kind=...
func (h *Handler) GetFeed(c *gin.Context) {
	h.respondFeed(c, "")
}

// GetMyFeed handles GET /v1/me/activity?limit=50&cursor=...
func (h *Handler) GetMyFeed(c *gin.Context) {
	h.respondFeed(c, auth.AuthenticatedUserID(c))
}

func (h *Handler) respondFeed(c *gin.Context, userID string) {
	requested, _ := strconv.Atoi(c.Query("limit"))
	limit := pagination.ParseLimit(requested, 50, 200)

	opts := []ListOption{}
	if cursor := c.Query("cursor"); cursor != "" {
		opts = append(opts, WithCursor(cursor))
	}
	if kind := c.Query("kind"); kind != "" {
		opts = append(opts, WithKind(kind))
	}
	if userID != "" {
		opts = append(opts, WithUser(userID))
	}

	page, err := h.service.Feed(c.Request.Context(), limit, opts...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity feed"})
		return
	}
	c.JSON(http.StatusOK, page)
}
