package governance

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/auth"
)

// Handler provides HTTP endpoints for governance.
type Handler struct {
	store   Store
	service *Service
}

// NewHandler creates a new governance handler.
func NewHandler(store Store, service *Service) *Handler {
	return &Handler{store: store, service: service}
}

// RegisterRoutes sets up public read endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/proposals", h.ListProposals)
	r.GET("/proposals/:id", h.GetProposal)
	r.GET("/proposals/:id/results", h.GetResults)
	r.GET("/governance/stats", h.GetOverview)
}

// RegisterAuthRoutes sets up endpoints that act on behalf of the caller.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.POST("/proposals", h.CreateProposal)
	r.POST("/proposals/:id/votes", h.CastVote)
	r.GET("/me/participation", h.GetParticipation)
}

// RegisterAdminRoutes sets up operator endpoints.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/proposals/:id/finalize", h.FinalizeProposal)
	r.POST("/proposals/:id/implement", h.ImplementProposal)
	r.POST("/proposals/:id/cancel", h.CancelProposal)
}

// CreateProposalRequest is the request body for POST /proposals.
type CreateProposalRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Body        string `json:"body" binding:"required"`
}

// CreateProposal opens a new proposal for voting.
func (h *Handler) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "title, description and body are required",
		})
		return
	}

	authorID := auth.AuthenticatedUserID(c)
	proposal, err := h.service.CreateProposal(c.Request.Context(),
		authorID, req.Title, req.Description, req.Body)
	if err != nil {
		var denied *CreateDeniedError
		if errors.As(err, &denied) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   string(denied.Check.Reason),
				"message": denied.Check.Message,
			})
			return
		}
		var invalid *InvalidContentError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_content",
				"message": "Proposal content failed validation",
				"errors":  invalid.Errors,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create proposal",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proposal": proposal})
}

// ListProposals returns proposals, optionally filtered by status.
func (h *Handler) ListProposals(c *gin.Context) {
	list, err := h.store.ListProposals(c.Request.Context(), ListFilter{
		Status: Status(c.Query("status")),
		Limit:  100,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list proposals",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": list, "count": len(list)})
}

// GetProposal returns a proposal with its derived lifecycle phase.
func (h *Handler) GetProposal(c *gin.Context) {
	proposal, err := h.store.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "proposal_not_found",
			"message": "Proposal not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposal":  proposal,
		"lifecycle": Lifecycle(proposal, time.Now()),
	})
}

// GetResults returns the live tally for a proposal.
func (h *Handler) GetResults(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.store.GetProposal(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "proposal_not_found",
			"message": "Proposal not found",
		})
		return
	}

	tally, err := h.service.Results(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "tally_failed",
			"message": "Failed to tally votes",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": tally})
}

// CastVoteRequest is the request body for POST /proposals/:id/votes.
type CastVoteRequest struct {
	Vote VoteOption `json:"vote" binding:"required"`
}

// CastVote records the caller's ballot on a proposal.
func (h *Handler) CastVote(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Vote.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "vote must be one of: for, against, abstain",
		})
		return
	}

	userID := auth.AuthenticatedUserID(c)
	vote, err := h.service.CastVote(c.Request.Context(), c.Param("id"), userID, req.Vote)
	if err != nil {
		switch {
		case errors.Is(err, ErrProposalNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "proposal_not_found",
				"message": "Proposal not found",
			})
		case errors.Is(err, ErrVotingClosed):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "voting_closed",
				"message": "Voting is not open for this proposal",
			})
		case errors.Is(err, ErrAlreadyVoted):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_voted",
				"message": "You have already voted on this proposal",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "vote_failed",
				"message": "Failed to cast vote",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vote": vote})
}

// GetParticipation returns the caller's governance engagement score.
func (h *Handler) GetParticipation(c *gin.Context) {
	userID := auth.AuthenticatedUserID(c)
	score, err := h.service.ParticipationReport(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "report_failed",
			"message": "Failed to compute participation score",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "participation_score": score})
}

// GetOverview returns catalog-level proposal counts.
func (h *Handler) GetOverview(c *gin.Context) {
	list, err := h.store.ListProposals(c.Request.Context(), ListFilter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "stats_failed",
			"message": "Failed to compute governance stats",
		})
		return
	}

	var userCount int
	if userID := auth.AuthenticatedUserID(c); userID != "" {
		if counts, err := h.store.CountsByAuthor(c.Request.Context(), userID); err == nil {
			userCount = counts.Total
		}
	}
	c.JSON(http.StatusOK, gin.H{"stats": Overview(list, userCount)})
}

// FinalizeProposal forces an outcome decision, normally driven by the
// background timer.
func (h *Handler) FinalizeProposal(c *gin.Context) {
	proposal, outcome, err := h.service.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrProposalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "proposal_not_found",
				"message": "Proposal not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "finalize_failed",
			"message": "Failed to finalize proposal",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": proposal, "outcome": outcome})
}

// ImplementProposal marks a passed proposal as carried out.
func (h *Handler) ImplementProposal(c *gin.Context) {
	proposal, err := h.service.MarkImplemented(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

// CancelProposalRequest is the request body for POST /admin/proposals/:id/cancel.
type CancelProposalRequest struct {
	Reason string `json:"reason"`
}

// CancelProposal withdraws a proposal before it settles.
func (h *Handler) CancelProposal(c *gin.Context) {
	var req CancelProposalRequest
	_ = c.ShouldBindJSON(&req)

	proposal, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondTransitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposal": proposal})
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProposalNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "proposal_not_found",
			"message": "Proposal not found",
		})
	case errors.Is(err, ErrBadTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "transition_failed",
			"message": "Failed to update proposal",
		})
	}
}
