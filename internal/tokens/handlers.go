package tokens

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/portale-hq/portale/internal/auth"
	"github.com/portale-hq/portale/internal/metrics"
)

// Handler provides HTTP endpoints for wallets and staking.
type Handler struct {
	service *Service
}

// NewHandler creates a new tokens handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public token endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tokens/circulation", h.GetCirculation)
	r.GET("/tokens/staking-quote", h.GetStakingQuote)
}

// RegisterAuthRoutes sets up endpoints that act on the caller's wallet.
func (h *Handler) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.GET("/me/wallet", h.GetMyWallet)
	r.GET("/me/transactions", h.ListMyTransactions)
	r.GET("/me/voting-power", h.GetMyVotingPower)
	r.POST("/me/stake", h.Stake)
	r.POST("/me/unstake", h.Unstake)
}

// RegisterAdminRoutes sets up operator-only wallet endpoints.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/users/:id/credit", h.AdminCredit)
	r.POST("/users/:id/rank-bonus", h.AdminRankBonus)
}

// GetMyWallet handles GET /v1/me/wallet
func (h *Handler) GetMyWallet(c *gin.Context) {
	w, err := h.service.Wallet(c.Request.Context(), auth.AuthenticatedUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// ListMyTransactions handles GET /v1/me/transactions?limit=50
func (h *Handler) ListMyTransactions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	txs, err := h.service.Transactions(c.Request.Context(), auth.AuthenticatedUserID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// GetMyVotingPower handles GET /v1/me/voting-power
func (h *Handler) GetMyVotingPower(c *gin.Context) {
	weight, err := h.service.VotingPower(c.Request.Context(), auth.AuthenticatedUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute voting power"})
		return
	}
	c.JSON(http.StatusOK, weight)
}

// StakeRequest is the request body for stake and unstake.
type StakeRequest struct {
	Amount int `json:"amount" binding:"required"`
}

// Stake handles POST /v1/me/stake
func (h *Handler) Stake(c *gin.Context) {
	var req StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	w, err := h.service.Stake(c.Request.Context(), auth.AuthenticatedUserID(c), req.Amount)
	if err != nil {
		respondWalletError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Unstake handles POST /v1/me/unstake
func (h *Handler) Unstake(c *gin.Context) {
	var req StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	result, err := h.service.Unstake(c.Request.Context(), auth.AuthenticatedUserID(c), req.Amount)
	if err != nil {
		respondWalletError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStakingQuote handles GET /v1/tokens/staking-quote?amount=100&days=30
func (h *Handler) GetStakingQuote(c *gin.Context) {
	amount, err := strconv.Atoi(c.DefaultQuery("amount", "0"))
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reward":     ComputeStakingReward(amount, days),
		"withdrawal": EarlyWithdrawalPenalty(amount, days),
	})
}

// GetCirculation handles GET /v1/tokens/circulation
func (h *Handler) GetCirculation(c *gin.Context) {
	stats, err := h.service.CirculationStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to estimate circulation"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AdminCreditRequest is the request body for POST /admin/users/:id/credit.
type AdminCreditRequest struct {
	Amount      int    `json:"amount" binding:"required"`
	Description string `json:"description"`
}

// AdminCredit handles POST /admin/users/:id/credit
func (h *Handler) AdminCredit(c *gin.Context) {
	var req AdminCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	description := req.Description
	if description == "" {
		description = "manual credit"
	}

	userID := c.Param("id")
	if err := h.service.Credit(c.Request.Context(), userID, req.Amount, description); err != nil {
		respondWalletError(c, err)
		return
	}
	metrics.TokensDistributedTotal.WithLabelValues("manual").Add(float64(req.Amount))

	w, err := h.service.Wallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// AdminRankBonusRequest is the request body for POST /admin/users/:id/rank-bonus.
type AdminRankBonusRequest struct {
	Rank int `json:"rank" binding:"required,min=1"`
}

// AdminRankBonus handles POST /admin/users/:id/rank-bonus. Pays the
// leaderboard bonus for the user's rank; ranks outside the bonus tiers
// pay nothing.
func (h *Handler) AdminRankBonus(c *gin.Context) {
	var req AdminRankBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rank is required"})
		return
	}

	userID := c.Param("id")
	bonus, err := h.service.AwardRankBonus(c.Request.Context(), userID, req.Rank)
	if err != nil {
		respondWalletError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"rank":    req.Rank,
		"bonus":   bonus,
	})
}

func respondWalletError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient token balance"})
	case errors.Is(err, ErrInsufficientStake):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient staked tokens"})
	case errors.Is(err, ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet operation failed"})
	}
}
