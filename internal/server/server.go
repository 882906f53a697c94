// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/portale-hq/portale/internal/activity"
	"github.com/portale-hq/portale/internal/auth"
	"github.com/portale-hq/portale/internal/config"
	"github.com/portale-hq/portale/internal/governance"
	"github.com/portale-hq/portale/internal/health"
	"github.com/portale-hq/portale/internal/logging"
	"github.com/portale-hq/portale/internal/metrics"
	"github.com/portale-hq/portale/internal/missions"
	"github.com/portale-hq/portale/internal/ranking"
	"github.com/portale-hq/portale/internal/ratelimit"
	"github.com/portale-hq/portale/internal/realtime"
	"github.com/portale-hq/portale/internal/reputation"
	"github.com/portale-hq/portale/internal/security"
	"github.com/portale-hq/portale/internal/tokens"
	"github.com/portale-hq/portale/internal/users"
	"github.com/portale-hq/portale/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg *config.Config

	profiles     users.Store
	missionStore missions.Store
	govStore     governance.Store

	authMgr     *auth.Manager
	tokenSvc    *tokens.Service
	missionSvc  *missions.Service
	govSvc      *governance.Service
	rankingSvc  *ranking.Service
	activitySvc *activity.Service
	realtimeHub *realtime.Hub
	rateLimiter *ratelimit.Limiter
	healthReg   *health.Registry

	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		authStore     auth.Store
		missionStore  missions.Store
		govStore      governance.Store
		tokenStore    tokens.Store
		activityStore activity.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.profiles = users.NewPostgresStore(db)
		authStore = auth.NewPostgresStore(db)
		missionStore = missions.NewPostgresStore(db)
		govStore = governance.NewPostgresStore(db)
		tokenStore = tokens.NewPostgresStore(db)
		activityStore = activity.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		s.profiles = users.NewMemoryStore()
		authStore = auth.NewMemoryStore()
		missionStore = missions.NewMemoryStore()
		govStore = governance.NewMemoryStore()
		tokenStore = tokens.NewMemoryStore()
		activityStore = activity.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)

	// Services. The activity feed and realtime hub are shared collaborators;
	// the token service backs both mission rewards and governance weight.
	s.missionStore = missionStore
	s.govStore = govStore
	s.activitySvc = activity.NewService(activityStore, s.realtimeHub, s.logger)
	s.authMgr = auth.NewManager(authStore, s.profiles, cfg.SessionTTL)
	s.tokenSvc = tokens.NewService(tokenStore, s.profiles, s.activitySvc, s.logger)
	s.missionSvc = missions.NewService(missionStore, s.profiles, s.tokenSvc,
		s.realtimeHub, s.activitySvc, s.logger)
	s.govSvc = governance.NewService(govStore, s.profiles, s.tokenSvc,
		s.realtimeHub, s.activitySvc, cfg.EligibleVoterFloor, s.logger)
	s.rankingSvc = ranking.NewService(s.profiles, s.realtimeHub, s.logger)

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", health.DBChecker("database", s.db.PingContext))
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

// reputationAdapter exposes profile reputation totals to the reputation
// endpoints.
type reputationAdapter struct {
	store users.Store
}

func (a *reputationAdapter) ReputationOf(ctx context.Context, userID string) (int, error) {
	p, err := a.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.Reputation, nil
}

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// WebSocket for real-time streaming
	s.router.GET("/v1/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})
	s.router.GET("/v1/ws/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.realtimeHub.Stats())
	})

	// Handlers
	usersHandler := users.NewHandler(s.profiles)
	authHandler := auth.NewHandler(s.authMgr, s.profiles)
	reputationHandler := reputation.NewHandler(&reputationAdapter{s.profiles})
	missionsHandler := missions.NewHandler(s.missionStore, s.missionSvc)
	govHandler := governance.NewHandler(s.govStore, s.govSvc)
	tokensHandler := tokens.NewHandler(s.tokenSvc)
	rankingHandler := ranking.NewHandler(s.rankingSvc)
	activityHandler := activity.NewHandler(s.activitySvc)

	// V1 API group
	v1 := s.router.Group("/v1")

	// PUBLIC ROUTES (no auth required): login plus read-only surfaces
	authHandler.RegisterRoutes(v1)
	usersHandler.RegisterRoutes(v1)
	reputationHandler.RegisterRoutes(v1)
	missionsHandler.RegisterRoutes(v1)
	govHandler.RegisterRoutes(v1)
	tokensHandler.RegisterRoutes(v1)
	rankingHandler.RegisterRoutes(v1)
	activityHandler.RegisterRoutes(v1)
	v1.GET("/platform", s.platformHandler)

	// PROTECTED ROUTES (require session token)
	protected := v1.Group("")
	protected.Use(auth.Middleware(s.authMgr), auth.RequireAuth())
	{
		missionsHandler.RegisterAuthRoutes(protected)
		govHandler.RegisterAuthRoutes(protected)
		tokensHandler.RegisterAuthRoutes(protected)
		rankingHandler.RegisterAuthRoutes(protected)
		activityHandler.RegisterAuthRoutes(protected)
	}

	// ADMIN ROUTES (require operator secret)
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAdminSecret(s.cfg.AdminSecret))
	{
		usersHandler.RegisterAdminRoutes(admin)
		authHandler.RegisterAdminRoutes(admin)
		missionsHandler.RegisterAdminRoutes(admin)
		govHandler.RegisterAdminRoutes(admin)
		tokensHandler.RegisterAdminRoutes(admin)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.healthReg.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		state := "healthy"
		if !st.Healthy {
			state = "unhealthy"
		}
		checks[st.Name] = state
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Portale",
		"description": "Gamified community platform: missions, governance, reputation",
		"version":     "0.1.0",
	})
}

// platformHandler returns platform-wide counters for landing pages
func (s *Server) platformHandler(c *gin.Context) {
	ctx := c.Request.Context()

	userCount, err := s.profiles.Count(ctx)
	if err != nil {
		logging.L(ctx).Error("failed to count users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load platform stats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platform": gin.H{
			"name":    "Portale",
			"version": "0.1.0",
			"users":   userCount,
		},
		"realtime": s.realtimeHub.Stats(),
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Finalize governance proposals whose voting window has closed
	go s.runProposalFinalizer(runCtx)

	// Sweep expired auth sessions
	go s.runSessionSweeper(runCtx)

	// Sample DB pool stats into Prometheus gauges
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// runProposalFinalizer periodically closes proposals whose voting window
// has ended.
func (s *Server) runProposalFinalizer(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FinalizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.govSvc.FinalizeDue(ctx)
			if err != nil {
				s.logger.Error("proposal finalizer failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("finalized due proposals", "count", n)
			}
		}
	}
}

// runSessionSweeper periodically removes expired auth sessions.
func (s *Server) runSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.authMgr.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("swept expired sessions", "count", n)
			}
		}
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, finalizer, sweeper)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
