// Package metrics provides Prometheus instrumentation for the Portale platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portale",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// MissionsCompletedTotal counts completed missions by mission type.
	MissionsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "missions_completed_total",
			Help:      "Total missions completed by mission type.",
		},
		[]string{"type"},
	)

	// MissionAccessDeniedTotal counts denied mission access checks by reason.
	MissionAccessDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "mission_access_denied_total",
			Help:      "Total mission access denials by reason code.",
		},
		[]string{"reason"},
	)

	// VotesCastTotal counts governance votes by option.
	VotesCastTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "votes_cast_total",
			Help:      "Total governance votes cast by option.",
		},
		[]string{"option"},
	)

	// ProposalsFinalizedTotal counts finalized proposals by outcome.
	ProposalsFinalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "proposals_finalized_total",
			Help:      "Total proposals finalized by outcome.",
		},
		[]string{"outcome"},
	)

	// TokensDistributedTotal sums tokens credited to wallets by source.
	TokensDistributedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "tokens_distributed_total",
			Help:      "Total tokens credited to wallets by source.",
		},
		[]string{"source"},
	)

	// RankMilestonesTotal counts leaderboard milestone crossings by threshold.
	RankMilestonesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portale",
			Name:      "rank_milestones_total",
			Help:      "Total leaderboard milestone crossings by threshold.",
		},
		[]string{"milestone"},
	)

	// ActiveSessions tracks currently valid auth sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portale",
			Name:      "active_sessions",
			Help:      "Number of currently active auth sessions.",
		},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portale",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portale", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portale", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portale", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portale", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portale", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "portale", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MissionsCompletedTotal,
		MissionAccessDeniedTotal,
		VotesCastTotal,
		ProposalsFinalizedTotal,
		TokensDistributedTotal,
		RankMilestonesTotal,
		ActiveSessions,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
