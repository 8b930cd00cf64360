package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yield-service/yield_service/pkg/logger"
)

// DBPinger is satisfied by *sql.DB and *sqlx.DB
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger is satisfied by the redis cache client
type CachePinger interface {
	Ping(ctx context.Context) error
}

// CoreHandlers contains health, version, and metrics handlers
type CoreHandlers struct {
	db        DBPinger
	cache     CachePinger
	version   string
	startTime time.Time
	logger    *logger.Logger
}

// NewCoreHandlers creates a new core handlers instance. cache may be nil when
// redis is disabled.
func NewCoreHandlers(db DBPinger, cache CachePinger, version string, logger *logger.Logger) *CoreHandlers {
	return &CoreHandlers{
		db:        db,
		cache:     cache,
		version:   version,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck represents a health check result
type HealthCheck struct {
	Service   string        `json:"service"`
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    time.Duration          `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// Health performs dependency health checks. The cache is optional, so a
// failing redis degrades the service instead of failing it.
func (h *CoreHandlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	overallStatus := "healthy"

	dbCheck := h.check(ctx, "database", h.db.PingContext)
	checks["database"] = dbCheck
	if dbCheck.Status != "healthy" {
		overallStatus = "unhealthy"
	}

	if h.cache != nil {
		cacheCheck := h.check(ctx, "cache", h.cache.Ping)
		checks["cache"] = cacheCheck
		if cacheCheck.Status != "healthy" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
		h.logger.Warn("Health check failed", "checks", checks)
	}

	c.JSON(statusCode, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime),
		Checks:    checks,
	})
}

// Ready checks if the application is ready to serve traffic
func (h *CoreHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbCheck := h.check(ctx, "database", h.db.PingContext)
	ready := dbCheck.Status == "healthy"
	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"timestamp": time.Now(),
		"checks": gin.H{
			"database": dbCheck,
		},
	})
}

// Live checks if the application is alive
func (h *CoreHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime),
	})
}

// Version returns the application version
func (h *CoreHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.version})
}

func (h *CoreHandlers) check(ctx context.Context, service string, ping func(context.Context) error) HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Service:   service,
		Timestamp: start,
	}

	err := ping(ctx)
	check.Latency = time.Since(start)

	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
	} else {
		check.Status = "healthy"
	}
	return check
}

// Metrics exposes Prometheus metrics
func Metrics() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
