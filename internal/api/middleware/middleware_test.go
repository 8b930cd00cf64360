package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-service/yield_service/pkg/logger"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return router
}

func get(router *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksExcessRequests(t *testing.T) {
	router := newRouter(RateLimit(3))

	for i := 0; i < 3; i++ {
		w := get(router, "/ping", "192.168.1.1:12345")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should be allowed", i+1)
	}

	w := get(router, "/ping", "192.168.1.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimit_SeparateLimitsPerIP(t *testing.T) {
	router := newRouter(RateLimit(1))

	assert.Equal(t, http.StatusOK, get(router, "/ping", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/ping", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, get(router, "/ping", "10.0.0.2:1").Code)
}

func TestRateLimiter_CleanupDropsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.GetLimiter("10.0.0.1")
	rl.GetLimiter("10.0.0.2")
	now = now.Add(limiterIdleTTL / 2)
	rl.GetLimiter("10.0.0.2")
	now = now.Add(limiterIdleTTL/2 + time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func TestRateLimiter_SweepsOnAccess(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.GetLimiter("10.0.0.1")
	now = now.Add(limiterIdleTTL + time.Second)
	rl.GetLimiter("10.0.0.2")

	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func TestRequestID(t *testing.T) {
	router := newRouter(RequestID())

	w := get(router, "/ping", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	router := newRouter(RequestID(), Recovery(logger.NewNop()))

	w := get(router, "/panic", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestLoggerAndMetricsPassThrough(t *testing.T) {
	router := newRouter(RequestID(), Logger(logger.NewNop()), Metrics())

	assert.Equal(t, http.StatusOK, get(router, "/ping", "").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/missing", "").Code)
}

func TestCORS(t *testing.T) {
	router := newRouter(CORS([]string{"https://app.example.com"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	router := newRouter(SecurityHeaders())

	w := get(router, "/ping", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
