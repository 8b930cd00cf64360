package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TieredConfig defines tiered rate limiting configuration
type TieredConfig struct {
	IPLimit        int64
	IPWindow       time.Duration
	EndpointLimits map[string]EndpointLimit
}

// EndpointLimit defines rate limit for a specific route pattern
type EndpointLimit struct {
	Limit  int64
	Window time.Duration
}

// TieredLimiter implements sliding-window rate limiting on redis sorted sets
type TieredLimiter struct {
	redis  redis.Cmdable
	config TieredConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewTieredLimiter creates a new tiered rate limiter
func NewTieredLimiter(client redis.Cmdable, config TieredConfig, logger *zap.Logger) *TieredLimiter {
	return &TieredLimiter{
		redis:  client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// CheckResult contains the result of a rate limit check
type CheckResult struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
	LimitedBy  string
}

// Check runs the IP tier first, then the endpoint tier for the route
func (l *TieredLimiter) Check(ctx context.Context, ip, endpoint string) (*CheckResult, error) {
	result := &CheckResult{Allowed: true, Remaining: -1}

	if l.config.IPLimit > 0 && ip != "" {
		allowed, remaining, err := l.checkLimit(ctx, "ip", ip, l.config.IPLimit, l.config.IPWindow)
		if err != nil {
			return nil, err
		}
		result.Limit, result.Remaining = l.config.IPLimit, remaining
		if !allowed {
			return l.denied("ip", l.config.IPLimit, l.config.IPWindow), nil
		}
	}

	if endpointLimit, ok := l.config.EndpointLimits[endpoint]; ok && endpointLimit.Limit > 0 {
		key := fmt.Sprintf("%s:%s", endpoint, ip)
		allowed, remaining, err := l.checkLimit(ctx, "endpoint", key, endpointLimit.Limit, endpointLimit.Window)
		if err != nil {
			return nil, err
		}
		result.Limit, result.Remaining = endpointLimit.Limit, remaining
		if !allowed {
			return l.denied("endpoint", endpointLimit.Limit, endpointLimit.Window), nil
		}
	}

	return result, nil
}

func (l *TieredLimiter) denied(tier string, limit int64, window time.Duration) *CheckResult {
	return &CheckResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    l.now().Add(window),
		RetryAfter: window,
		LimitedBy:  tier,
	}
}

func (l *TieredLimiter) checkLimit(ctx context.Context, tier, key string, limit int64, window time.Duration) (bool, int64, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", tier, key)
	now := l.now()
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", windowStart)
	countCmd := pipe.ZCount(ctx, redisKey, windowStart, "+inf")
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, redisKey, window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := countCmd.Val()
	remaining := limit - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return count < limit, remaining, nil
}

// Middleware enforces the limiter on gin routes. Redis failures fail open.
func (l *TieredLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		result, err := l.Check(c.Request.Context(), c.ClientIP(), route)
		if err != nil {
			l.logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("route", route),
				zap.Error(err))
			c.Next()
			return
		}

		if result.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		}

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			l.logger.Info("Rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("route", route),
				zap.String("tier", result.LimitedBy))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RATE_LIMIT_EXCEEDED",
				"message": "Too many requests",
				"details": map[string]interface{}{
					"retry_after_seconds": int(result.RetryAfter.Seconds()),
					"limited_by":          result.LimitedBy,
				},
			})
			return
		}

		c.Next()
	}
}
