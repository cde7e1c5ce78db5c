package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/usecase"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a fixed-window limit for a route group.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// ProblemDetails is the RFC 9457 style payload returned on rejection.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
}

const (
	rateLimitProblemType  = "about:blank"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// ClientIPIdentifier scopes limits by client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// ClientIPPathIdentifier scopes limits by client IP and request path.
func ClientIPPathIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return fmt.Sprintf("%s:%s", ip, c.Request.URL.Path), true
	}
}

// RateLimit gates requests through the fixed-window limiter and decorates
// every response with X-RateLimit-* headers. When the backing store is down
// the limiter fails open and requests pass untouched.
func RateLimit(limiter *usecase.RateLimiter, log *zap.Logger, rule RateLimitRule) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if rule.Identifier == nil {
		rule.Identifier = ClientIPPathIdentifier()
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		if limiter == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}
		identifier = fmt.Sprintf("%s:%s", rule.Name, identifier)

		ctx := c.Request.Context()
		allowed := limiter.Allow(ctx, identifier, rule.Limit, rule.Window)
		status := limiter.Status(ctx, identifier)

		applyRateHeaders(c, rule.Limit, status)

		if allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(status.TTL.Seconds()))
		if retryAfter < 0 {
			retryAfter = 0
		}
		c.Writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))

		instance := c.FullPath()
		if instance == "" {
			instance = c.Request.URL.Path
		}

		log.Warn("rate limit exceeded",
			zap.String("rule", rule.Name),
			zap.String("identifier", identifier),
			zap.Int64("count", status.Count),
		)

		c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
			Type:       rateLimitProblemType,
			Title:      rateLimitProblemTitle,
			Status:     http.StatusTooManyRequests,
			Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
			Instance:   instance,
			RetryAfter: retryAfter,
		})
	}
}

// applyRateHeaders sets the standard X-RateLimit headers. Remaining is
// clamped at zero; Reset is an epoch-millisecond hint, 0 when the counter
// carries no TTL.
func applyRateHeaders(c *gin.Context, limit int, status usecase.RateStatus) {
	remaining := int64(limit) - status.Count
	if remaining < 0 {
		remaining = 0
	}

	var reset int64
	if status.TTL > 0 {
		reset = time.Now().Add(status.TTL).UnixMilli()
	}

	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
}
