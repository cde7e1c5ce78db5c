package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/usecase"
)

// CacheKeyFunc derives the cache key for a request. Returning false skips
// caching for that request.
type CacheKeyFunc func(*gin.Context) (string, bool)

// cachedResponse is the stored representation of a cacheable response.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyCapture buffers the response body while still streaming it to the
// client, so a successful response can be stored after the handler runs.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// DefaultCacheKey keys responses by method and full URL, query included.
func DefaultCacheKey() CacheKeyFunc {
	return func(c *gin.Context) (string, bool) {
		return domain.ResponseCacheKey(c.Request.Method, c.Request.URL.RequestURI()), true
	}
}

// UserScopedCacheKey keys responses by method, path and authenticated user,
// so per-user payloads never leak across principals. The "user:<id>" suffix
// keeps these entries inside the user-key sweep pattern.
func UserScopedCacheKey() CacheKeyFunc {
	return func(c *gin.Context) (string, bool) {
		userID, ok := AuthenticatedUserID(c)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("cache:%s:%s:user:%d", c.Request.Method, c.Request.URL.Path, userID), true
	}
}

// CacheResponse serves GET responses from the cache when present and stores
// successful ones on miss. The cache is an accelerator only: when the store
// is unavailable requests flow straight through with no error surfaced.
func CacheResponse(cache *usecase.CacheService, log *zap.Logger, ttl time.Duration, keyFn CacheKeyFunc) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if keyFn == nil {
		keyFn = DefaultCacheKey()
	}

	return func(c *gin.Context) {
		if cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key, ok := keyFn(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		var stored cachedResponse
		if cache.GetObject(ctx, key, &stored) {
			c.Writer.Header().Set("X-Cache", "HIT")
			if stored.ContentType != "" {
				c.Writer.Header().Set("Content-Type", stored.ContentType)
			}
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		c.Writer.Header().Set("X-Cache", "MISS")
		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture

		c.Next()

		status := capture.Status()
		if status < 200 || status > 299 {
			return
		}

		cache.SetObject(ctx, key, cachedResponse{
			Status:      status,
			ContentType: capture.Header().Get("Content-Type"),
			Body:        capture.buf.Bytes(),
		}, ttl)

		log.Debug("response cached", zap.String("key", key), zap.Int("status", status))
	}
}

// InvalidateUserCache drops the per-user cache entries after a mutating
// handler succeeds. Failures are best effort and never affect the response.
func InvalidateUserCache(cache *usecase.CacheService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		c.Next()

		if cache == nil {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status > 299 {
			return
		}
		userID, ok := AuthenticatedUserID(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		keys := []string{
			domain.UserCacheKey(userID),
			domain.UserLoginCacheKey(userID),
			domain.UserPermissionsCacheKey(userID),
		}
		for _, key := range keys {
			cache.Del(ctx, key)
		}

		// Cached responses keyed by UserScopedCacheKey carry a user:<id> suffix.
		swept := cache.DelPattern(ctx, fmt.Sprintf("cache:*:user:%d", userID))

		log.Debug("user cache invalidated",
			zap.Int64("user_id", userID), zap.Int("responses_swept", swept))
	}
}
