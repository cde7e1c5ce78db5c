package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/core/port"
	redisinfra "github.com/mtsatou/mte-core/internal/infra/redis"
	"github.com/mtsatou/mte-core/internal/infra/telemetry"
)

// RateLimiter enforces fixed-window request limits on atomic counters in the
// key-value store. Counts reset at window boundaries rather than sliding, so
// a burst of up to 2x the limit can span a boundary; that is a known
// approximation of this algorithm, not a defect to fix by switching to a
// sliding window.
//
// When the backing store is unavailable the limiter fails OPEN: availability
// of legitimate traffic wins over strict enforcement. This is deliberately
// the opposite of CacheService's fail-silent policy.
type RateLimiter struct {
	store   port.KeyValueStore
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// RateStatus is a read-only snapshot of a window counter.
type RateStatus struct {
	Count int64
	TTL   time.Duration
}

// NewRateLimiter wires a limiter over the shared key-value store.
func NewRateLimiter(store port.KeyValueStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger}
}

// WithMetrics attaches Prometheus collectors for limiter decisions.
func (l *RateLimiter) WithMetrics(m *telemetry.Metrics) *RateLimiter {
	l.metrics = m
	return l
}

// Allow atomically counts a request against the identifier's current window
// and reports whether it is within limit. The window TTL is applied exactly
// once, on the counter's first increment, and never refreshed by later
// increments within the window.
func (l *RateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) bool {
	if l.store == nil || !l.store.IsConnected() {
		l.failOpen(identifier, nil)
		return true
	}

	count, err := l.store.IncrWindow(ctx, domain.RateLimitKey(identifier), window)
	if err != nil {
		l.failOpen(identifier, err)
		return true
	}

	if count <= int64(limit) {
		if l.metrics != nil {
			l.metrics.RateAllowed.Inc()
		}
		return true
	}

	if l.metrics != nil {
		l.metrics.RateDenied.Inc()
	}
	return false
}

// Status returns the identifier's current count and remaining window without
// perturbing the counter. An absent counter reads as zero; an unavailable
// store reads as {0, -1}.
func (l *RateLimiter) Status(ctx context.Context, identifier string) RateStatus {
	if l.store == nil || !l.store.IsConnected() {
		return RateStatus{Count: 0, TTL: -1}
	}

	key := domain.RateLimitKey(identifier)

	var count int64
	raw, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		count = parseCount(raw)
	case errors.Is(err, redisinfra.ErrKeyNotFound):
		count = 0
	default:
		return RateStatus{Count: 0, TTL: -1}
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil || ttl < 0 {
		ttl = 0
	}

	return RateStatus{Count: count, TTL: ttl}
}

func (l *RateLimiter) failOpen(identifier string, err error) {
	if l.metrics != nil {
		l.metrics.RateFailOpen.Inc()
	}
	if err != nil && !errors.Is(err, redisinfra.ErrNotConnected) {
		l.logger.Warn("rate limit check failed, allowing request",
			zap.String("identifier", identifier), zap.Error(err))
	}
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
