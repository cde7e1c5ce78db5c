package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/port"
	redisinfra "github.com/mtsatou/mte-core/internal/infra/redis"
	"github.com/mtsatou/mte-core/internal/infra/telemetry"
)

// CacheService provides availability-gated structured caching on top of the
// key-value store. Every operation first checks availability and becomes a
// silent no-op (empty or negative result) when the store is down: the caching
// layer must never be a single point of failure for the primary request path.
// This fail-silent policy is deliberately different from the rate limiter's
// fail-open policy; do not unify them.
type CacheService struct {
	store      port.KeyValueStore
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	defaultTTL time.Duration
}

// NewCacheService wires a cache service over the shared key-value store.
// defaultTTL applies whenever a caller passes a non-positive TTL.
func NewCacheService(store port.KeyValueStore, defaultTTL time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}

	return &CacheService{
		store:      store,
		logger:     logger,
		defaultTTL: defaultTTL,
	}
}

// WithMetrics attaches Prometheus collectors for cache outcomes.
func (s *CacheService) WithMetrics(m *telemetry.Metrics) *CacheService {
	s.metrics = m
	return s
}

// IsAvailable reports whether the underlying store is connected and caching
// is administratively enabled.
func (s *CacheService) IsAvailable() bool {
	return s.store != nil && s.store.IsConnected()
}

func (s *CacheService) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

// Set stores a raw string value.
func (s *CacheService) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !s.IsAvailable() {
		return
	}

	if err := s.store.Set(ctx, key, value, s.ttlOrDefault(ttl)); err != nil {
		s.absorb("cache set failed", key, err)
	}
}

// Get returns the raw string value for key; a miss or unavailable store
// yields ("", false).
func (s *CacheService) Get(ctx context.Context, key string) (string, bool) {
	if !s.IsAvailable() {
		return "", false
	}

	val, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redisinfra.ErrKeyNotFound) {
			s.absorb("cache get failed", key, err)
		}
		s.miss()
		return "", false
	}

	s.hit()
	return val, true
}

// SetObject stores value JSON-serialized.
func (s *CacheService) SetObject(ctx context.Context, key string, value any, ttl time.Duration) {
	if !s.IsAvailable() {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.absorb("cache marshal failed", key, err)
		return
	}

	if err := s.store.Set(ctx, key, string(raw), s.ttlOrDefault(ttl)); err != nil {
		s.absorb("cache set failed", key, err)
	}
}

// GetObject deserializes the cached JSON at key into out. A deserialization
// failure is treated as a cache miss (logged, not raised).
func (s *CacheService) GetObject(ctx context.Context, key string, out any) bool {
	if !s.IsAvailable() {
		return false
	}

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redisinfra.ErrKeyNotFound) {
			s.absorb("cache get failed", key, err)
		}
		s.miss()
		return false
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Warn("cache decode failed, treating as miss",
			zap.String("key", key), zap.Error(err))
		s.miss()
		return false
	}

	s.hit()
	return true
}

// Del removes a key.
func (s *CacheService) Del(ctx context.Context, key string) {
	if !s.IsAvailable() {
		return
	}

	if err := s.store.Del(ctx, key); err != nil {
		s.absorb("cache del failed", key, err)
	}
}

// Exists reports whether key is present; false when unavailable.
func (s *CacheService) Exists(ctx context.Context, key string) bool {
	if !s.IsAvailable() {
		return false
	}

	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		s.absorb("cache exists failed", key, err)
		return false
	}

	return ok
}

// Expire applies a TTL to key.
func (s *CacheService) Expire(ctx context.Context, key string, ttl time.Duration) {
	if !s.IsAvailable() {
		return
	}

	if err := s.store.Expire(ctx, key, ttl); err != nil {
		s.absorb("cache expire failed", key, err)
	}
}

// TTL returns the remaining lifetime of key, or -1 when unavailable.
func (s *CacheService) TTL(ctx context.Context, key string) time.Duration {
	if !s.IsAvailable() {
		return -1
	}

	ttl, err := s.store.TTL(ctx, key)
	if err != nil {
		s.absorb("cache ttl failed", key, err)
		return -1
	}

	return ttl
}

// DelPattern enumerates keys matching the glob pattern and deletes them one
// by one. The sweep is O(matching keys) and non-atomic: a key created after
// enumeration begins may survive it. A failed delete is logged and the sweep
// continues.
func (s *CacheService) DelPattern(ctx context.Context, pattern string) int {
	if !s.IsAvailable() {
		return 0
	}

	keys, err := s.store.Keys(ctx, pattern)
	if err != nil {
		s.absorb("cache pattern enumeration failed", pattern, err)
		return 0
	}

	deleted := 0
	for _, key := range keys {
		if err := s.store.Del(ctx, key); err != nil {
			s.absorb("cache pattern delete failed", key, err)
			continue
		}
		deleted++
	}

	return deleted
}

func (s *CacheService) absorb(msg, key string, err error) {
	if errors.Is(err, redisinfra.ErrNotConnected) {
		// Store went away mid-operation; degraded, not an error condition.
		return
	}
	if s.metrics != nil {
		s.metrics.CacheErrors.Inc()
	}
	s.logger.Warn(msg, zap.String("key", key), zap.Error(err))
}

func (s *CacheService) hit() {
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
}

func (s *CacheService) miss() {
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
}
