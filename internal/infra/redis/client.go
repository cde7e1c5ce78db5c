package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/config"
)

var (
	// ErrNotConnected indicates the backing store is unreachable. Layers above
	// must treat this as "cache unavailable", never as a failure of the
	// request being served.
	ErrNotConnected = errors.New("redis: not connected")
	// ErrKeyNotFound indicates the requested key is absent or expired.
	ErrKeyNotFound = errors.New("redis: key not found")
	// ErrDisconnectTimeout indicates the close did not finish within the bound.
	ErrDisconnectTimeout = errors.New("redis: disconnect timed out")
)

const (
	dialTimeout       = 5 * time.Second
	pingTimeout       = 2 * time.Second
	defaultReconnect  = 3 * time.Second
	defaultDisconnect = time.Second
)

type connectAttempt struct {
	done chan struct{}
	err  error
}

// Client wraps redis.Client with lifecycle management and key namespacing.
// All keys are transparently prefixed with the configured process-wide
// namespace so multiple applications can share one backing store.
type Client struct {
	client *red.Client
	logger *zap.Logger
	cfg    config.RedisSettings

	connected atomic.Bool

	mu      sync.Mutex
	attempt *connectAttempt
	watch   sync.Once
	closed  chan struct{}
}

// NewClient builds the client without dialing; call Connect to establish the
// connection.
func NewClient(cfg config.RedisSettings, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &red.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,

		DialTimeout:  dialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &Client{
		client: red.NewClient(opts),
		logger: logger,
		cfg:    cfg,
		closed: make(chan struct{}),
	}
}

// Connect establishes the backing connection. It is idempotent, and
// concurrent callers during an in-flight connect share the same outcome
// instead of racing duplicate attempts.
func (c *Client) Connect(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	if c.connected.Load() {
		return nil
	}

	c.mu.Lock()
	if c.connected.Load() {
		c.mu.Unlock()
		return nil
	}
	attempt := c.attempt
	if attempt == nil {
		attempt = &connectAttempt{done: make(chan struct{})}
		c.attempt = attempt
		go c.dial(attempt)
	}
	c.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) dial(attempt *connectAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	err := c.client.Ping(ctx).Err()

	c.mu.Lock()
	c.attempt = nil
	if err != nil {
		attempt.err = fmt.Errorf("redis ping failed: %w", err)
	} else {
		c.connected.Store(true)
		c.watch.Do(func() { go c.watchConnection() })
	}
	c.mu.Unlock()

	if err == nil {
		c.logger.Info("redis connection established",
			zap.String("host", c.cfg.Host),
			zap.Int("port", c.cfg.Port),
			zap.Int("db", c.cfg.DB),
			zap.String("key_prefix", c.cfg.KeyPrefix),
		)
	} else {
		c.logger.Warn("redis connection failed", zap.Error(err))
	}

	close(attempt.done)
}

// watchConnection pings at a fixed interval forever, flipping availability on
// failures and recoveries. Reconnection is retried indefinitely at the same
// interval.
func (c *Client) watchConnection() {
	interval := c.cfg.ReconnectInterval
	if interval <= 0 {
		interval = defaultReconnect
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			err := c.client.Ping(ctx).Err()
			cancel()

			was := c.connected.Load()
			if err != nil {
				c.connected.Store(false)
				if was {
					c.logger.Warn("redis connection lost, retrying",
						zap.Duration("interval", interval), zap.Error(err))
				}
				continue
			}

			c.connected.Store(true)
			if !was {
				c.logger.Info("redis connection restored")
			}
		}
	}
}

// Disconnect releases resources within a bounded timeout. Errors caused by
// the remote peer resetting the connection during shutdown mean the
// connection is already gone and count as success.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.mu.Unlock()

	if !c.connected.Swap(false) {
		return nil
	}

	timeout := c.cfg.DisconnectTimeout
	if timeout <= 0 {
		timeout = defaultDisconnect
	}

	done := make(chan error, 1)
	go func() { done <- c.client.Close() }()

	select {
	case err := <-done:
		if err != nil && !isPeerReset(err) {
			return fmt.Errorf("close redis client: %w", err)
		}
		c.logger.Info("redis connection closed")
		return nil
	case <-time.After(timeout):
		return ErrDisconnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isPeerReset(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "use of closed network connection")
}

// IsConnected reports whether the store is enabled and currently reachable.
func (c *Client) IsConnected() bool {
	return c.cfg.Enabled && c.connected.Load()
}

func (c *Client) key(key string) string {
	return c.cfg.KeyPrefix + key
}

func (c *Client) ensure() error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Get returns the value stored at key, or ErrKeyNotFound when absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ensure(); err != nil {
		return "", err
	}

	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

// Set stores value at key; a positive ttl bounds its lifetime, zero means no
// expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.ensure(); err != nil {
		return err
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Del removes key.
func (c *Client) Del(ctx context.Context, key string) error {
	if err := c.ensure(); err != nil {
		return err
	}

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.ensure(); err != nil {
		return false, err
	}

	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return n > 0, nil
}

// Expire applies ttl to key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.ensure(); err != nil {
		return err
	}

	if err := c.client.Expire(ctx, c.key(key), ttl).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}

	return nil
}

// TTL returns the remaining lifetime of key. Sentinel values pass through
// unchanged: -1 when the key has no expiry, -2 when it does not exist.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := c.ensure(); err != nil {
		return 0, err
	}

	ttl, err := c.client.TTL(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}

	return ttl, nil
}

// Keys enumerates keys matching the glob pattern, with the namespace prefix
// applied to the pattern and stripped from the results.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}

	keys, err := c.client.Keys(ctx, c.key(pattern)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, c.cfg.KeyPrefix))
	}

	return out, nil
}

// IncrWindow atomically increments key and applies window as its TTL unless
// one is already set. EXPIRE NX both sets the TTL exactly once per window and
// heals a counter left without expiry by a crash between the two steps, so a
// key can never degrade into a permanent lockout.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if err := c.ensure(); err != nil {
		return 0, err
	}

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, c.key(key))
	pipe.ExpireNX(ctx, c.key(key), window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr window: %w", err)
	}

	return incr.Val(), nil
}

// HealthCheck pings the backing store.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.ensure(); err != nil {
		return err
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

var _ port.KeyValueStore = (*Client)(nil)
