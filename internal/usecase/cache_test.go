package usecase

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mtsatou/mte-core/internal/infra/config"
	redisinfra "github.com/mtsatou/mte-core/internal/infra/redis"
)

func newTestStore(t *testing.T) (*redisinfra.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	port, err := strconv.Atoi(server.Port())
	if err != nil {
		t.Fatalf("parse miniredis port: %v", err)
	}

	client := redisinfra.NewClient(config.RedisSettings{
		Enabled:           true,
		Host:              server.Host(),
		Port:              port,
		KeyPrefix:         "mte:",
		ReconnectInterval: time.Hour,
		DisconnectTimeout: time.Second,
	}, nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	return client, server
}

type cachedProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func TestCacheServiceObjectRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	cache := NewCacheService(store, time.Hour, nil)
	ctx := context.Background()

	in := cachedProfile{ID: 7, Username: "sato"}
	cache.SetObject(ctx, "user:7", in, time.Minute)

	var out cachedProfile
	if !cache.GetObject(ctx, "user:7", &out) {
		t.Fatalf("expected cache hit")
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestCacheServiceEntryExpires(t *testing.T) {
	store, server := newTestStore(t)
	cache := NewCacheService(store, time.Hour, nil)
	ctx := context.Background()

	cache.Set(ctx, "short", "v", time.Minute)
	if _, ok := cache.Get(ctx, "short"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	server.FastForward(2 * time.Minute)

	if _, ok := cache.Get(ctx, "short"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestCacheServiceDecodeFailureIsMiss(t *testing.T) {
	store, server := newTestStore(t)
	cache := NewCacheService(store, time.Hour, nil)

	if err := server.Set("mte:user:9", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	var out cachedProfile
	if cache.GetObject(context.Background(), "user:9", &out) {
		t.Fatalf("expected corrupt entry to read as a miss")
	}
}

func TestCacheServiceDelPatternGlobIsolation(t *testing.T) {
	store, _ := newTestStore(t)
	cache := NewCacheService(store, time.Hour, nil)
	ctx := context.Background()

	cache.Set(ctx, "user:1", "a", 0)
	cache.Set(ctx, "user:2", "b", 0)
	cache.Set(ctx, "session:user:3", "c", 0)
	cache.Set(ctx, "login:1", "d", 0)

	deleted := cache.DelPattern(ctx, "*user:*")
	if deleted != 3 {
		t.Fatalf("expected 3 deletions, got %d", deleted)
	}

	if _, ok := cache.Get(ctx, "login:1"); !ok {
		t.Fatalf("expected non-matching key to survive the sweep")
	}
	if _, ok := cache.Get(ctx, "user:1"); ok {
		t.Fatalf("expected matching key to be swept")
	}
}

func TestCacheServiceFailSilentWhenUnavailable(t *testing.T) {
	store, server := newTestStore(t)
	cache := NewCacheService(store, time.Hour, nil)
	ctx := context.Background()

	cache.Set(ctx, "k", "v", 0)

	server.Close()
	if err := store.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}

	if cache.IsAvailable() {
		t.Fatalf("expected cache to report unavailable")
	}

	// Every operation degrades to a silent no-op.
	cache.Set(ctx, "k2", "v", 0)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Fatalf("expected miss while unavailable")
	}
	if cache.Exists(ctx, "k") {
		t.Fatalf("expected Exists to report false while unavailable")
	}
	if ttl := cache.TTL(ctx, "k"); ttl != -1 {
		t.Fatalf("expected TTL -1 while unavailable, got %v", ttl)
	}
	if n := cache.DelPattern(ctx, "*"); n != 0 {
		t.Fatalf("expected DelPattern 0 while unavailable, got %d", n)
	}
}

func TestCacheServiceDefaultTTLApplied(t *testing.T) {
	store, server := newTestStore(t)
	cache := NewCacheService(store, 30*time.Minute, nil)

	cache.Set(context.Background(), "k", "v", 0)

	ttl := server.TTL("mte:k")
	if ttl <= 0 || ttl > 30*time.Minute {
		t.Fatalf("expected default ttl within (0, 30m], got %v", ttl)
	}
}
