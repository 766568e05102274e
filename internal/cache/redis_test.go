package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-gateway/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func stubRedisInit(t *testing.T, pingErr error) *string {
	t.Helper()
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return pingErr
	}
	return &capturedAddr
}

func TestInitRedisWithCustomAddr(t *testing.T) {
	addr := stubRedisInit(t, nil)

	client, err := InitRedis(context.Background(), "redis:9999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if *addr != "redis:9999" {
		t.Fatalf("expected custom addr, got %s", *addr)
	}
}

func TestInitRedisDefaults(t *testing.T) {
	addr := stubRedisInit(t, nil)

	client, err := InitRedis(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if *addr != "localhost:6379" {
		t.Fatalf("expected default addr, got %s", *addr)
	}
}

func TestInitRedisParsesURL(t *testing.T) {
	addr := stubRedisInit(t, nil)

	client, err := InitRedis(context.Background(), "redis://cache.internal:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()
	if *addr != "cache.internal:6380" {
		t.Fatalf("expected parsed addr, got %s", *addr)
	}
}

func TestInitRedisPingFailure(t *testing.T) {
	stubRedisInit(t, errors.New("connection refused"))

	if _, err := InitRedis(context.Background(), "localhost:1"); err == nil {
		t.Fatal("expected ping failure to be returned")
	}
}

func TestRedisCacheRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedis(client, 30*time.Second)
	ctx := context.Background()
	key := Key(snapshot())
	sig := domain.Signal{Action: domain.ActionHold, Confidence: domain.ConfidenceLow, Explanation: "x", Rule: "momentum_volume"}

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if err := c.Put(ctx, key, sig); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got != sig {
		t.Fatalf("expected %+v, got %+v", sig, got)
	}

	mr.FastForward(31 * time.Second)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatal("expected key to expire")
	}
}

func TestRedisCacheCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	_ = mr.Set("k", "{not json")
	if _, _, err := NewRedis(client, time.Minute).Get(context.Background(), "k"); err == nil {
		t.Fatal("expected decode error")
	}
}
