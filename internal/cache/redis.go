package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal-gateway/internal/domain"

	"github.com/redis/go-redis/v9"
)

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects to addr, which may be host:port or a redis:// URL.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// RedisClient is the subset of go-redis used by the shared cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type storedSignal struct {
	Action      domain.Action     `json:"signal"`
	Confidence  domain.Confidence `json:"confidence,omitempty"`
	Explanation string            `json:"explanation"`
	Rule        string            `json:"rule,omitempty"`
}

// Redis shares cached signals between instances. Expiry is delegated to the
// key TTL.
type Redis struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedis(client RedisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (domain.Signal, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Signal{}, false, nil
	}
	if err != nil {
		return domain.Signal{}, false, fmt.Errorf("redis get: %w", err)
	}
	var s storedSignal
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Signal{}, false, fmt.Errorf("decode cached signal: %w", err)
	}
	return domain.Signal{
		Action:      s.Action,
		Confidence:  s.Confidence,
		Explanation: s.Explanation,
		Rule:        s.Rule,
	}, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, sig domain.Signal) error {
	raw, err := json.Marshal(storedSignal{
		Action:      sig.Action,
		Confidence:  sig.Confidence,
		Explanation: sig.Explanation,
		Rule:        sig.Rule,
	})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
