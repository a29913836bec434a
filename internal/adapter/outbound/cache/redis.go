package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// Redis shares cached feed responses between replicas. Purge bumps a generation
// counter so stale entries become unreachable and age out through their TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

type RedisConfig struct {
	URL    string
	Prefix string
	TTL    time.Duration
}

// NewRedis parses the URL and verifies the server answers a PING.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "secwatch"
	}
	return &Redis{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}, nil
}

var _ outbound.Cache = (*Redis)(nil)

func (r *Redis) genKey() string { return r.prefix + ":gen" }

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) key(ctx context.Context, key string) (string, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", r.prefix, gen, key), nil
}

// Get treats any redis error as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	k, err := r.key(ctx, key)
	if err != nil {
		r.logger.Debug("cache generation lookup failed", "error", err)
		return nil, false
	}
	b, err := r.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Debug("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	k, err := r.key(ctx, key)
	if err != nil {
		return fmt.Errorf("reading cache generation: %w", err)
	}
	if err := r.client.Set(ctx, k, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Purge(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.genKey()).Err(); err != nil {
		return fmt.Errorf("bumping cache generation: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.client.Close() }
