package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRedis_PurgeHidesEntries(t *testing.T) {
	url := os.Getenv("SECWATCH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SECWATCH_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewRedis(ctx, RedisConfig{URL: url, Prefix: "secwatch-test-" + uuid.NewString()[:8], TTL: time.Minute}, logger)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "metrics", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := c.Get(ctx, "metrics"); !ok || string(v) != "x" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if err := c.Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, ok := c.Get(ctx, "metrics"); ok {
		t.Error("entry visible after purge")
	}
}
