package outbound

import "context"

// Cache is a bounded, expiring response cache shared by read paths.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
	Purge(ctx context.Context) error
}
