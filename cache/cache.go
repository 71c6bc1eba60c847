// Package cache holds the byte-level stores backing the query cache: an
// in-memory implementation and a Redis one. Stores only keep bytes with a
// TTL; freshness bookkeeping happens a level up in querycache.
package cache

import (
	"context"
	"time"
)

// RawCache is the low-level cache interface that works with bytes.
type RawCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key sharing the given prefix. Used for
	// invalidating whole key families (all loads, all saves, or everything
	// under the package scope).
	DeletePrefix(ctx context.Context, prefix string) error

	Exists(ctx context.Context, key string) (bool, error)
	Flush(ctx context.Context) error
	Close() error
}
