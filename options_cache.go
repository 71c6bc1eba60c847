package i18nhttp

import (
	"context"
	"time"

	"github.com/Kwan-Yee/i18nhttp/querycache"
)

// WithQueryClient hands the backend an external cache client. The cache path
// additionally requires WithCacheEnabled; a client without the flag (or the
// flag without a client) silently leaves loads on the direct transport path.
func WithQueryClient(qc querycache.Client) Option {
	return func(_ context.Context, b *Backend) {
		b.queryClient = qc
	}
}

// WithCacheEnabled opts loads into the cache path.
func WithCacheEnabled() Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.Enabled = true
	}
}

// WithStaleTime sets the freshness window forwarded to the cache client.
func WithStaleTime(staleTime time.Duration) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.StaleTime = staleTime
	}
}

// WithCacheTime sets the retention window forwarded to the cache client.
func WithCacheTime(cacheTime time.Duration) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.CacheTime = cacheTime
	}
}

// WithRetries sets the retry budget forwarded to the cache client.
func WithRetries(retries int) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.Retries = retries
	}
}

// WithShouldRetry replaces the classifier's retryability predicate.
func WithShouldRetry(predicate func(err error) bool) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.ShouldRetry = predicate
	}
}

// WithRetryDelay replaces the classifier's backoff function.
func WithRetryDelay(delay func(attempt int) time.Duration) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.RetryDelay = delay
	}
}

// WithRefetchOnFocus refetches loaded resources when the app regains focus.
func WithRefetchOnFocus(enabled bool) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.RefetchOnFocus = enabled
	}
}

// WithRefetchOnReconnect refetches loaded resources when the network comes
// back. On by default.
func WithRefetchOnReconnect(enabled bool) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Cache.RefetchOnReconnect = enabled
	}
}
