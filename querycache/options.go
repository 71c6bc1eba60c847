package querycache

import (
	"time"

	"github.com/Kwan-Yee/i18nhttp/cache"
)

const (
	// DefaultStaleTime is the freshness window: entries younger than this
	// are served without a network call.
	DefaultStaleTime = 5 * time.Minute

	// DefaultCacheTime is the retention window: entries older than this
	// are evicted from the store.
	DefaultCacheTime = 10 * time.Minute

	// DefaultRetries is how many times a failed fetch is re-run.
	DefaultRetries = 3
)

// Option configures client-wide defaults.
type Option func(*Options)

// Options holds query client configuration. Every per-query knob here is a
// default; individual Fetch calls may override them with FetchOptions.
type Options struct {
	// Store backs the retention window. Defaults to a fresh in-memory
	// cache, which the client then owns and closes.
	Store cache.RawCache

	StaleTime time.Duration
	CacheTime time.Duration

	// Retries is the retry budget per fetch. ShouldRetry, when set, gates
	// each retry on the failure; the default retries every failure.
	Retries     int
	ShouldRetry func(err error) bool

	// RetryDelay maps the zero-based attempt index to a wait before the
	// next attempt. The default doubles a one second base, capped at 30s.
	RetryDelay func(attempt int) time.Duration

	RefetchOnFocus     bool
	RefetchOnReconnect bool
}

func WithStore(store cache.RawCache) Option {
	return func(o *Options) {
		o.Store = store
	}
}

func WithStaleTime(staleTime time.Duration) Option {
	return func(o *Options) {
		o.StaleTime = staleTime
	}
}

func WithCacheTime(cacheTime time.Duration) Option {
	return func(o *Options) {
		o.CacheTime = cacheTime
	}
}

func WithRetries(retries int) Option {
	return func(o *Options) {
		o.Retries = retries
	}
}

func WithShouldRetry(predicate func(err error) bool) Option {
	return func(o *Options) {
		o.ShouldRetry = predicate
	}
}

func WithRetryDelay(delay func(attempt int) time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = delay
	}
}

func WithRefetchOnFocus(enabled bool) Option {
	return func(o *Options) {
		o.RefetchOnFocus = enabled
	}
}

func WithRefetchOnReconnect(enabled bool) Option {
	return func(o *Options) {
		o.RefetchOnReconnect = enabled
	}
}

// fetchConfig is the per-query view of the client defaults.
type fetchConfig struct {
	staleTime time.Duration
	cacheTime time.Duration

	retries     int
	shouldRetry func(err error) bool
	retryDelay  func(attempt int) time.Duration

	refetchOnFocus     bool
	refetchOnReconnect bool
}

// FetchOption overrides a client default for a single query.
type FetchOption func(*fetchConfig)

func FetchStaleTime(staleTime time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.staleTime = staleTime
	}
}

func FetchCacheTime(cacheTime time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.cacheTime = cacheTime
	}
}

func FetchRetries(retries int) FetchOption {
	return func(c *fetchConfig) {
		c.retries = retries
	}
}

func FetchShouldRetry(predicate func(err error) bool) FetchOption {
	return func(c *fetchConfig) {
		if predicate != nil {
			c.shouldRetry = predicate
		}
	}
}

func FetchRetryDelay(delay func(attempt int) time.Duration) FetchOption {
	return func(c *fetchConfig) {
		if delay != nil {
			c.retryDelay = delay
		}
	}
}

func FetchRefetchOnFocus(enabled bool) FetchOption {
	return func(c *fetchConfig) {
		c.refetchOnFocus = enabled
	}
}

func FetchRefetchOnReconnect(enabled bool) FetchOption {
	return func(c *fetchConfig) {
		c.refetchOnReconnect = enabled
	}
}

func defaultRetryDelay(attempt int) time.Duration {
	const (
		base    = time.Second
		ceiling = 30 * time.Second
	)

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	return delay
}
