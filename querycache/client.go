package querycache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pitabwire/util"
	"golang.org/x/sync/singleflight"

	"github.com/Kwan-Yee/i18nhttp/cache"
)

type refetchTrigger int

const (
	triggerReconnect refetchTrigger = iota
	triggerFocus
)

// subscription is a live query the client can re-run on focus or reconnect.
type subscription struct {
	fn  FetchFunc
	cfg fetchConfig
}

type client struct {
	opts      Options
	ownsStore bool

	group singleflight.Group

	mu      sync.Mutex
	queries map[string]subscription
	online  bool
	focused bool
}

// New creates a query client. Without options it retains entries in memory
// for ten minutes, serves them for five without refetching, and retries
// failed fetches three times with exponential delays.
func New(opts ...Option) Client {
	cfg := Options{
		StaleTime:          DefaultStaleTime,
		CacheTime:          DefaultCacheTime,
		Retries:            DefaultRetries,
		RetryDelay:         defaultRetryDelay,
		RefetchOnReconnect: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ownsStore := false
	if cfg.Store == nil {
		cfg.Store = cache.NewInMemoryCache()
		ownsStore = true
	}

	return &client{
		opts:      cfg,
		ownsStore: ownsStore,
		queries:   make(map[string]subscription),
		online:    true,
		focused:   true,
	}
}

func (c *client) defaults() fetchConfig {
	return fetchConfig{
		staleTime:          c.opts.StaleTime,
		cacheTime:          c.opts.CacheTime,
		retries:            c.opts.Retries,
		shouldRetry:        c.opts.ShouldRetry,
		retryDelay:         c.opts.RetryDelay,
		refetchOnFocus:     c.opts.RefetchOnFocus,
		refetchOnReconnect: c.opts.RefetchOnReconnect,
	}
}

func (c *client) Fetch(ctx context.Context, key string, fn FetchFunc, opts ...FetchOption) (*Entry, error) {
	cfg := c.defaults()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.refetchOnFocus || cfg.refetchOnReconnect {
		c.subscribe(key, fn, cfg)
	}

	entry, found := c.Peek(ctx, key)
	if found && isFresh(entry, cfg.staleTime) {
		return entry, nil
	}

	if !c.isOnline() {
		// Offline: stale data beats a doomed transport call.
		if found {
			return entry, nil
		}
		return nil, ErrOffline
	}

	return c.fetchShared(ctx, key, fn, cfg)
}

func (c *client) Peek(ctx context.Context, key string) (*Entry, bool) {
	data, found, err := c.opts.Store.Get(ctx, key)
	if err != nil || !found {
		return nil, false
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, false
	}
	return &entry, true
}

func (c *client) Invalidate(ctx context.Context, prefix string) error {
	return c.opts.Store.DeletePrefix(ctx, prefix)
}

func (c *client) Clear(ctx context.Context) error {
	return c.opts.Store.Flush(ctx)
}

func (c *client) SetOnline(ctx context.Context, online bool) {
	c.mu.Lock()
	was := c.online
	c.online = online
	c.mu.Unlock()

	if online == was {
		return
	}

	util.Log(ctx).WithField("online", online).Debug("connectivity changed")

	if online {
		c.refetchLive(ctx, triggerReconnect)
	}
}

func (c *client) SetFocused(ctx context.Context, focused bool) {
	c.mu.Lock()
	was := c.focused
	c.focused = focused
	c.mu.Unlock()

	if focused == was {
		return
	}

	if focused {
		c.refetchLive(ctx, triggerFocus)
	}
}

func (c *client) Close() error {
	if c.ownsStore {
		return c.opts.Store.Close()
	}
	return nil
}

func (c *client) subscribe(key string, fn FetchFunc, cfg fetchConfig) {
	c.mu.Lock()
	c.queries[key] = subscription{fn: fn, cfg: cfg}
	c.mu.Unlock()
}

func (c *client) isOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func isFresh(entry *Entry, staleTime time.Duration) bool {
	if staleTime <= 0 {
		return false
	}
	return time.Since(entry.FetchedAt) < staleTime
}

// fetchShared funnels all callers for a key through one in-flight call.
func (c *client) fetchShared(ctx context.Context, key string, fn FetchFunc, cfg fetchConfig) (*Entry, error) {
	value, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetchWithRetry(ctx, key, fn, cfg)
	})
	if err != nil {
		return nil, err
	}

	entry, ok := value.(*Entry)
	if !ok {
		return nil, ErrOffline
	}
	return entry, nil
}

func (c *client) fetchWithRetry(ctx context.Context, key string, fn FetchFunc, cfg fetchConfig) (*Entry, error) {
	attempts := cfg.retries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		entry, err := fn(ctx)
		if err == nil {
			if entry.FetchedAt.IsZero() {
				entry.FetchedAt = time.Now()
			}
			c.store(ctx, key, entry, cfg.cacheTime)
			return entry, nil
		}

		lastErr = err
		if attempt == attempts-1 || !shouldRetry(cfg, err) {
			break
		}

		delay := retryDelay(cfg, attempt)
		util.Log(ctx).WithError(err).
			WithField("attempt", attempt).
			WithField("delay", delay.String()).
			Debug("fetch failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func shouldRetry(cfg fetchConfig, err error) bool {
	if cfg.shouldRetry == nil {
		return true
	}
	return cfg.shouldRetry(err)
}

func retryDelay(cfg fetchConfig, attempt int) time.Duration {
	if cfg.retryDelay == nil {
		return defaultRetryDelay(attempt)
	}
	return cfg.retryDelay(attempt)
}

// store retains a resolved entry for the retention window. A non-positive
// window means the result is not retained at all, which is how one-shot
// submissions stay out of the cache.
func (c *client) store(ctx context.Context, key string, entry *Entry, cacheTime time.Duration) {
	if cacheTime <= 0 {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if setErr := c.opts.Store.Set(ctx, key, data, cacheTime); setErr != nil {
		util.Log(ctx).WithError(setErr).WithField("key", key).Warn("could not retain query result")
	}
}

// refetchLive re-runs subscribed queries that opted into the trigger so the
// next read observes refreshed data. Failures only get logged; retained
// entries stay serveable.
func (c *client) refetchLive(ctx context.Context, trigger refetchTrigger) {
	c.mu.Lock()
	snapshot := make(map[string]subscription, len(c.queries))
	for key, sub := range c.queries {
		if trigger == triggerFocus && !sub.cfg.refetchOnFocus {
			continue
		}
		if trigger == triggerReconnect && !sub.cfg.refetchOnReconnect {
			continue
		}
		snapshot[key] = sub
	}
	c.mu.Unlock()

	bgCtx := context.WithoutCancel(ctx)
	for key, sub := range snapshot {
		go func(key string, sub subscription) {
			if _, err := c.fetchShared(bgCtx, key, sub.fn, sub.cfg); err != nil {
				util.Log(bgCtx).WithError(err).WithField("key", key).Debug("background refetch failed")
			}
		}(key, sub)
	}
}
