// Package i18nhttp is an HTTP loading backend for localization frameworks.
// It fetches translation resource files over plain GET/POST, normalizes
// transport and parse failures into retryable and fatal classes, and can
// route loads through a deduplicating cache client so identical concurrent
// loads resolve from a single network call.
package i18nhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/pitabwire/util"

	"github.com/Kwan-Yee/i18nhttp/client"
	"github.com/Kwan-Yee/i18nhttp/querycache"
)

// Result is a successful load: the HTTP status plus the parsed resource body.
type Result struct {
	Status int
	Data   map[string]any
}

// ReadCallback receives the outcome of a Read. On a retryable failure the
// result is the sentinel &Result{Status: 0} so connector-level retry loops
// can tell transient failures from fatal ones, which pass a nil result.
type ReadCallback func(err error, result *Result)

// trackedLoad remembers what produced a URL so periodic reloads can re-run it.
type trackedLoad struct {
	languages  []string
	namespaces []string
}

// Backend is the resource loader handed to the localization framework.
type Backend struct {
	opts Options

	httpOpts    []client.HTTPOption
	httpClient  *http.Client
	invoker     *client.Invoker
	queryClient querycache.Client
	logger      *util.LogEntry

	mu           sync.Mutex
	tracked      map[string]trackedLoad
	reloadCancel context.CancelFunc
}

// New creates a backend. Without options it loads JSON resources from
// DefaultLoadPath relative URLs on the direct transport path.
func New(ctx context.Context, opts ...Option) *Backend {
	b := &Backend{
		opts: Options{
			LoadPath: Static(DefaultLoadPath),
			Cache: CacheOptions{
				StaleTime:          querycache.DefaultStaleTime,
				CacheTime:          querycache.DefaultCacheTime,
				Retries:            querycache.DefaultRetries,
				RefetchOnReconnect: true,
			},
		},
		logger:  util.Log(ctx),
		tracked: make(map[string]trackedLoad),
	}

	for _, opt := range opts {
		opt(ctx, b)
	}

	if b.opts.Cache.ShouldRetry == nil {
		b.opts.Cache.ShouldRetry = IsRetryable
	}
	if b.opts.Cache.RetryDelay == nil {
		b.opts.Cache.RetryDelay = Backoff
	}

	if b.httpClient == nil {
		httpOpts := b.httpOpts
		if b.opts.WithCredentials {
			httpOpts = append(httpOpts, client.WithHTTPCredentials())
		}
		b.httpClient = client.NewHTTPClient(httpOpts...)
	}
	b.invoker = client.NewInvoker(b.httpClient)

	return b
}

// Read loads one namespace for the given languages and reports through the
// Node-style callback the framework connector expects.
func (b *Backend) Read(languages []string, namespace string, callback ReadCallback) {
	result, err := b.Load(context.Background(), languages, []string{namespace})
	if err != nil {
		if IsRetryable(err) {
			callback(err, &Result{Status: 0})
			return
		}
		callback(err, nil)
		return
	}
	callback(nil, result)
}

// Load fetches translation resources for the given languages and namespaces.
// A nil, nil return means the load-path resolver opted out of the load.
func (b *Backend) Load(ctx context.Context, languages, namespaces []string) (*Result, error) {
	req, err := b.opts.buildRequest(ctx, b.opts.LoadPath, languages, namespaces, nil)
	if err != nil {
		return nil, Classify(err, "")
	}
	if req == nil {
		return nil, nil
	}

	b.track(req.url, languages, namespaces)

	entry, err := b.fetchEntry(ctx, req, LoadKey(req.url).String(), languages, namespaces, b.loadFetchOptions())
	if err != nil {
		return nil, err
	}

	data, err := b.parseBody(entry.Body, req.url, languages, namespaces)
	if err != nil {
		return nil, err
	}

	return &Result{Status: entry.Status, Data: data}, nil
}

// Create submits a missing entry and reports through a Node-style callback.
func (b *Backend) Create(languages []string, namespace, key, fallbackValue string, callback func(err error)) {
	err := b.Submit(context.Background(), languages, namespace, key, fallbackValue)
	if callback != nil {
		callback(err)
	}
}

// Submit posts a missing translation entry to the add path, once per
// language. A backend without an add path silently skips submissions.
func (b *Backend) Submit(ctx context.Context, languages []string, namespace, key, fallbackValue string) error {
	if !b.opts.AddPath.isSet() {
		return nil
	}

	payload := map[string]any{key: fallbackValue}

	var errs []error
	for _, lang := range languages {
		req, err := b.opts.buildRequest(ctx, b.opts.AddPath, []string{lang}, []string{namespace}, payload)
		if err != nil {
			errs = append(errs, Classify(err, ""))
			continue
		}
		if req == nil {
			continue
		}

		if _, err = b.fetchEntry(ctx, req, SaveKey(req.url, payload).String(), nil, nil, b.saveFetchOptions()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// cacheActive reports whether loads take the cache path. Both the handle and
// the explicit flag are required; missing either silently falls back to the
// direct path.
func (b *Backend) cacheActive() bool {
	return b.opts.Cache.Enabled && b.queryClient != nil
}

func (b *Backend) fetchEntry(
	ctx context.Context,
	req *builtRequest,
	key string,
	languages, namespaces []string,
	fetchOpts []querycache.FetchOption,
) (*querycache.Entry, error) {
	fn := func(fetchCtx context.Context) (*querycache.Entry, error) {
		return b.transport(fetchCtx, req, languages, namespaces)
	}

	if b.cacheActive() {
		return b.queryClient.Fetch(ctx, key, fn, fetchOpts...)
	}
	return fn(ctx)
}

// transport performs the single underlying HTTP exchange and classifies every
// failure. Bodies are validated by the configured parser up front so malformed
// payloads surface as fatal parse errors instead of being cached.
func (b *Backend) transport(
	ctx context.Context,
	req *builtRequest,
	languages, namespaces []string,
) (*querycache.Entry, error) {
	if req.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.timeout)
		defer cancel()
	}

	resp, err := b.invoker.Do(ctx, req.method, req.url, req.headers, req.body)
	if err != nil {
		return nil, Classify(err, req.url)
	}

	if httpErr := ClassifyResponse(resp.StatusCode, req.url); httpErr != nil {
		return nil, httpErr
	}

	// Reads must carry a decodable body; submissions only care about status.
	if languages != nil {
		if _, perr := b.parseBody(resp.Body, req.url, languages, namespaces); perr != nil {
			return nil, perr
		}
	}

	return &querycache.Entry{
		Status:    resp.StatusCode,
		Body:      resp.Body,
		FetchedAt: time.Now(),
	}, nil
}

func (b *Backend) parseBody(body []byte, fetchURL string, languages, namespaces []string) (map[string]any, error) {
	if b.opts.Parse != nil {
		data, err := b.opts.Parse(body, languages, namespaces)
		if err != nil {
			return nil, newParseError(fetchURL, err)
		}
		return data, nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, newParseError(fetchURL, err)
	}
	return data, nil
}

func (b *Backend) loadFetchOptions() []querycache.FetchOption {
	c := b.opts.Cache
	return []querycache.FetchOption{
		querycache.FetchStaleTime(c.StaleTime),
		querycache.FetchCacheTime(c.CacheTime),
		querycache.FetchRetries(c.Retries),
		querycache.FetchShouldRetry(c.ShouldRetry),
		querycache.FetchRetryDelay(c.RetryDelay),
		querycache.FetchRefetchOnFocus(c.RefetchOnFocus),
		querycache.FetchRefetchOnReconnect(c.RefetchOnReconnect),
	}
}

// saveFetchOptions dedupe concurrent identical submissions but keep them out
// of the retained cache and out of focus/reconnect refetching.
func (b *Backend) saveFetchOptions() []querycache.FetchOption {
	c := b.opts.Cache
	return []querycache.FetchOption{
		querycache.FetchStaleTime(0),
		querycache.FetchCacheTime(0),
		querycache.FetchRetries(c.Retries),
		querycache.FetchShouldRetry(c.ShouldRetry),
		querycache.FetchRetryDelay(c.RetryDelay),
		querycache.FetchRefetchOnFocus(false),
		querycache.FetchRefetchOnReconnect(false),
	}
}

func (b *Backend) track(fetchURL string, languages, namespaces []string) {
	b.mu.Lock()
	b.tracked[fetchURL] = trackedLoad{languages: languages, namespaces: namespaces}
	b.mu.Unlock()
}

// Start begins periodic background reloads when a reload interval is
// configured; otherwise it is a no-op.
func (b *Backend) Start(ctx context.Context) {
	if b.opts.ReloadInterval <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reloadCancel != nil {
		return
	}

	reloadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.reloadCancel = cancel

	go b.reloadLoop(reloadCtx)
}

// Close stops background reloads. The query client and HTTP client are
// externally owned and stay open.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reloadCancel != nil {
		b.reloadCancel()
		b.reloadCancel = nil
	}
	return nil
}

func (b *Backend) reloadLoop(ctx context.Context) {
	ticker := time.NewTicker(b.opts.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.reloadAll(ctx)
		}
	}
}

func (b *Backend) reloadAll(ctx context.Context) {
	b.mu.Lock()
	snapshot := make(map[string]trackedLoad, len(b.tracked))
	for fetchURL, load := range b.tracked {
		snapshot[fetchURL] = load
	}
	b.mu.Unlock()

	for fetchURL, load := range snapshot {
		if b.cacheActive() {
			// Drop the retained entry so the reload reaches the network.
			if err := b.queryClient.Invalidate(ctx, LoadKey(fetchURL).String()); err != nil {
				b.logger.WithContext(ctx).WithError(err).WithField("url", fetchURL).
					Warn("could not invalidate before reload")
			}
		}

		if _, err := b.Load(ctx, load.languages, load.namespaces); err != nil {
			b.logger.WithContext(ctx).WithError(err).WithField("url", fetchURL).
				Warn("periodic reload failed")
		}
	}
}
