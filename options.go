package i18nhttp

import (
	"context"
	"net/http"
	"time"

	"github.com/Kwan-Yee/i18nhttp/client"
)

// DefaultLoadPath is where translation resources are fetched from when no
// load path is configured.
const DefaultLoadPath = "/locales/{{lng}}/{{ns}}.json"

// ParseFunc turns a raw resource body into the translation mapping. The
// languages and namespaces of the load are passed through for parsers that
// need them.
type ParseFunc func(body []byte, languages, namespaces []string) (map[string]any, error)

// StringifyFunc serializes an outgoing payload, returning the body and its
// content type.
type StringifyFunc func(payload map[string]any) ([]byte, string, error)

// TransportOptions carries per-request transport overrides. Headers set here
// win over both payload-implied and custom headers.
type TransportOptions struct {
	Headers map[string]string
	Timeout time.Duration
}

// Options holds the backend configuration. All fields are optional.
type Options struct {
	// LoadPath resolves to the URL template for reads. Templates may use
	// {{lng}} and {{ns}} placeholders. An empty resolved template turns
	// the load into a no-op.
	LoadPath Value[string]

	// AddPath resolves to the URL template for submitting missing entries.
	// Submissions are skipped entirely when unset.
	AddPath Value[string]

	// QueryParams are appended to every resolved URL, percent-encoded.
	QueryParams map[string]string

	Parse     ParseFunc
	Stringify StringifyFunc

	// Headers are merged onto every request, over payload-implied headers
	// and under TransportOptions overrides.
	Headers Value[map[string]string]

	// Transport resolves per-request transport overrides.
	Transport Value[TransportOptions]

	// CrossDomain marks requests as cross-origin; when Origin is set it is
	// sent as the Origin header. WithCredentials attaches a cookie jar so
	// credentials cookies ride along.
	CrossDomain     bool
	WithCredentials bool
	Origin          string

	// ReloadInterval re-fetches every previously loaded resource in the
	// background. Zero disables periodic reloads.
	ReloadInterval time.Duration

	// Cache configures the query-client path. It is honored only when both
	// Enabled is set and a client handle was supplied; otherwise loads
	// silently take the direct transport path.
	Cache CacheOptions
}

// CacheOptions is the nested cache configuration forwarded per query to the
// external cache client.
type CacheOptions struct {
	Enabled bool

	// StaleTime is the freshness window, CacheTime the retention window.
	StaleTime time.Duration
	CacheTime time.Duration

	Retries     int
	ShouldRetry func(err error) bool
	RetryDelay  func(attempt int) time.Duration

	RefetchOnFocus     bool
	RefetchOnReconnect bool
}

// Option configures a Backend during New.
type Option func(ctx context.Context, b *Backend)

// WithLoadPath sets a static load-path template.
func WithLoadPath(template string) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.LoadPath = Static(template)
	}
}

// WithLoadPathFunc sets a load-path resolver. Returning an empty template
// aborts the load as a no-op.
func WithLoadPathFunc(fn func(ctx context.Context, languages, namespaces []string) (string, error)) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.LoadPath = Dynamic(fn)
	}
}

// WithAddPath sets a static add-path template for missing-entry submissions.
func WithAddPath(template string) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.AddPath = Static(template)
	}
}

// WithAddPathFunc sets an add-path resolver.
func WithAddPathFunc(fn func(ctx context.Context, languages, namespaces []string) (string, error)) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.AddPath = Dynamic(fn)
	}
}

// WithQueryParams sets query-string parameters appended to every URL.
func WithQueryParams(params map[string]string) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.QueryParams = params
	}
}

// WithParse sets a custom resource parser, preferred over the default JSON
// decoding.
func WithParse(parse ParseFunc) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Parse = parse
	}
}

// WithStringify sets a custom payload serializer for submissions.
func WithStringify(stringify StringifyFunc) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Stringify = stringify
	}
}

// WithHeaders sets static custom headers.
func WithHeaders(headers map[string]string) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Headers = Static(headers)
	}
}

// WithHeadersFunc sets a header resolver evaluated per request.
func WithHeadersFunc(fn func(ctx context.Context, languages, namespaces []string) (map[string]string, error)) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Headers = Dynamic(fn)
	}
}

// WithTransportOptions sets static per-request transport overrides.
func WithTransportOptions(transport TransportOptions) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Transport = Static(transport)
	}
}

// WithTransportOptionsFunc sets a transport-override resolver.
func WithTransportOptionsFunc(
	fn func(ctx context.Context, languages, namespaces []string) (TransportOptions, error),
) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.Transport = Dynamic(fn)
	}
}

// WithCrossDomain marks requests as cross-origin, sending origin as the
// Origin header when non-empty.
func WithCrossDomain(origin string) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.CrossDomain = true
		b.opts.Origin = origin
	}
}

// WithCredentials includes credentials cookies on requests.
func WithCredentials() Option {
	return func(_ context.Context, b *Backend) {
		b.opts.WithCredentials = true
	}
}

// WithReloadInterval enables periodic background reloads of everything
// loaded so far. Start must be called for the interval to take effect.
func WithReloadInterval(interval time.Duration) Option {
	return func(_ context.Context, b *Backend) {
		b.opts.ReloadInterval = interval
	}
}

// WithHTTPOptions forwards options to the HTTP client constructed by New.
// Ignored when WithHTTPClient supplies a ready client.
func WithHTTPOptions(opts ...client.HTTPOption) Option {
	return func(_ context.Context, b *Backend) {
		b.httpOpts = append(b.httpOpts, opts...)
	}
}

// WithHTTPClient supplies a ready HTTP client, bypassing client construction.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(_ context.Context, b *Backend) {
		b.httpClient = httpClient
	}
}
