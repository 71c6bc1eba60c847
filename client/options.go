// Package client provides the HTTP transport layer used by the backend:
// client construction, optional request/response logging, and a
// single-attempt invoker. Retry scheduling lives with the caller, never here.
package client

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultHTTPTimeoutSeconds     = 30
	defaultHTTPIdleTimeoutSeconds = 90
)

// HTTPOption configures HTTP client behavior.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	timeout       time.Duration
	transport     http.RoundTripper
	jar           http.CookieJar
	checkRedirect func(req *http.Request, via []*http.Request) error
	idleTimeout   time.Duration

	traceRequests       bool
	traceRequestHeaders bool
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.timeout = timeout
	}
}

// WithHTTPTransport sets the HTTP transport.
func WithHTTPTransport(transport http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = transport
	}
}

// WithHTTPCookieJar sets the cookie jar.
func WithHTTPCookieJar(jar http.CookieJar) HTTPOption {
	return func(c *httpConfig) {
		c.jar = jar
	}
}

// WithHTTPCredentials attaches a fresh in-memory cookie jar so the client
// carries credentials cookies across requests.
func WithHTTPCredentials() HTTPOption {
	return func(c *httpConfig) {
		jar, err := cookiejar.New(nil)
		if err == nil {
			c.jar = jar
		}
	}
}

// WithHTTPCheckRedirect sets the redirect policy.
func WithHTTPCheckRedirect(checkRedirect func(req *http.Request, via []*http.Request) error) HTTPOption {
	return func(c *httpConfig) {
		c.checkRedirect = checkRedirect
	}
}

// WithHTTPIdleTimeout sets the idle timeout.
func WithHTTPIdleTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.idleTimeout = timeout
	}
}

// WithHTTPTraceRequests enables request and response logging.
func WithHTTPTraceRequests() HTTPOption {
	return func(c *httpConfig) {
		c.traceRequests = true
	}
}

// WithHTTPTraceRequestHeaders additionally logs headers when tracing.
func WithHTTPTraceRequestHeaders() HTTPOption {
	return func(c *httpConfig) {
		c.traceRequestHeaders = true
	}
}

// NewHTTPClient creates a new HTTP client with the provided options.
// If no transport is specified, it defaults to otelhttp.NewTransport(http.DefaultTransport).
func NewHTTPClient(opts ...HTTPOption) *http.Client {
	cfg := &httpConfig{
		timeout:     time.Duration(defaultHTTPTimeoutSeconds) * time.Second,
		idleTimeout: time.Duration(defaultHTTPIdleTimeoutSeconds) * time.Second,
		transport:   otelhttp.NewTransport(http.DefaultTransport),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.traceRequests {
		cfg.transport = NewLoggingTransport(cfg.transport,
			WithTransportLogHeaders(cfg.traceRequestHeaders))
	}

	cl := &http.Client{
		Transport:     cfg.transport,
		Timeout:       cfg.timeout,
		Jar:           cfg.jar,
		CheckRedirect: cfg.checkRedirect,
	}

	if cfg.idleTimeout > 0 {
		if t, ok := cl.Transport.(*http.Transport); ok {
			t.IdleConnTimeout = cfg.idleTimeout
		}
	}

	return cl
}
