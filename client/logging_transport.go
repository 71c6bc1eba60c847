package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/pitabwire/util"
)

// LoggingTransportOption configures the logging HTTP transport.
type LoggingTransportOption func(*loggingTransport)

// loggingTransport logs every exchange passing through it. Headers are
// withheld unless explicitly requested since they may carry credentials.
type loggingTransport struct {
	transport  http.RoundTripper
	logHeaders bool
}

// NewLoggingTransport wraps transport with request/response logging.
func NewLoggingTransport(transport http.RoundTripper, opts ...LoggingTransportOption) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}

	t := &loggingTransport{transport: transport}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithTransportLogHeaders enables header logging.
func WithTransportLogHeaders(enabled bool) LoggingTransportOption {
	return func(t *loggingTransport) {
		t.logHeaders = enabled
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := req.Context()

	logger := util.Log(ctx).WithFields(map[string]any{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	if t.logHeaders {
		logger = logger.WithField("headers", flattenHeaders(req.Header))
	}
	logger.Debug("resource request sent")

	resp, err := t.transport.RoundTrip(req)

	logger = util.Log(ctx).WithField("duration", time.Since(start).String())
	if err != nil {
		logger.WithError(err).Error("resource request failed")
		return resp, err
	}

	logger = logger.WithField("status", resp.StatusCode)
	if t.logHeaders {
		logger = logger.WithField("headers", flattenHeaders(resp.Header))
	}
	logger.Debug("resource response received")

	return resp, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			flat[name] = strings.Join(values, " , ")
		}
	}
	return flat
}

// WrapClient wraps an existing HTTP client with the logging transport.
func WrapClient(cl *http.Client, opts ...LoggingTransportOption) *http.Client {
	if cl == nil {
		cl = http.DefaultClient
	}

	wrapped := *cl
	wrapped.Transport = NewLoggingTransport(cl.Transport, opts...)
	return &wrapped
}
