package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/pitabwire/util"
)

// defaultMaxResponseBodyLen caps how much of a response body is read.
// Translation resource files are small; anything past this is suspect.
const defaultMaxResponseBodyLen = 10 << 20

var ErrResponseTooLarge = errors.New("response body truncated, it exceeds configured limit")

// Response is one fully-read HTTP exchange result.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Invoker performs exactly one HTTP exchange per call and hands back the
// status and raw body. It never retries; retry scheduling belongs to the
// cache client driving it.
type Invoker struct {
	client     *http.Client
	maxBodyLen int64
}

// NewInvoker creates an invoker over the given client. A nil client gets a
// default one with the otel transport.
func NewInvoker(cl *http.Client) *Invoker {
	if cl == nil {
		cl = NewHTTPClient()
	}
	return &Invoker{client: cl, maxBodyLen: defaultMaxResponseBodyLen}
}

// Client returns the underlying HTTP client.
func (inv *Invoker) Client() *http.Client {
	return inv.client
}

// Do issues the request and reads the body in full. Transport failures come
// back unwrapped so callers can classify them.
func (inv *Invoker) Do(
	ctx context.Context,
	method, endpointURL string,
	headers map[string]string,
	body []byte,
) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpointURL, reader)
	if err != nil {
		return nil, err
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := inv.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer util.CloseAndLogOnError(ctx, resp.Body)

	limited := io.LimitReader(resp.Body, inv.maxBodyLen+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > inv.maxBodyLen {
		return nil, ErrResponseTooLarge
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}
