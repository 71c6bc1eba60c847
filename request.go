package i18nhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	headerContentType = "Content-Type"
	headerOrigin      = "Origin"

	contentTypeJSON = "application/json"
)

// builtRequest is a fully resolved request description. Building has no side
// effects; nothing is sent until the loader hands it to the transport.
type builtRequest struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
	timeout time.Duration
}

// buildRequest resolves the template and assembles method, URL, headers and
// body. A nil, nil return means the resolver produced an empty template and
// the load must be treated as a no-op.
func (o *Options) buildRequest(
	ctx context.Context,
	template Value[string],
	languages, namespaces []string,
	payload map[string]any,
) (*builtRequest, error) {
	resolved, err := template.resolve(ctx, languages, namespaces)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return nil, nil
	}

	fetchURL := appendQueryParams(interpolate(resolved, languages, namespaces), o.QueryParams)

	req := &builtRequest{
		method:  http.MethodGet,
		url:     fetchURL,
		headers: map[string]string{},
	}

	if payload != nil {
		req.method = http.MethodPost

		body, contentType, serr := o.stringifyPayload(payload)
		if serr != nil {
			return nil, serr
		}
		req.body = body
		req.headers[headerContentType] = contentType
	}

	if o.CrossDomain && o.Origin != "" {
		req.headers[headerOrigin] = o.Origin
	}

	custom, err := o.Headers.resolve(ctx, languages, namespaces)
	if err != nil {
		return nil, err
	}
	for name, value := range custom {
		req.headers[name] = value
	}

	transport, err := o.Transport.resolve(ctx, languages, namespaces)
	if err != nil {
		return nil, err
	}
	for name, value := range transport.Headers {
		req.headers[name] = value
	}
	req.timeout = transport.Timeout

	return req, nil
}

func (o *Options) stringifyPayload(payload map[string]any) ([]byte, string, error) {
	if o.Stringify != nil {
		return o.Stringify(payload)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return body, contentTypeJSON, nil
}

// interpolate fills the {{lng}} and {{ns}} placeholders. Multiple values are
// joined with "+" so one request can carry several languages or namespaces.
func interpolate(template string, languages, namespaces []string) string {
	out := strings.ReplaceAll(template, "{{lng}}", strings.Join(languages, "+"))
	return strings.ReplaceAll(out, "{{ns}}", strings.Join(namespaces, "+"))
}

// appendQueryParams adds configured parameters, percent-encoded, joining with
// "&" when the URL already carries a query string.
func appendQueryParams(fetchURL string, params map[string]string) string {
	if len(params) == 0 {
		return fetchURL
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var pairs []string
	for _, key := range keys {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(params[key]))
	}

	separator := "?"
	if strings.Contains(fetchURL, "?") {
		separator = "&"
	}
	return fetchURL + separator + strings.Join(pairs, "&")
}
