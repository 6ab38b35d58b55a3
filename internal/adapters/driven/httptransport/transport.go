// Package httptransport sends broker API calls over net/http.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.Transport = (*Transport)(nil)

const (
	// DefaultTimeout bounds one attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects is the redirect limit when a request sets none.
	DefaultMaxRedirects = 5

	// maxBodySize caps response bodies read into memory.
	maxBodySize = 10 << 20
)

type redirectLimitKey struct{}

// Transport implements driven.Transport with a shared http.Client.
type Transport struct {
	client *http.Client
}

// New creates a Transport. A nil base uses http.DefaultTransport.
func New(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		client: &http.Client{
			Transport:     base,
			CheckRedirect: checkRedirect,
		},
	}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	limit, ok := req.Context().Value(redirectLimitKey{}).(int)
	if !ok {
		limit = DefaultMaxRedirects
	}
	if len(via) > limit {
		return fmt.Errorf("stopped after %d redirects", limit)
	}
	return nil
}

// Do performs one attempt. Any HTTP status is returned as a response; only
// failures to obtain one are errors.
func (t *Transport) Do(ctx context.Context, req *driven.TransportRequest) (*driven.TransportResponse, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRedirects := req.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = context.WithValue(ctx, redirectLimitKey{}, maxRedirects)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &driven.TransportResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}
