package driven

import (
	"context"
	"net/http"
	"time"
)

// TransportRequest is a single HTTP attempt.
type TransportRequest struct {
	Method       string
	URL          string
	Header       http.Header
	Body         []byte
	Timeout      time.Duration
	MaxRedirects int
}

// TransportResponse is the raw result of an attempt that reached the server.
type TransportResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport sends HTTP requests.
// An error means the request never produced a response (connection
// failure, timeout, redirect loop); any HTTP status is a response.
type Transport interface {
	Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}
