package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

var _ driven.Transport = (*MockTransport)(nil)

// MockTransport records requests and answers with DoFn.
// Without DoFn every request gets an empty 200.
type MockTransport struct {
	mu       sync.Mutex
	requests []*driven.TransportRequest

	DoFn func(req *driven.TransportRequest, call int) (*driven.TransportResponse, error)
}

// NewMockTransport creates a MockTransport answering with fn.
func NewMockTransport(fn func(req *driven.TransportRequest, call int) (*driven.TransportResponse, error)) *MockTransport {
	return &MockTransport{DoFn: fn}
}

func (m *MockTransport) Do(ctx context.Context, req *driven.TransportRequest) (*driven.TransportResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	m.mu.Unlock()

	if m.DoFn == nil {
		return &driven.TransportResponse{Status: 200}, nil
	}
	return m.DoFn(req, call)
}

// Requests returns every request seen so far.
func (m *MockTransport) Requests() []*driven.TransportRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*driven.TransportRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Count returns how many requests were sent.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
