package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/wafbroker/internal/core/services"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "valid bearer token",
			header:   "Bearer abc123",
			expected: "abc123",
		},
		{
			name:     "bearer with extra spaces",
			header:   "Bearer   token-with-spaces   ",
			expected: "token-with-spaces",
		},
		{
			name:     "lowercase bearer",
			header:   "bearer token123",
			expected: "token123",
		},
		{
			name:     "empty header",
			header:   "",
			expected: "",
		},
		{
			name:     "no bearer prefix",
			header:   "token123",
			expected: "",
		},
		{
			name:     "basic auth",
			header:   "Basic dXNlcjpwYXNz",
			expected: "",
		},
		{
			name:     "bearer without value",
			header:   "Bearer",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			result := extractBearerToken(req)
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestGetClaims(t *testing.T) {
	if GetClaims(context.TODO()) != nil {
		t.Error("expected nil for empty context")
	}

	claims := &domain.AdminClaims{Subject: "admin", ExpiresAt: time.Now().Add(time.Hour)}
	ctx := context.WithValue(context.Background(), claimsContextKey, claims)
	result := GetClaims(ctx)
	if result == nil {
		t.Fatal("expected claims to be returned")
	}
	if result.Subject != "admin" {
		t.Errorf("expected subject admin, got %s", result.Subject)
	}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authAdapter := mocks.NewMockAuthAdapter()
	authService := services.NewAdminAuthService(authAdapter, "s3cret", time.Hour)
	session, err := authService.Authenticate(context.Background(), domain.LoginRequest{Password: "s3cret"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	expired, _ := authAdapter.GenerateToken(services.AdminSubject, -time.Minute)

	var seen *domain.AdminClaims
	handler := NewAuthMiddleware(authService).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired.Token, http.StatusUnauthorized},
		{"valid token", "Bearer " + session.Token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
			if tt.status == http.StatusOK && (seen == nil || seen.Subject != services.AdminSubject) {
				t.Errorf("expected admin claims in context, got %+v", seen)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	m := NewRequestIDMiddleware()
	m.newID = func() string { return "generated-id" }

	var seen string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name    string
		inbound string
		want    string
	}{
		{"no inbound id", "", "generated-id"},
		{"inbound id reused", "edge-7f3a.42_b", "edge-7f3a.42_b"},
		{"header injection rejected", "abc\r\nSet-Cookie: x", "generated-id"},
		{"spaces rejected", "two words", "generated-id"},
		{"too long rejected", strings.Repeat("a", maxRequestIDLength+1), "generated-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if seen != tt.want {
				t.Errorf("context request id = %q, want %q", seen, tt.want)
			}
			if got := rr.Header().Get(RequestIDHeader); got != tt.want {
				t.Errorf("response header = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRequestIDMiddleware_GeneratesUUIDs(t *testing.T) {
	handler := NewRequestIDMiddleware().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("GET", "/health", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("GET", "/health", nil))

	a, b := first.Header().Get(RequestIDHeader), second.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a uuid, got %q", a)
	}
	if a == b {
		t.Error("expected a fresh id per request")
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}

func newCapturingLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"success logs at info", http.StatusOK, "INFO"},
		{"client error logs at info", http.StatusPreconditionFailed, "INFO"},
		{"upstream failure logs at warn", http.StatusBadGateway, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newCapturingLogger()
			handler := NewRequestIDMiddleware().Handler(NewLoggingMiddleware(logger).Handler(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})))

			req := httptest.NewRequest("POST", "/api/v1/protection", nil)
			req.Header.Set(RequestIDHeader, "req-1")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "http request" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["method"] != "POST" || entry["path"] != "/api/v1/protection" {
				t.Errorf("unexpected method/path: %v %v", entry["method"], entry["path"])
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["request_id"] != "req-1" {
				t.Errorf("request_id = %v", entry["request_id"])
			}
		})
	}
}

func TestLoggingMiddleware_NilLogger(t *testing.T) {
	handler := NewLoggingMiddleware(nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/version", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, buf := newCapturingLogger()
	handler := NewRequestIDMiddleware().Handler(NewRecoveryMiddleware(logger).Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("status store exploded")
		})))

	req := httptest.NewRequest("GET", "/api/v1/protection/status", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != domain.CodeInternal {
		t.Errorf("expected code %s, got %s", domain.CodeInternal, body.Code)
	}
	if strings.Contains(body.Message, "exploded") {
		t.Error("panic value must not reach the client")
	}
	if !strings.Contains(buf.String(), `"request_id":"req-9"`) {
		t.Errorf("expected request id in panic log, got %s", buf.String())
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", []string{"https://admin.example.com"}, "GET", "https://admin.example.com", "https://admin.example.com", http.StatusOK},
		{"wildcard echoes origin", []string{"*"}, "GET", "https://other.example.com", "https://other.example.com", http.StatusOK},
		{"disallowed origin", []string{"https://admin.example.com"}, "GET", "https://evil.example", "", http.StatusOK},
		{"no origin header", []string{"*"}, "GET", "", "", http.StatusOK},
		{"preflight", []string{"https://admin.example.com"}, "OPTIONS", "https://admin.example.com", "https://admin.example.com", http.StatusNoContent},
		{"no origins configured", nil, "GET", "https://admin.example.com", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/dashboard", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			NewCORSMiddleware(tt.allowed).Handler(next).ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantOrigin != "" && rr.Header().Get("Access-Control-Expose-Headers") != RequestIDHeader {
				t.Error("expected the request id header to be exposed")
			}
		})
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusAccepted {
		t.Errorf("expected the first status to be recorded, got %d", rw.statusCode)
	}
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	_, _ = rw.Write([]byte("{}"))
	rw.WriteHeader(http.StatusTeapot)

	if rw.statusCode != http.StatusOK {
		t.Errorf("a body write implies 200, got %d", rw.statusCode)
	}
}
