// Package wafapi is the authenticated client for the remote WAF platform.
//
// Every remote capability is a typed wrapper around Client.Do, which owns
// token acquisition, transport retry with exponential backoff, the single
// 401 retry and normalization of error responses into domain errors.
package wafapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.WAFAPI = (*Client)(nil)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects is the redirect limit per attempt.
	DefaultMaxRedirects = 5

	// MaxTransportRetries is the number of retries after the first attempt
	// fails at the transport level.
	MaxTransportRetries = 3

	// DefaultLockTTL bounds how long one instance may hold the refresh lock.
	DefaultLockTTL = 30 * time.Second

	// DefaultLockWait is how long a non-holder waits for another instance's
	// refresh before requesting a token itself.
	DefaultLockWait = 10 * time.Second

	lockPollInterval = 250 * time.Millisecond
	unknownError     = "Unknown error"
	defaultErrorCode = "api_error"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the client's collaborators and tuning.
type Config struct {
	Endpoints   domain.Endpoints
	Site        domain.Site
	Transport   driven.Transport
	Credentials driven.CredentialStore
	Tokens      driven.TokenStore

	// Lock serializes token refresh across instances. Optional.
	Lock driven.DistributedLock

	// Metrics defaults to driven.NopMetrics.
	Metrics driven.Metrics

	// Limiter throttles outgoing attempts. Optional.
	Limiter *rate.Limiter

	Logger *slog.Logger

	// Version is reported in the User-Agent header.
	Version string

	// Timeout and MaxRedirects apply to every attempt.
	Timeout      time.Duration
	MaxRedirects int

	// RequestBudget bounds a whole logical call including retries and
	// backoff. Zero means unbounded.
	RequestBudget time.Duration

	// Sleep is used for backoff and lock polling. Defaults to a timer that
	// observes ctx.
	Sleep SleepFunc

	LockTTL  time.Duration
	LockWait time.Duration
}

// Client implements driven.WAFAPI.
type Client struct {
	endpoints    domain.Endpoints
	site         domain.Site
	transport    driven.Transport
	credentials  driven.CredentialStore
	tokens       driven.TokenStore
	lock         driven.DistributedLock
	metrics      driven.Metrics
	limiter      *rate.Limiter
	logger       *slog.Logger
	userAgent    string
	timeout      time.Duration
	maxRedirects int
	budget       time.Duration
	sleep        SleepFunc
	lockTTL      time.Duration
	lockWait     time.Duration

	refresh singleflight.Group
}

// New creates a Client. Endpoints are validated once here and never change.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil || cfg.Credentials == nil || cfg.Tokens == nil {
		return nil, errors.New("wafapi: transport, credentials and tokens are required")
	}
	if err := cfg.Endpoints.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		endpoints:    cfg.Endpoints,
		site:         cfg.Site,
		transport:    cfg.Transport,
		credentials:  cfg.Credentials,
		tokens:       cfg.Tokens,
		lock:         cfg.Lock,
		metrics:      cfg.Metrics,
		limiter:      cfg.Limiter,
		logger:       cfg.Logger,
		timeout:      cfg.Timeout,
		maxRedirects: cfg.MaxRedirects,
		budget:       cfg.RequestBudget,
		sleep:        cfg.Sleep,
		lockTTL:      cfg.LockTTL,
		lockWait:     cfg.LockWait,
	}

	if c.metrics == nil {
		c.metrics = driven.NopMetrics{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "wafapi")
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRedirects <= 0 {
		c.maxRedirects = DefaultMaxRedirects
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.lockTTL <= 0 {
		c.lockTTL = DefaultLockTTL
	}
	if c.lockWait <= 0 {
		c.lockWait = DefaultLockWait
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	c.userAgent = "wafbroker/" + version

	return c, nil
}

// Call describes one logical request.
type Call struct {
	Service domain.Service
	Path    string
	Method  string

	// Body is JSON-encoded for non-GET methods and query-encoded for GET.
	Body any

	// Public calls carry no bearer token and never trigger a 401 retry.
	Public bool
}

// Do executes call and returns the raw JSON body of a successful response.
// An empty success body yields a nil message.
func (c *Client) Do(ctx context.Context, call Call) (json.RawMessage, error) {
	base, err := c.endpoints.BaseURL(call.Service)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, payload, err := buildTarget(method, base+call.Path, call.Body)
	if err != nil {
		return nil, err
	}

	if c.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.do(ctx, call, method, target, payload)
	c.metrics.ObserveRequest(call.Service.String(), outcomeFor(err), time.Since(start))
	return raw, err
}

func (c *Client) do(ctx context.Context, call Call, method, target string, payload []byte) (json.RawMessage, error) {
	requestID := uuid.NewString()
	logger := c.logger.With("service", call.Service.String(), "method", method, "path", call.Path, "request_id", requestID)

	for authAttempt := 0; ; authAttempt++ {
		header := c.header(requestID)

		if !call.Public {
			bearer, err := c.AccessToken(ctx)
			if err != nil {
				return nil, err
			}
			header.Set("Authorization", "Bearer "+bearer)
		}

		logger.Debug("sending request", "url", target)

		resp, err := c.send(ctx, call.Service, logger, &driven.TransportRequest{
			Method:       method,
			URL:          target,
			Header:       header,
			Body:         payload,
			Timeout:      c.timeout,
			MaxRedirects: c.maxRedirects,
		})
		if err != nil {
			logger.Error("request failed", "error", err)
			return nil, err
		}

		raw, err := parseBody(resp.Body)
		if err != nil {
			logger.Error("invalid JSON response", "status", resp.Status)
			return nil, err
		}

		if resp.Status == http.StatusUnauthorized && !call.Public {
			if authAttempt == 0 {
				logger.Info("authentication rejected, refreshing token and retrying")
				if err := c.tokens.Clear(ctx); err != nil {
					logger.Warn("failed to clear token", "error", err)
				}
				c.metrics.IncRetry(call.Service.String(), driven.RetryUnauthorized)
				continue
			}
			_, msg := errorFields(raw)
			logger.Error("authentication rejected after token refresh")
			return nil, &domain.AuthError{Message: msg}
		}

		if resp.Status >= http.StatusBadRequest {
			code, msg := errorFields(raw)
			logger.Error("api error", "status", resp.Status, "code", code, "message", msg)
			return nil, &domain.APIError{Status: resp.Status, Code: code, Message: msg}
		}

		return raw, nil
	}
}

// send performs the transport attempts for one HTTP call. The first
// attempt is followed by up to MaxTransportRetries retries, sleeping
// 1s, 2s, 4s between them.
func (c *Client) send(ctx context.Context, service domain.Service, logger *slog.Logger, req *driven.TransportRequest) (*driven.TransportResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxTransportRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt - 1)
			logger.Info("retrying request", "attempt", attempt, "max_retries", MaxTransportRetries, "delay", delay, "error", lastErr)
			c.metrics.IncRetry(service.String(), driven.RetryTransport)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &domain.TransportError{Attempts: attempt, Err: errors.Join(lastErr, err)}
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &domain.TransportError{Attempts: attempt, Err: err}
			}
		}

		resp, err := c.transport.Do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &domain.TransportError{Attempts: attempt + 1, Err: err}
		}
	}
	return nil, &domain.TransportError{Attempts: MaxTransportRetries + 1, Err: lastErr}
}

func (c *Client) header(requestID string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", c.userAgent)
	h.Set("X-Request-ID", requestID)
	return h
}

// backoff returns 2^n seconds.
func backoff(n int) time.Duration {
	return time.Duration(1<<n) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseBody checks a response body is JSON. Empty bodies are allowed.
func parseBody(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, &domain.ProtocolError{Message: "invalid JSON response from API"}
	}
	return json.RawMessage(trimmed), nil
}

// errorFields extracts the remote error code and message, with defaults.
func errorFields(raw json.RawMessage) (code, message string) {
	code, message = defaultErrorCode, unknownError
	if len(raw) == 0 {
		return code, message
	}
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return code, message
	}
	if s, ok := body.Error.(string); ok && s != "" {
		code = s
	}
	if body.Message != "" {
		message = body.Message
	}
	return code, message
}

func outcomeFor(err error) string {
	var (
		apiErr    *domain.APIError
		transport *domain.TransportError
		protocol  *domain.ProtocolError
	)
	switch {
	case err == nil:
		return driven.OutcomeSuccess
	case errors.As(err, &apiErr):
		return driven.OutcomeAPIError
	case errors.As(err, &transport):
		return driven.OutcomeTransport
	case errors.As(err, &protocol):
		return driven.OutcomeProtocol
	default:
		return driven.OutcomeAuth
	}
}
