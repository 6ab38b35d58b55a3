package wafapi

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
)

// Token refresh results recorded in metrics.
const (
	refreshSuccess   = "success"
	refreshRejected  = "rejected"
	refreshTransport = "transport_error"
)

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

// AccessToken returns a cached token or requests a new one.
// Concurrent callers for the same client id share a single token request.
// The shared request is detached from any one caller's cancellation and
// bounded by the attempt timeout plus the lock wait; each caller stops
// waiting when its own ctx is done.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(ctx); ok {
		return token, nil
	}

	creds, ok := c.credentials.Credentials(ctx)
	if !ok {
		c.logger.Error("no client credentials found")
		return "", domain.ErrMissingCredentials
	}

	flight := c.refresh.DoChan(creds.ClientID, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout+c.lockWait)
		defer cancel()
		return c.refreshToken(flightCtx, creds)
	})

	select {
	case <-ctx.Done():
		return "", &domain.TransportError{Attempts: 1, Err: ctx.Err()}
	case res := <-flight:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			c.logger.Debug("joined in-flight token refresh")
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refreshToken(ctx context.Context, creds domain.Credentials) (string, error) {
	// A flight that finished just before this one started may have stored
	// a token already.
	if token, ok := c.tokens.Get(ctx); ok {
		return token, nil
	}
	if c.lock == nil {
		return c.requestToken(ctx, creds)
	}

	name := "token-refresh:" + creds.ClientID
	polls := int(c.lockWait / lockPollInterval)

	for i := 0; ; i++ {
		acquired, err := c.lock.Acquire(ctx, name, c.lockTTL)
		if err != nil {
			c.logger.Warn("refresh lock unavailable, refreshing without it", "error", err)
			return c.requestToken(ctx, creds)
		}
		if acquired {
			defer c.releaseLock(ctx, name)
			if token, ok := c.tokens.Get(ctx); ok {
				return token, nil
			}
			return c.requestToken(ctx, creds)
		}

		if i >= polls {
			c.logger.Warn("timed out waiting for refresh by another instance")
			return c.requestToken(ctx, creds)
		}
		if err := c.sleep(ctx, lockPollInterval); err != nil {
			return "", err
		}
		if token, ok := c.tokens.Get(ctx); ok {
			return token, nil
		}
	}
}

func (c *Client) releaseLock(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.lock.Release(ctx, name); err != nil {
		c.logger.Warn("failed to release refresh lock", "lock", name, "error", err)
	}
}

// requestToken performs the client_credentials grant. It is a single
// attempt; transport failures are not retried.
func (c *Client) requestToken(ctx context.Context, creds domain.Credentials) (string, error) {
	base, err := c.endpoints.BaseURL(domain.ServiceAuth)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(tokenRequest{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("requesting new auth token", "client_id", creds.ClientID)

	resp, err := c.transport.Do(ctx, &driven.TransportRequest{
		Method:       http.MethodPost,
		URL:          base + "/token",
		Header:       c.header(uuid.NewString()),
		Body:         payload,
		Timeout:      c.timeout,
		MaxRedirects: c.maxRedirects,
	})
	if err != nil {
		c.metrics.IncTokenRefresh(refreshTransport)
		c.logger.Error("token request failed", "error", err)
		return "", &domain.TransportError{Attempts: 1, Err: err}
	}

	var body domain.TokenResponse
	if trimmed := bytes.TrimSpace(resp.Body); len(trimmed) > 0 {
		// An unparseable body is reported like a body without a token.
		_ = json.Unmarshal(trimmed, &body)
	}

	if resp.Status != http.StatusOK || body.AccessToken == "" {
		msg := body.Message
		if msg == "" {
			msg = unknownError
		}
		c.metrics.IncTokenRefresh(refreshRejected)
		c.logger.Error("token request rejected", "status", resp.Status, "message", msg)
		return "", &domain.TokenRequestError{Status: resp.Status, Message: msg}
	}

	if err := c.tokens.Set(ctx, body.AccessToken, body.Lifetime()); err != nil {
		c.logger.Warn("failed to cache token", "error", err)
	}
	c.metrics.IncTokenRefresh(refreshSuccess)

	return body.AccessToken, nil
}
