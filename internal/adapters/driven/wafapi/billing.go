package wafapi

import (
	"context"
	"net/http"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
)

// CreateCheckoutSession opens a hosted payment page for a plan.
func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.logger.Info("creating checkout session", "plan_id", req.PlanID)

	resp, err := doJSON[domain.CheckoutSession](ctx, c, Call{
		Service: domain.ServiceBilling,
		Path:    "/checkout/create",
		Method:  http.MethodPost,
		Body: map[string]any{
			"domain":      c.site.HostDomain(),
			"plan_id":     req.PlanID,
			"success_url": req.SuccessURL,
			"cancel_url":  req.CancelURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Subscription gets the current subscription.
func (c *Client) Subscription(ctx context.Context) (*domain.Subscription, error) {
	return c.subscriptionCall(ctx, "/subscription", http.MethodGet, nil)
}

// UpdateSubscription moves the subscription to planID.
func (c *Client) UpdateSubscription(ctx context.Context, planID string) (*domain.Subscription, error) {
	if planID == "" {
		return nil, domain.NewValidationError("plan_id", "is required")
	}
	c.logger.Info("updating subscription", "plan_id", planID)
	return c.subscriptionCall(ctx, "/subscription/update", http.MethodPost, map[string]any{"plan_id": planID})
}

// CancelSubscription cancels the subscription.
func (c *Client) CancelSubscription(ctx context.Context) (*domain.Subscription, error) {
	c.logger.Info("canceling subscription")
	return c.subscriptionCall(ctx, "/subscription/cancel", http.MethodPost, nil)
}

func (c *Client) subscriptionCall(ctx context.Context, path, method string, body any) (*domain.Subscription, error) {
	raw, err := c.Do(ctx, Call{
		Service: domain.ServiceBilling,
		Path:    path,
		Method:  method,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}

	// Accept both a bare subscription and {"subscription": {...}}.
	var wrapped struct {
		Subscription *domain.Subscription `json:"subscription"`
	}
	if err := decodeInto(raw, &wrapped); err == nil && wrapped.Subscription != nil {
		return wrapped.Subscription, nil
	}

	var sub domain.Subscription
	if err := decodeInto(raw, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Plans lists the available plans.
func (c *Client) Plans(ctx context.Context) ([]domain.Plan, error) {
	raw, err := c.Do(ctx, Call{
		Service: domain.ServiceBilling,
		Path:    "/plans",
		Method:  http.MethodGet,
	})
	if err != nil {
		return nil, err
	}

	var plans []domain.Plan
	if len(raw) > 0 && raw[0] == '[' {
		if err := decodeInto(raw, &plans); err != nil {
			return nil, err
		}
		return plans, nil
	}

	var wrapped struct {
		Plans []domain.Plan `json:"plans"`
	}
	if err := decodeInto(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Plans, nil
}

// CustomerPortalURL returns a billing portal link that redirects back to
// returnURL.
func (c *Client) CustomerPortalURL(ctx context.Context, returnURL string) (string, error) {
	if returnURL == "" {
		return "", domain.NewValidationError("return_url", "is required")
	}

	resp, err := doJSON[struct {
		URL string `json:"url"`
	}](ctx, c, Call{
		Service: domain.ServiceBilling,
		Path:    "/customer/portal",
		Method:  http.MethodPost,
		Body:    map[string]any{"return_url": returnURL},
	})
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &domain.ProtocolError{Message: "portal response has no url"}
	}
	return resp.URL, nil
}
