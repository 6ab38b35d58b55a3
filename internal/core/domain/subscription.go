package domain

import "time"

// SubscriptionCacheTTL is how long a cached subscription counts as fresh.
const SubscriptionCacheTTL = time.Hour

// Subscription statuses treated as active.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
)

// Subscription is the billing service's view of the site's plan.
type Subscription struct {
	ID                string `json:"id,omitempty"`
	PlanID            string `json:"plan_id"`
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end,omitempty"`
	UpdatedAt         int64  `json:"updated_at"`
}

// IsActive reports whether the plan currently grants protection.
func (s *Subscription) IsActive() bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

// IsFreshAt reports whether the cached copy is within the freshness window.
func (s *Subscription) IsFreshAt(now time.Time) bool {
	if s == nil || s.UpdatedAt == 0 {
		return false
	}
	return now.Sub(time.Unix(s.UpdatedAt, 0)) < SubscriptionCacheTTL
}

// Expiration returns the period end, if known.
func (s *Subscription) Expiration() (time.Time, bool) {
	if s == nil || s.CurrentPeriodEnd == 0 {
		return time.Time{}, false
	}
	return time.Unix(s.CurrentPeriodEnd, 0), true
}

// Plan is an offer from the billing service.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Interval string   `json:"interval,omitempty"`
	Features []string `json:"features,omitempty"`
}

// CheckoutSession is a hosted payment page.
type CheckoutSession struct {
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url"`
}

// CheckoutRequest is sent to /checkout/create.
type CheckoutRequest struct {
	PlanID     string `json:"plan_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// Validate checks required checkout fields.
func (r CheckoutRequest) Validate() error {
	if r.PlanID == "" {
		return NewValidationError("plan_id", "is required")
	}
	if r.SuccessURL == "" || r.CancelURL == "" {
		return NewValidationError("redirect_url", "success and cancel URLs are required")
	}
	return nil
}

// BillingEvent is a payment-provider webhook event type.
type BillingEvent string

const (
	EventSubscriptionCreated BillingEvent = "subscription_created"
	EventSubscriptionUpdated BillingEvent = "subscription_updated"
	EventSubscriptionDeleted BillingEvent = "subscription_deleted"
	EventPaymentSucceeded    BillingEvent = "payment_succeeded"
	EventPaymentFailed       BillingEvent = "payment_failed"
)

// IsKnown checks if the event type is handled
func (e BillingEvent) IsKnown() bool {
	switch e {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted,
		EventPaymentSucceeded, EventPaymentFailed:
		return true
	}
	return false
}
