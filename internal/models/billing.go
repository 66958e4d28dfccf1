package models

import "time"

// CheckoutSessionRequest starts a subscription checkout for a plan
type CheckoutSessionRequest struct {
	PlanID     int64  `json:"plan_id" validate:"required"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

// CheckoutSessionResponse carries the provider-hosted checkout URL
type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// PortalLinkResponse carries the provider-hosted customer portal URL
type PortalLinkResponse struct {
	PortalURL string `json:"portal_url"`
}

// SubscriptionEvent is the webhook payload the payment provider posts
// back when a subscription changes state.
type SubscriptionEvent struct {
	Type           string     `json:"type"`
	CustomerID     string     `json:"customer_id"`
	Status         string     `json:"status"`
	PlanID         *int64     `json:"plan_id,omitempty"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	IdempotenceKey string     `json:"idempotence_key,omitempty"`
}
