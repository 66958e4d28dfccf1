package models

import "time"

// Subscription lifecycle states for a company.
const (
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Company represents the billing/organizational unit all vehicles,
// contracts, and users are scoped under.
type Company struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	PlanID             *int64     `json:"plan_id,omitempty"`
	SubscriptionStatus string     `json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	BillingCustomerID  *string    `json:"billing_customer_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CreateCompanyRequest represents the request body for creating a new company
type CreateCompanyRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=255"`
	Slug   string `json:"slug,omitempty"`
	PlanID *int64 `json:"plan_id,omitempty"`
}

// UpdateCompanyRequest represents the request body for updating a company
type UpdateCompanyRequest struct {
	Name               *string    `json:"name,omitempty"`
	PlanID             *int64     `json:"plan_id,omitempty"`
	SubscriptionStatus *string    `json:"subscription_status,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
}

// ValidSubscriptionStatuses defines the accepted subscription states
var ValidSubscriptionStatuses = []string{
	SubscriptionTrialing,
	SubscriptionActive,
	SubscriptionPastDue,
	SubscriptionCanceled,
}

// IsValidSubscriptionStatus checks if a subscription status is valid
func IsValidSubscriptionStatus(status string) bool {
	for _, s := range ValidSubscriptionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Gated reports whether the company should be blocked from mutating
// domain data: the trial has lapsed and no subscription is active.
func (c *Company) Gated(now time.Time) bool {
	if c.SubscriptionStatus == SubscriptionActive {
		return false
	}
	if c.SubscriptionStatus == SubscriptionTrialing {
		return c.TrialEndsAt != nil && now.After(*c.TrialEndsAt)
	}
	return true
}
