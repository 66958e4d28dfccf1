package billing

import "context"

// CheckoutSession is a provider-hosted page where a customer enters
// payment details for a plan.
type CheckoutSession struct {
	ID  string
	URL string
}

// Provider abstracts the payment processor. The API only ever needs
// three operations; subscription state flows back through the webhook.
type Provider interface {
	// CreateCheckoutSession opens a checkout for the given customer and
	// plan. customerID may be empty for first-time subscribers; the
	// provider allocates one and reports it on the webhook.
	CreateCheckoutSession(ctx context.Context, customerID string, planID int64, successURL, cancelURL string) (*CheckoutSession, error)

	// PortalLink returns a URL where an existing customer manages their
	// payment method and invoices.
	PortalLink(ctx context.Context, customerID string) (string, error)

	// CancelSubscription stops renewal for the customer's subscription.
	CancelSubscription(ctx context.Context, customerID string) error
}
