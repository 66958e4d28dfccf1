package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StubProvider is a no-op payment processor for development and tests.
// It hands out fake checkout and portal URLs and accepts every cancel.
type StubProvider struct {
	BaseURL string
}

// NewStubProvider returns a stub pointing at a local fake checkout page.
func NewStubProvider() *StubProvider {
	return &StubProvider{BaseURL: "https://billing.invalid"}
}

func (p *StubProvider) CreateCheckoutSession(_ context.Context, customerID string, planID int64, successURL, cancelURL string) (*CheckoutSession, error) {
	id := "cs_" + uuid.NewString()
	return &CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("%s/checkout/%s?plan=%d", p.BaseURL, id, planID),
	}, nil
}

func (p *StubProvider) PortalLink(_ context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("no billing customer on file")
	}
	return fmt.Sprintf("%s/portal/%s", p.BaseURL, customerID), nil
}

func (p *StubProvider) CancelSubscription(_ context.Context, customerID string) error {
	if customerID == "" {
		return fmt.Errorf("no billing customer on file")
	}
	return nil
}
