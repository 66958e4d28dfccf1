package billing

import (
	"context"
	"strings"
	"testing"
)

func TestStubProvider_CreateCheckoutSession(t *testing.T) {
	p := NewStubProvider()

	session, err := p.CreateCheckoutSession(context.Background(), "cus_abc", 3, "/done", "/cancel")
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if !strings.HasPrefix(session.ID, "cs_") {
		t.Errorf("Expected session ID with cs_ prefix, got %q", session.ID)
	}
	if !strings.Contains(session.URL, session.ID) {
		t.Errorf("Expected checkout URL to embed the session ID, got %q", session.URL)
	}
	if !strings.Contains(session.URL, "plan=3") {
		t.Errorf("Expected checkout URL to carry the plan, got %q", session.URL)
	}

	other, err := p.CreateCheckoutSession(context.Background(), "cus_abc", 3, "/done", "/cancel")
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if other.ID == session.ID {
		t.Error("Expected distinct session IDs")
	}
}

func TestStubProvider_PortalLink(t *testing.T) {
	p := NewStubProvider()

	url, err := p.PortalLink(context.Background(), "cus_abc")
	if err != nil {
		t.Fatalf("PortalLink() error = %v", err)
	}
	if !strings.Contains(url, "cus_abc") {
		t.Errorf("Expected portal URL to embed the customer, got %q", url)
	}

	if _, err := p.PortalLink(context.Background(), ""); err == nil {
		t.Error("Expected error for empty customer ID")
	}
}

func TestStubProvider_CancelSubscription(t *testing.T) {
	p := NewStubProvider()

	if err := p.CancelSubscription(context.Background(), "cus_abc"); err != nil {
		t.Errorf("CancelSubscription() error = %v", err)
	}
	if err := p.CancelSubscription(context.Background(), ""); err == nil {
		t.Error("Expected error for empty customer ID")
	}
}
