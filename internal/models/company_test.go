package models

import (
	"testing"
	"time"
)

func TestIsValidSubscriptionStatus(t *testing.T) {
	valid := []string{"trialing", "active", "past_due", "canceled"}
	for _, status := range valid {
		if !IsValidSubscriptionStatus(status) {
			t.Errorf("Expected %q to be a valid subscription status", status)
		}
	}

	invalid := []string{"", "paused", "ACTIVE", "expired"}
	for _, status := range invalid {
		if IsValidSubscriptionStatus(status) {
			t.Errorf("Expected %q to be an invalid subscription status", status)
		}
	}
}

func TestCompanyGated(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name    string
		company Company
		want    bool
	}{
		{
			name:    "active subscription is never gated",
			company: Company{SubscriptionStatus: SubscriptionActive},
			want:    false,
		},
		{
			name:    "trialing inside the trial window",
			company: Company{SubscriptionStatus: SubscriptionTrialing, TrialEndsAt: &future},
			want:    false,
		},
		{
			name:    "trialing past the trial window",
			company: Company{SubscriptionStatus: SubscriptionTrialing, TrialEndsAt: &past},
			want:    true,
		},
		{
			name:    "trialing without a trial end stays open",
			company: Company{SubscriptionStatus: SubscriptionTrialing},
			want:    false,
		},
		{
			name:    "past_due is gated",
			company: Company{SubscriptionStatus: SubscriptionPastDue},
			want:    true,
		},
		{
			name:    "canceled is gated",
			company: Company{SubscriptionStatus: SubscriptionCanceled},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.company.Gated(now); got != tt.want {
				t.Errorf("Gated() = %v, want %v", got, tt.want)
			}
		})
	}
}
