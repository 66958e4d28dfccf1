package internal

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"

	"github.com/google/uuid"
)

// createCheckoutSession opens a provider checkout for the caller's
// company. A billing customer is allocated on first use so the webhook
// can always resolve events back to a company.
func (s *Server) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var in models.CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if in.PlanID <= 0 {
		sendError(w, http.StatusBadRequest, "plan_id is required", "VALIDATION_ERROR")
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())

	var planActive bool
	err := s.DB.QueryRowContext(r.Context(),
		`SELECT is_active FROM plans WHERE id = $1`, in.PlanID).Scan(&planActive)
	if err == sql.ErrNoRows {
		sendError(w, http.StatusUnprocessableEntity, "plan not found", "PLAN_NOT_FOUND")
		return
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if !planActive {
		sendError(w, http.StatusUnprocessableEntity, "plan is not available", "PLAN_INACTIVE")
		return
	}

	var customerID *string
	err = s.DB.QueryRowContext(r.Context(),
		`SELECT billing_customer_id FROM companies WHERE id = $1`, companyID).Scan(&customerID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if customerID == nil {
		cid := "cus_" + uuid.NewString()
		if _, err := s.DB.ExecContext(r.Context(),
			`UPDATE companies SET billing_customer_id = $1, updated_at = now() WHERE id = $2 AND billing_customer_id IS NULL`,
			cid, companyID); err != nil {
			sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		// Re-read in case a concurrent request won the allocation.
		if err := s.DB.QueryRowContext(r.Context(),
			`SELECT billing_customer_id FROM companies WHERE id = $1`, companyID).Scan(&customerID); err != nil {
			sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
	}

	session, err := s.Billing.CreateCheckoutSession(r.Context(), *customerID, in.PlanID, in.SuccessURL, in.CancelURL)
	if err != nil {
		sendError(w, http.StatusBadGateway, "payment provider error: "+err.Error(), "BILLING_PROVIDER_ERROR")
		return
	}

	s.writeAudit(r.Context(), "company", companyID, "checkout_session", models.JSONB{"plan_id": in.PlanID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CheckoutSessionResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	})
}

func (s *Server) createPortalLink(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyIDFromContext(r.Context())

	var customerID *string
	err := s.DB.QueryRowContext(r.Context(),
		`SELECT billing_customer_id FROM companies WHERE id = $1`, companyID).Scan(&customerID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if customerID == nil {
		sendError(w, http.StatusConflict, "company has no billing customer yet", "NO_BILLING_CUSTOMER")
		return
	}

	url, err := s.Billing.PortalLink(r.Context(), *customerID)
	if err != nil {
		sendError(w, http.StatusBadGateway, "payment provider error: "+err.Error(), "BILLING_PROVIDER_ERROR")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.PortalLinkResponse{PortalURL: url})
}

// cancelSubscription asks the provider to stop renewal. The local
// status flips when the provider confirms through the webhook.
func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyIDFromContext(r.Context())

	var customerID *string
	err := s.DB.QueryRowContext(r.Context(),
		`SELECT billing_customer_id FROM companies WHERE id = $1`, companyID).Scan(&customerID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if customerID == nil {
		sendError(w, http.StatusConflict, "company has no billing customer yet", "NO_BILLING_CUSTOMER")
		return
	}

	if err := s.Billing.CancelSubscription(r.Context(), *customerID); err != nil {
		sendError(w, http.StatusBadGateway, "payment provider error: "+err.Error(), "BILLING_PROVIDER_ERROR")
		return
	}

	s.writeAudit(r.Context(), "company", companyID, "cancel_subscription", nil)

	w.WriteHeader(http.StatusAccepted)
}

// billingWebhook applies subscription transitions pushed by the payment
// provider. The body is authenticated with an HMAC signature header.
func (s *Server) billingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		sendError(w, http.StatusBadRequest, "could not read body", "INVALID_BODY")
		return
	}

	if s.Config.BillingWebhookSecret != "" {
		mac := hmac.New(sha256.New, []byte(s.Config.BillingWebhookSecret))
		mac.Write(body)
		want := hex.EncodeToString(mac.Sum(nil))
		got := r.Header.Get("X-Billing-Signature")
		if !hmac.Equal([]byte(want), []byte(got)) {
			sendError(w, http.StatusUnauthorized, "invalid webhook signature", "INVALID_SIGNATURE")
			return
		}
	}

	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		sendError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}
	if event.CustomerID == "" {
		sendError(w, http.StatusBadRequest, "customer_id is required", "VALIDATION_ERROR")
		return
	}
	if !models.IsValidSubscriptionStatus(event.Status) {
		sendError(w, http.StatusBadRequest, "unknown subscription status", "VALIDATION_ERROR")
		return
	}

	var companyID int64
	err = s.DB.QueryRowContext(r.Context(),
		`SELECT id FROM companies WHERE billing_customer_id = $1`, event.CustomerID).Scan(&companyID)
	if err == sql.ErrNoRows {
		// Unknown customer: acknowledge so the provider stops retrying.
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}

	if event.PlanID != nil {
		_, err = s.DB.ExecContext(r.Context(),
			`UPDATE companies SET subscription_status = $1, plan_id = $2, updated_at = now() WHERE id = $3`,
			event.Status, *event.PlanID, companyID)
	} else {
		_, err = s.DB.ExecContext(r.Context(),
			`UPDATE companies SET subscription_status = $1, updated_at = now() WHERE id = $2`,
			event.Status, companyID)
	}
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}

	// No JWT claims on webhook requests; record the company directly.
	if _, err := s.DB.ExecContext(r.Context(), `
		INSERT INTO audit_logs (company_id, actor_id, entity_type, entity_id, action, detail)
		VALUES ($1, 0, 'company', $1, $2, $3)`,
		companyID, "subscription_"+event.Status,
		models.JSONB{"event_type": event.Type, "customer_id": event.CustomerID}); err != nil {
		log.Printf("audit write failed (webhook company %d): %v", companyID, err)
	}

	w.WriteHeader(http.StatusOK)
}
