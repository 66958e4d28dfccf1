package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"
)

// requireActiveSubscription is the trial gate: once a company's trial has
// lapsed without an active subscription, mutating requests are refused
// with 402 and the billing page URL the client should redirect to.
// Reads stay open so the company can still see its data, and billing
// routes themselves are never gated.
func (s *Server) requireActiveSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if auth.IsPlatformAdmin(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}

		companyID := auth.CompanyIDFromContext(r.Context())

		var status string
		var trialEndsAt sql.NullTime
		err := s.DB.QueryRowContext(r.Context(),
			`SELECT subscription_status, trial_ends_at FROM companies WHERE id = $1`,
			companyID).Scan(&status, &trialEndsAt)
		if err == sql.ErrNoRows {
			sendError(w, http.StatusForbidden, "Company not found", "COMPANY_NOT_FOUND")
			return
		}
		if err != nil {
			sendError(w, http.StatusInternalServerError, "Database error", "DATABASE_ERROR")
			return
		}

		company := models.Company{SubscriptionStatus: status}
		if trialEndsAt.Valid {
			company.TrialEndsAt = &trialEndsAt.Time
		}

		if company.Gated(time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(map[string]string{
				"error":       "Subscription required",
				"code":        "SUBSCRIPTION_REQUIRED",
				"billing_url": s.Config.BillingPageURL,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendError sends a standardized JSON error response
func sendError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
