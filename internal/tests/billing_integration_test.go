//go:build integration

package tests

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentfleet-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte("whsec_integration"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/billing/webhook", bytes.NewReader(body))
	req.Header.Set("X-Billing-Signature", signWebhook(body))
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	return w
}

// TestBillingFlow takes a company from an expired trial through checkout
// and a provider webhook back to full service.
func TestBillingFlow(t *testing.T) {
	testutil.RequireIntegration(t)

	// A dedicated company so subscription changes don't leak into other tests
	w := doJSON(t, "POST", "/auth/signup", "", map[string]string{
		"company_name": "Billing Flow Rentals",
		"email":        "owner@billingflow.example",
		"password":     "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var signup struct {
		Token   string `json:"token"`
		Company struct {
			ID int64 `json:"id"`
		} `json:"company"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	token := signup.Token
	companyID := signup.Company.ID

	var planID int64
	require.NoError(t, testDB.QueryRow(`SELECT id FROM plans WHERE name = 'Starter'`).Scan(&planID))

	t.Run("ExpiredTrialGatesWrites", func(t *testing.T) {
		_, err := testDB.Exec(
			`UPDATE companies SET trial_ends_at = now() - interval '1 day' WHERE id = $1`, companyID)
		require.NoError(t, err)

		vw := doJSON(t, "POST", "/vehicles", token, map[string]interface{}{
			"plate": "GAT3D11",
			"make":  "Fiat",
			"model": "Mobi",
		})
		assert.Equal(t, http.StatusPaymentRequired, vw.Code)
		assert.Contains(t, vw.Body.String(), "SUBSCRIPTION_REQUIRED")

		// Reads stay open
		lw := doJSON(t, "GET", "/vehicles", token, nil)
		assert.Equal(t, http.StatusOK, lw.Code)
	})

	var customerID string
	t.Run("CheckoutSessionAllocatesCustomer", func(t *testing.T) {
		cw := doJSON(t, "POST", "/billing/checkout-session", token, map[string]interface{}{
			"plan_id": planID,
		})
		require.Equal(t, http.StatusOK, cw.Code, cw.Body.String())

		var resp struct {
			SessionID   string `json:"session_id"`
			CheckoutURL string `json:"checkout_url"`
		}
		require.NoError(t, json.Unmarshal(cw.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.SessionID)
		assert.NotEmpty(t, resp.CheckoutURL)

		require.NoError(t, testDB.QueryRow(
			`SELECT billing_customer_id FROM companies WHERE id = $1`, companyID).Scan(&customerID))
		assert.NotEmpty(t, customerID)
	})

	t.Run("CheckoutRejectsUnknownPlan", func(t *testing.T) {
		cw := doJSON(t, "POST", "/billing/checkout-session", token, map[string]interface{}{
			"plan_id": 999999,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, cw.Code)
	})

	t.Run("WebhookActivatesSubscription", func(t *testing.T) {
		ww := postWebhook(t, map[string]interface{}{
			"type":        "subscription.updated",
			"customer_id": customerID,
			"status":      "active",
			"plan_id":     planID,
		})
		require.Equal(t, http.StatusOK, ww.Code, ww.Body.String())

		var status string
		require.NoError(t, testDB.QueryRow(
			`SELECT subscription_status FROM companies WHERE id = $1`, companyID).Scan(&status))
		assert.Equal(t, "active", status)

		// Writes are open again
		vw := doJSON(t, "POST", "/vehicles", token, map[string]interface{}{
			"plate": "GAT3D11",
			"make":  "Fiat",
			"model": "Mobi",
		})
		assert.Equal(t, http.StatusCreated, vw.Code, vw.Body.String())
	})

	t.Run("WebhookUnknownCustomerIsAcknowledged", func(t *testing.T) {
		ww := postWebhook(t, map[string]interface{}{
			"type":        "subscription.updated",
			"customer_id": "cus_does_not_exist",
			"status":      "active",
		})
		assert.Equal(t, http.StatusOK, ww.Code, "unknown customers must not trigger provider retries")
	})

	t.Run("WebhookBadSignatureRejected", func(t *testing.T) {
		body := []byte(`{"type":"subscription.updated","customer_id":"` + customerID + `","status":"canceled"}`)
		req := httptest.NewRequest("POST", "/billing/webhook", bytes.NewReader(body))
		req.Header.Set("X-Billing-Signature", "deadbeef")
		rec := httptest.NewRecorder()
		testServer.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var status string
		require.NoError(t, testDB.QueryRow(
			`SELECT subscription_status FROM companies WHERE id = $1`, companyID).Scan(&status))
		assert.Equal(t, "active", status, "a forged webhook must not change the subscription")
	})

	t.Run("PortalLink", func(t *testing.T) {
		pw := doJSON(t, "POST", "/billing/portal-link", token, nil)
		require.Equal(t, http.StatusOK, pw.Code, pw.Body.String())
		assert.Contains(t, pw.Body.String(), customerID)
	})

	t.Run("CancelSubscription", func(t *testing.T) {
		cw := doJSON(t, "POST", "/billing/cancel", token, nil)
		assert.Equal(t, http.StatusAccepted, cw.Code, cw.Body.String())
	})
}
