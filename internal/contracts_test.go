package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// newRequestWithID builds a request carrying a chi {id} route parameter.
func newRequestWithID(method, target, id string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateContract_Validation(t *testing.T) {
	server := &Server{}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid JSON", `not json`, "invalid JSON"},
		{"missing vehicle", `{"tenant_id":2,"start_date":"2026-09-01T00:00:00Z"}`, "vehicle_id and tenant_id are required"},
		{"missing tenant", `{"vehicle_id":1,"start_date":"2026-09-01T00:00:00Z"}`, "vehicle_id and tenant_id are required"},
		{"missing start date", `{"vehicle_id":1,"tenant_id":2}`, "start_date is required"},
		{"end before start", `{"vehicle_id":1,"tenant_id":2,"start_date":"2026-09-10T00:00:00Z","end_date":"2026-09-01T00:00:00Z"}`, "end_date cannot be before start_date"},
		{"negative deposit", `{"vehicle_id":1,"tenant_id":2,"start_date":"2026-09-01T00:00:00Z","deposit_cents":-1}`, "deposit_cents cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/contracts", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			server.createContract(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestUpdateContract_Validation(t *testing.T) {
	server := &Server{}

	t.Run("no fields", func(t *testing.T) {
		req := newRequestWithID("PUT", "/contracts/1", "1", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		server.updateContract(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no fields to update")
	})

	t.Run("nonpositive rate", func(t *testing.T) {
		req := newRequestWithID("PUT", "/contracts/1", "1", strings.NewReader(`{"daily_rate_cents":0}`))
		w := httptest.NewRecorder()

		server.updateContract(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "daily_rate_cents must be positive")
	})

	t.Run("negative deposit", func(t *testing.T) {
		req := newRequestWithID("PUT", "/contracts/1", "1", strings.NewReader(`{"deposit_cents":-500}`))
		w := httptest.NewRecorder()

		server.updateContract(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "deposit_cents cannot be negative")
	})
}
