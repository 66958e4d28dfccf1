package internal

import (
	"encoding/json"
	"net/http"

	"rentfleet-api/internal/auth"
)

type dashboardResponse struct {
	Vehicles struct {
		Total       int64 `json:"total"`
		Available   int64 `json:"available"`
		Rented      int64 `json:"rented"`
		Maintenance int64 `json:"maintenance"`
		Inactive    int64 `json:"inactive"`
	} `json:"vehicles"`
	ActiveContracts   int64 `json:"active_contracts"`
	OpenFines         int64 `json:"open_fines"`
	OpenFinesCents    int64 `json:"open_fines_cents"`
	MonthRevenueCents int64 `json:"month_revenue_cents"`
	MonthExpenseCents int64 `json:"month_expense_cents"`
}

// getDashboard returns the per-company aggregates the landing page
// renders. Revenue is the daily-rate value of contracts active at any
// point this month; expenses are the sum of this month's entries.
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	var resp dashboardResponse

	err := q.QueryRowContext(r.Context(), `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'rented'),
			COUNT(*) FILTER (WHERE status = 'maintenance'),
			COUNT(*) FILTER (WHERE status = 'inactive')
		FROM vehicles WHERE company_id = $1
	`, companyID).Scan(
		&resp.Vehicles.Total, &resp.Vehicles.Available, &resp.Vehicles.Rented,
		&resp.Vehicles.Maintenance, &resp.Vehicles.Inactive,
	)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	err = q.QueryRowContext(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM contracts WHERE company_id = $1 AND status = 'active'),
			(SELECT COUNT(*) FROM fines WHERE company_id = $1 AND status IN ('pending', 'notified', 'contested')),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM fines WHERE company_id = $1 AND status IN ('pending', 'notified', 'contested')),
			(SELECT COALESCE(SUM(
				daily_rate_cents * GREATEST(1, LEAST(COALESCE(end_date, now()), now())::date - GREATEST(start_date, date_trunc('month', now()))::date)
			), 0)
			 FROM contracts
			 WHERE company_id = $1 AND status IN ('active', 'closed')
			   AND (end_date IS NULL OR end_date >= date_trunc('month', now()))
			   AND start_date < date_trunc('month', now()) + interval '1 month'),
			(SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
			 WHERE company_id = $1 AND incurred_on >= date_trunc('month', now()))
	`, companyID).Scan(
		&resp.ActiveContracts, &resp.OpenFines, &resp.OpenFinesCents,
		&resp.MonthRevenueCents, &resp.MonthExpenseCents,
	)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
