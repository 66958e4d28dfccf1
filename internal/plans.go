package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"rentfleet-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const planColumns = `id, name, monthly_price_cents, vehicle_limit, user_limit, is_active, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }, p *models.Plan) error {
	return row.Scan(&p.ID, &p.Name, &p.MonthlyPriceCents, &p.VehicleLimit, &p.UserLimit,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

// listPlans returns the active catalog. Plans are global, not
// company-scoped, so any authenticated user may read them.
func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	sqlStr := fmt.Sprintf(`SELECT %s FROM plans WHERE is_active = true ORDER BY monthly_price_cents ASC`, planColumns)
	if r.URL.Query().Get("include_inactive") == "true" {
		sqlStr = fmt.Sprintf(`SELECT %s FROM plans ORDER BY monthly_price_cents ASC`, planColumns)
	}

	rows, err := s.DB.QueryContext(r.Context(), sqlStr)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		var p models.Plan
		if err := scanPlan(rows, &p); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		plans = append(plans, p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(plans)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p models.Plan
	err := scanPlan(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM plans WHERE id = $1`, planColumns), id), &p)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var in models.Plan
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		http.Error(w, "name is required", 400)
		return
	}
	if in.MonthlyPriceCents < 0 {
		http.Error(w, "monthly_price_cents cannot be negative", 400)
		return
	}

	err := s.DB.QueryRowContext(r.Context(), `
		INSERT INTO plans (name, monthly_price_cents, vehicle_limit, user_limit, is_active)
		VALUES ($1,$2,$3,$4,true)
		RETURNING id, is_active, created_at, updated_at
	`, in.Name, in.MonthlyPriceCents, in.VehicleLimit, in.UserLimit).
		Scan(&in.ID, &in.IsActive, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			http.Error(w, "a plan with this name already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "plan", in.ID, "create", models.JSONB{"name": in.Name})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in struct {
		Name              *string `json:"name"`
		MonthlyPriceCents *int64  `json:"monthly_price_cents"`
		VehicleLimit      *int    `json:"vehicle_limit"`
		UserLimit         *int    `json:"user_limit"`
		IsActive          *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 5)
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		sets = append(sets, set{"name = $%d", *in.Name})
	}
	if in.MonthlyPriceCents != nil {
		if *in.MonthlyPriceCents < 0 {
			http.Error(w, "monthly_price_cents cannot be negative", 400)
			return
		}
		sets = append(sets, set{"monthly_price_cents = $%d", *in.MonthlyPriceCents})
	}
	if in.VehicleLimit != nil {
		sets = append(sets, set{"vehicle_limit = $%d", *in.VehicleLimit})
	}
	if in.UserLimit != nil {
		sets = append(sets, set{"user_limit = $%d", *in.UserLimit})
	}
	if in.IsActive != nil {
		sets = append(sets, set{"is_active = $%d", *in.IsActive})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE plans SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, planColumns)
	args = append(args, id)

	var out models.Plan
	err := scanPlan(s.DB.QueryRowContext(r.Context(), sqlStr, args...), &out)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "plan", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// deletePlan retires a plan. Plans referenced by companies are never
// removed, only deactivated.
func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var inUse bool
	if err := s.DB.QueryRowContext(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM companies WHERE plan_id = $1)`, id).Scan(&inUse); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if inUse {
		res, err := s.DB.ExecContext(r.Context(),
			`UPDATE plans SET is_active = false, updated_at = now() WHERE id = $1`, id)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.writeAudit(r.Context(), "plan", parseID(id), "deactivate", nil)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "plan", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
