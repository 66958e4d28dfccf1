package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const companyColumns = `id, name, slug, plan_id, subscription_status, trial_ends_at, billing_customer_id, created_at, updated_at`

func scanCompany(row interface{ Scan(...any) error }, c *models.Company, extra ...any) error {
	dest := []any{
		&c.ID, &c.Name, &c.Slug, &c.PlanID, &c.SubscriptionStatus, &c.TrialEndsAt,
		&c.BillingCustomerID, &c.CreatedAt, &c.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// slugify produces a URL-safe slug from a company name.
func slugify(name string) string {
	var b strings.Builder
	prev := '-'
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = r
		default:
			if prev != '-' {
				b.WriteRune('-')
				prev = '-'
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// listCompanies returns all companies for platform admins, or just the
// caller's own company otherwise.
func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if !auth.IsPlatformAdmin(r.Context()) {
		clauses = append(clauses, fmt.Sprintf("id = $%d", arg))
		args = append(args, auth.CompanyIDFromContext(r.Context()))
		arg++
	}

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR slug ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	if params.status != "" {
		clauses = append(clauses, fmt.Sprintf("subscription_status = $%d", arg))
		args = append(args, params.status)
		arg++
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM companies`, companyColumns)
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
		"created_at": "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	companies := []interface{}{}
	var totalCount int
	for rows.Next() {
		var c models.Company
		if err := scanCompany(rows, &c, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		companies = append(companies, c)
	}

	sendListResponse(w, companies, totalCount, params)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "id"))
	if id == 0 {
		http.Error(w, "invalid id", 400)
		return
	}
	if !auth.CanManageCompany(r.Context(), id) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var c models.Company
	err := scanCompany(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM companies WHERE id = $1`, companyColumns), id), &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// getCompanyStats returns headline counts for a company.
func (s *Server) getCompanyStats(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "id"))
	if id == 0 {
		http.Error(w, "invalid id", 400)
		return
	}
	if !auth.CanManageCompany(r.Context(), id) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	stats := struct {
		CompanyID       int64 `json:"company_id"`
		Vehicles        int64 `json:"vehicles"`
		Tenants         int64 `json:"tenants"`
		ActiveContracts int64 `json:"active_contracts"`
		Users           int64 `json:"users"`
	}{CompanyID: id}

	err := s.DB.QueryRowContext(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM vehicles WHERE company_id = $1),
			(SELECT COUNT(*) FROM tenants WHERE company_id = $1),
			(SELECT COUNT(*) FROM contracts WHERE company_id = $1 AND status = 'active'),
			(SELECT COUNT(*) FROM users WHERE company_id = $1)
	`, id).Scan(&stats.Vehicles, &stats.Tenants, &stats.ActiveContracts, &stats.Users)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request) {
	var in models.CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		http.Error(w, "name is required", 400)
		return
	}
	if in.Slug == "" {
		in.Slug = slugify(in.Name)
	}
	if in.Slug == "" {
		http.Error(w, "could not derive a slug from name", 400)
		return
	}

	var c models.Company
	err := scanCompany(s.DB.QueryRowContext(r.Context(), `
		INSERT INTO companies (name, slug, plan_id, subscription_status, trial_ends_at)
		VALUES ($1, $2, $3, 'trialing', now() + make_interval(days => $4))
		RETURNING `+companyColumns, in.Name, in.Slug, in.PlanID, s.Config.TrialDays), &c)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			http.Error(w, "a company with this slug already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "company", c.ID, "create", models.JSONB{"name": c.Name, "slug": c.Slug})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "id"))
	if id == 0 {
		http.Error(w, "invalid id", 400)
		return
	}
	if !auth.CanManageCompany(r.Context(), id) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var in models.UpdateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	// Subscription state is owned by the billing flow; only platform
	// operators may set it by hand.
	if (in.SubscriptionStatus != nil || in.TrialEndsAt != nil) && !auth.IsPlatformAdmin(r.Context()) {
		http.Error(w, "subscription fields are managed by billing", http.StatusForbidden)
		return
	}
	if in.SubscriptionStatus != nil && !models.IsValidSubscriptionStatus(*in.SubscriptionStatus) {
		http.Error(w, "invalid subscription_status", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 4)
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		sets = append(sets, set{"name = $%d", *in.Name})
	}
	if in.PlanID != nil {
		sets = append(sets, set{"plan_id = $%d", *in.PlanID})
	}
	if in.SubscriptionStatus != nil {
		sets = append(sets, set{"subscription_status = $%d", *in.SubscriptionStatus})
	}
	if in.TrialEndsAt != nil {
		sets = append(sets, set{"trial_ends_at = $%d", *in.TrialEndsAt})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE companies SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, companyColumns)
	args = append(args, id)

	var out models.Company
	err := scanCompany(s.DB.QueryRowContext(r.Context(), sqlStr, args...), &out)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "company", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// deleteCompany removes a company and everything under it. Platform
// admin only; the platform company itself is untouchable.
func (s *Server) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "id"))
	if id == 0 {
		http.Error(w, "invalid id", 400)
		return
	}
	if id == auth.PlatformCompanyID {
		http.Error(w, "the platform company cannot be deleted", http.StatusConflict)
		return
	}

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "company", id, "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
