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

const tenantColumns = `id, company_id, full_name, document_number, email, phone,
	       license_number, license_expires_at, address, notes, is_active, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }, t *models.Tenant, extra ...any) error {
	dest := []any{
		&t.ID, &t.CompanyID, &t.FullName, &t.DocumentNumber, &t.Email, &t.Phone,
		&t.LicenseNumber, &t.LicenseExpiresAt, &t.Address, &t.Notes, &t.IsActive,
		&t.CreatedAt, &t.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (s *Server) listTenants(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	companyID := auth.CompanyIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
	args = append(args, companyID)
	arg++

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE $%d OR document_number ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM tenants WHERE %s`, tenantColumns, strings.Join(clauses, " AND "))

	allowedSort := map[string]string{
		"id":         "id",
		"full_name":  "full_name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	tenants := []interface{}{}
	var totalCount int
	for rows.Next() {
		var t models.Tenant
		if err := scanTenant(rows, &t, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		tenants = append(tenants, t)
	}

	sendListResponse(w, tenants, totalCount, params)
}

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var t models.Tenant
	q := dbFrom(r.Context(), s.DB)
	err := scanTenant(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM tenants WHERE id = $1 AND company_id = $2`, tenantColumns), id, companyID), &t)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (s *Server) createTenant(w http.ResponseWriter, r *http.Request) {
	var in models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.DocumentNumber) == "" {
		http.Error(w, "full_name and document_number are required", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	err := q.QueryRowContext(r.Context(), `
		INSERT INTO tenants (company_id, full_name, document_number, email, phone, license_number, license_expires_at, address, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, is_active, created_at, updated_at
	`, companyID, in.FullName, in.DocumentNumber, nullIfEmpty(in.Email), nullIfEmpty(in.Phone),
		nullIfEmpty(in.LicenseNumber), in.LicenseExpiresAt, nullIfEmpty(in.Address), nullIfEmpty(in.Notes)).
		Scan(&in.ID, &in.IsActive, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "document_number already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	in.CompanyID = companyID

	s.writeAudit(r.Context(), "tenant", in.ID, "create", models.JSONB{"document_number": in.DocumentNumber})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

func (s *Server) updateTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var in struct {
		models.Tenant
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 9)
	if strings.TrimSpace(in.FullName) != "" {
		sets = append(sets, set{"full_name = $%d", in.FullName})
	}
	if strings.TrimSpace(in.DocumentNumber) != "" {
		sets = append(sets, set{"document_number = $%d", in.DocumentNumber})
	}
	if in.Email != nil {
		sets = append(sets, set{"email = $%d", nullIfEmpty(in.Email)})
	}
	if in.Phone != nil {
		sets = append(sets, set{"phone = $%d", nullIfEmpty(in.Phone)})
	}
	if in.LicenseNumber != nil {
		sets = append(sets, set{"license_number = $%d", nullIfEmpty(in.LicenseNumber)})
	}
	if in.LicenseExpiresAt != nil {
		sets = append(sets, set{"license_expires_at = $%d", in.LicenseExpiresAt})
	}
	if in.Address != nil {
		sets = append(sets, set{"address = $%d", nullIfEmpty(in.Address)})
	}
	if in.Notes != nil {
		sets = append(sets, set{"notes = $%d", nullIfEmpty(in.Notes)})
	}
	if in.IsActive != nil {
		sets = append(sets, set{"is_active = $%d", *in.IsActive})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE tenants SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d RETURNING %s", len(args)+1, len(args)+2, tenantColumns)
	args = append(args, id, companyID)

	q := dbFrom(r.Context(), s.DB)
	var out models.Tenant
	if err := scanTenant(q.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "document_number already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "tenant", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) deleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)

	var activeContracts int
	err := q.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FROM contracts
		WHERE tenant_id = $1 AND company_id = $2 AND status = 'active'`, id, companyID).Scan(&activeContracts)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if activeContracts > 0 {
		http.Error(w, "tenant has an active contract", http.StatusConflict)
		return
	}

	res, err := q.ExecContext(r.Context(), `DELETE FROM tenants WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "tenant", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
