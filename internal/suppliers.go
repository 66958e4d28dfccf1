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

func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	companyID := auth.CompanyIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
	args = append(args, companyID)
	arg++

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := `
		SELECT id, company_id, name, tax_id, email, phone, category, notes, created_at, updated_at
		FROM suppliers WHERE ` + strings.Join(clauses, " AND ")

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
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

	suppliers := []models.Supplier{}
	for rows.Next() {
		var sp models.Supplier
		if err := rows.Scan(&sp.ID, &sp.CompanyID, &sp.Name, &sp.TaxID, &sp.Email, &sp.Phone, &sp.Category, &sp.Notes, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		suppliers = append(suppliers, sp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suppliers)
}

func (s *Server) getSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var sp models.Supplier
	q := dbFrom(r.Context(), s.DB)
	err := q.QueryRowContext(r.Context(), `
		SELECT id, company_id, name, tax_id, email, phone, category, notes, created_at, updated_at
		FROM suppliers WHERE id = $1 AND company_id = $2`, id, companyID).
		Scan(&sp.ID, &sp.CompanyID, &sp.Name, &sp.TaxID, &sp.Email, &sp.Phone, &sp.Category, &sp.Notes, &sp.CreatedAt, &sp.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sp)
}

func (s *Server) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		http.Error(w, "name is required", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	err := q.QueryRowContext(r.Context(), `
		INSERT INTO suppliers (company_id, name, tax_id, email, phone, category, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at
	`, companyID, in.Name, nullIfEmpty(in.TaxID), nullIfEmpty(in.Email), nullIfEmpty(in.Phone),
		nullIfEmpty(in.Category), nullIfEmpty(in.Notes)).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	in.CompanyID = companyID

	s.writeAudit(r.Context(), "supplier", in.ID, "create", nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

func (s *Server) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var in models.Supplier
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 6)
	if strings.TrimSpace(in.Name) != "" {
		sets = append(sets, set{"name = $%d", in.Name})
	}
	if in.TaxID != nil {
		sets = append(sets, set{"tax_id = $%d", nullIfEmpty(in.TaxID)})
	}
	if in.Email != nil {
		sets = append(sets, set{"email = $%d", nullIfEmpty(in.Email)})
	}
	if in.Phone != nil {
		sets = append(sets, set{"phone = $%d", nullIfEmpty(in.Phone)})
	}
	if in.Category != nil {
		sets = append(sets, set{"category = $%d", nullIfEmpty(in.Category)})
	}
	if in.Notes != nil {
		sets = append(sets, set{"notes = $%d", nullIfEmpty(in.Notes)})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE suppliers SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d RETURNING id, company_id, name, tax_id, email, phone, category, notes, created_at, updated_at", len(args)+1, len(args)+2)
	args = append(args, id, companyID)

	q := dbFrom(r.Context(), s.DB)
	var out models.Supplier
	if err := q.QueryRowContext(r.Context(), sqlStr, args...).
		Scan(&out.ID, &out.CompanyID, &out.Name, &out.TaxID, &out.Email, &out.Phone, &out.Category, &out.Notes, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "supplier", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	res, err := q.ExecContext(r.Context(), `DELETE FROM suppliers WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "supplier", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
