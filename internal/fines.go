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

const fineColumns = `id, company_id, vehicle_id, contract_id, tenant_id, issued_at, infraction_code,
	       description, amount_cents, due_date, points, status, created_at, updated_at`

func scanFine(row interface{ Scan(...any) error }, f *models.Fine, extra ...any) error {
	dest := []any{
		&f.ID, &f.CompanyID, &f.VehicleID, &f.ContractID, &f.TenantID, &f.IssuedAt, &f.InfractionCode,
		&f.Description, &f.AmountCents, &f.DueDate, &f.Points, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (s *Server) listFines(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	companyID := auth.CompanyIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
	args = append(args, companyID)
	arg++

	if params.status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, params.status)
		arg++
	}

	if v := strings.TrimSpace(r.URL.Query().Get("vehicle_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("vehicle_id = $%d", arg))
		args = append(args, v)
		arg++
	}

	if v := strings.TrimSpace(r.URL.Query().Get("tenant_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("tenant_id = $%d", arg))
		args = append(args, v)
		arg++
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM fines WHERE %s`, fineColumns, strings.Join(clauses, " AND "))

	allowedSort := map[string]string{
		"id":         "id",
		"issued_at":  "issued_at",
		"due_date":   "due_date",
		"status":     "status",
		"created_at": "created_at",
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

	fines := []interface{}{}
	var totalCount int
	for rows.Next() {
		var f models.Fine
		if err := scanFine(rows, &f, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		fines = append(fines, f)
	}

	sendListResponse(w, fines, totalCount, params)
}

func (s *Server) getFine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var f models.Fine
	q := dbFrom(r.Context(), s.DB)
	err := scanFine(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM fines WHERE id = $1 AND company_id = $2`, fineColumns), id, companyID), &f)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(f)
}

func (s *Server) createFine(w http.ResponseWriter, r *http.Request) {
	var in models.Fine
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if in.VehicleID <= 0 || in.IssuedAt.IsZero() {
		http.Error(w, "vehicle_id and issued_at are required", 400)
		return
	}
	if in.AmountCents < 0 {
		http.Error(w, "amount_cents cannot be negative", 400)
		return
	}
	if in.Status == "" {
		in.Status = models.FinePending
	}
	if !models.IsValidFineStatus(in.Status) {
		http.Error(w, "invalid status", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	var vehicleExists bool
	err := q.QueryRowContext(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1 AND company_id = $2)`,
		in.VehicleID, companyID).Scan(&vehicleExists)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if !vehicleExists {
		http.Error(w, "vehicle not found", http.StatusUnprocessableEntity)
		return
	}

	// Attribute the fine to whoever held the vehicle on the issue date,
	// unless the caller pinned a contract explicitly.
	if in.ContractID != nil {
		err = q.QueryRowContext(r.Context(),
			`SELECT tenant_id FROM contracts WHERE id = $1 AND company_id = $2 AND vehicle_id = $3`,
			*in.ContractID, companyID, in.VehicleID).Scan(&in.TenantID)
		if err == sql.ErrNoRows {
			http.Error(w, "contract does not match vehicle", http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	} else {
		var contractID, tenantID int64
		err = q.QueryRowContext(r.Context(), `
			SELECT id, tenant_id FROM contracts
			WHERE company_id = $1 AND vehicle_id = $2
			  AND status IN ('active', 'closed')
			  AND start_date <= $3 AND (end_date IS NULL OR end_date >= $3)
			ORDER BY start_date DESC LIMIT 1`, companyID, in.VehicleID, in.IssuedAt).
			Scan(&contractID, &tenantID)
		if err == nil {
			in.ContractID = &contractID
			in.TenantID = &tenantID
		} else if err != sql.ErrNoRows {
			http.Error(w, err.Error(), 500)
			return
		}
	}

	err = q.QueryRowContext(r.Context(), `
		INSERT INTO fines (company_id, vehicle_id, contract_id, tenant_id, issued_at, infraction_code, description, amount_cents, due_date, points, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`, companyID, in.VehicleID, in.ContractID, in.TenantID, in.IssuedAt, nullIfEmpty(in.InfractionCode),
		nullIfEmpty(in.Description), in.AmountCents, in.DueDate, in.Points, in.Status).
		Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	in.CompanyID = companyID

	s.writeAudit(r.Context(), "fine", in.ID, "create", models.JSONB{"vehicle_id": in.VehicleID, "amount_cents": in.AmountCents})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

func (s *Server) updateFine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var in models.Fine
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if in.Status != "" && !models.IsValidFineStatus(in.Status) {
		http.Error(w, "invalid status", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 8)
	if in.InfractionCode != nil {
		sets = append(sets, set{"infraction_code = $%d", nullIfEmpty(in.InfractionCode)})
	}
	if in.Description != nil {
		sets = append(sets, set{"description = $%d", nullIfEmpty(in.Description)})
	}
	if in.AmountCents > 0 {
		sets = append(sets, set{"amount_cents = $%d", in.AmountCents})
	}
	if in.DueDate != nil {
		sets = append(sets, set{"due_date = $%d", *in.DueDate})
	}
	if in.Points != nil {
		sets = append(sets, set{"points = $%d", *in.Points})
	}
	if in.TenantID != nil {
		sets = append(sets, set{"tenant_id = $%d", *in.TenantID})
	}
	if in.Status != "" {
		sets = append(sets, set{"status = $%d", in.Status})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE fines SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d RETURNING %s", len(args)+1, len(args)+2, fineColumns)
	args = append(args, id, companyID)

	var out models.Fine
	q := dbFrom(r.Context(), s.DB)
	err := scanFine(q.QueryRowContext(r.Context(), sqlStr, args...), &out)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "fine", out.ID, "update", models.JSONB{"status": out.Status})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) deleteFine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	res, err := q.ExecContext(r.Context(), `DELETE FROM fines WHERE id = $1 AND company_id = $2 AND status = 'pending'`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		if err := q.QueryRowContext(r.Context(),
			`SELECT EXISTS(SELECT 1 FROM fines WHERE id = $1 AND company_id = $2)`, id, companyID).Scan(&exists); err == nil && exists {
			http.Error(w, "only pending fines can be deleted", http.StatusConflict)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "fine", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
