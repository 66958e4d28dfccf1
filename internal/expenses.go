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

const expenseColumns = `id, company_id, vehicle_id, supplier_id, category, description,
	       amount_cents, incurred_on, document_id, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }, e *models.Expense, extra ...any) error {
	dest := []any{
		&e.ID, &e.CompanyID, &e.VehicleID, &e.SupplierID, &e.Category, &e.Description,
		&e.AmountCents, &e.IncurredOn, &e.DocumentID, &e.CreatedAt, &e.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	companyID := auth.CompanyIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
	args = append(args, companyID)
	arg++

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(category ILIKE $%d OR description ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	if v := strings.TrimSpace(r.URL.Query().Get("category")); v != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", arg))
		args = append(args, v)
		arg++
	}

	if v := strings.TrimSpace(r.URL.Query().Get("vehicle_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("vehicle_id = $%d", arg))
		args = append(args, v)
		arg++
	}

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		clauses = append(clauses, fmt.Sprintf("incurred_on >= $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		clauses = append(clauses, fmt.Sprintf("incurred_on <= $%d", arg))
		args = append(args, v)
		arg++
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM expenses WHERE %s`, expenseColumns, strings.Join(clauses, " AND "))

	allowedSort := map[string]string{
		"id":          "id",
		"incurred_on": "incurred_on",
		"category":    "category",
		"created_at":  "created_at",
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

	expenses := []interface{}{}
	var totalCount int
	for rows.Next() {
		var e models.Expense
		if err := scanExpense(rows, &e, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		expenses = append(expenses, e)
	}

	sendListResponse(w, expenses, totalCount, params)
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var e models.Expense
	q := dbFrom(r.Context(), s.DB)
	err := scanExpense(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM expenses WHERE id = $1 AND company_id = $2`, expenseColumns), id, companyID), &e)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(e)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var in models.Expense
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(in.Category) == "" || in.IncurredOn.IsZero() {
		http.Error(w, "category and incurred_on are required", 400)
		return
	}
	if in.AmountCents <= 0 {
		http.Error(w, "amount_cents must be positive", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	if in.VehicleID != nil {
		var exists bool
		err := q.QueryRowContext(r.Context(),
			`SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1 AND company_id = $2)`,
			*in.VehicleID, companyID).Scan(&exists)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if !exists {
			http.Error(w, "vehicle not found", http.StatusUnprocessableEntity)
			return
		}
	}

	err := q.QueryRowContext(r.Context(), `
		INSERT INTO expenses (company_id, vehicle_id, supplier_id, category, description, amount_cents, incurred_on, document_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at
	`, companyID, in.VehicleID, in.SupplierID, in.Category, nullIfEmpty(in.Description),
		in.AmountCents, in.IncurredOn, in.DocumentID).
		Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	in.CompanyID = companyID

	s.writeAudit(r.Context(), "expense", in.ID, "create", models.JSONB{"category": in.Category, "amount_cents": in.AmountCents})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var in models.Expense
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 7)
	if strings.TrimSpace(in.Category) != "" {
		sets = append(sets, set{"category = $%d", in.Category})
	}
	if in.Description != nil {
		sets = append(sets, set{"description = $%d", nullIfEmpty(in.Description)})
	}
	if in.AmountCents > 0 {
		sets = append(sets, set{"amount_cents = $%d", in.AmountCents})
	}
	if !in.IncurredOn.IsZero() {
		sets = append(sets, set{"incurred_on = $%d", in.IncurredOn})
	}
	if in.VehicleID != nil {
		sets = append(sets, set{"vehicle_id = $%d", *in.VehicleID})
	}
	if in.SupplierID != nil {
		sets = append(sets, set{"supplier_id = $%d", *in.SupplierID})
	}
	if in.DocumentID != nil {
		sets = append(sets, set{"document_id = $%d", *in.DocumentID})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE expenses SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d RETURNING %s", len(args)+1, len(args)+2, expenseColumns)
	args = append(args, id, companyID)

	var out models.Expense
	q := dbFrom(r.Context(), s.DB)
	err := scanExpense(q.QueryRowContext(r.Context(), sqlStr, args...), &out)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "expense", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	res, err := q.ExecContext(r.Context(), `DELETE FROM expenses WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "expense", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
