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

const vehicleColumns = `id, company_id, plate, make, model, year, color, category,
	       odometer_km, daily_rate_cents, status, notes, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }, v *models.Vehicle, extra ...any) error {
	dest := []any{
		&v.ID, &v.CompanyID, &v.Plate, &v.Make, &v.Model, &v.Year, &v.Color,
		&v.Category, &v.OdometerKM, &v.DailyRateCents, &v.Status, &v.Notes,
		&v.CreatedAt, &v.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// LIST with basic filters & pagination
func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	companyID := auth.CompanyIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	// company filter - always from the JWT context
	clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
	args = append(args, companyID)
	arg++

	// optional text search on plate/make/model
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(plate ILIKE $%d OR make ILIKE $%d OR model ILIKE $%d)", arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	if params.status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, params.status)
		arg++
	}

	whereClause := " WHERE " + strings.Join(clauses, " AND ")

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM vehicles%s`, vehicleColumns, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
		"plate":      "plate",
		"make":       "make",
		"status":     "status",
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

	vehicles := []interface{}{}
	var totalCount int
	for rows.Next() {
		var v models.Vehicle
		if err := scanVehicle(rows, &v, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		vehicles = append(vehicles, v)
	}

	sendListResponse(w, vehicles, totalCount, params)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var v models.Vehicle
	q := dbFrom(r.Context(), s.DB)
	err := scanVehicle(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM vehicles WHERE id = $1 AND company_id = $2`, vehicleColumns), id, companyID), &v)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	var in models.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if strings.TrimSpace(in.Plate) == "" || strings.TrimSpace(in.Make) == "" || strings.TrimSpace(in.Model) == "" {
		http.Error(w, "plate, make and model are required", 400)
		return
	}
	if in.Status == "" {
		in.Status = models.VehicleAvailable
	}
	if !models.IsValidVehicleStatus(in.Status) {
		http.Error(w, "invalid status", 400)
		return
	}
	if in.DailyRateCents < 0 {
		http.Error(w, "daily_rate_cents cannot be negative", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	err := q.QueryRowContext(r.Context(), `
		INSERT INTO vehicles (company_id, plate, make, model, year, color, category, odometer_km, daily_rate_cents, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`, companyID, strings.ToUpper(strings.TrimSpace(in.Plate)), in.Make, in.Model, in.Year,
		nullIfEmpty(in.Color), nullIfEmpty(in.Category), in.OdometerKM, in.DailyRateCents,
		in.Status, nullIfEmpty(in.Notes)).
		Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "plate already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	in.CompanyID = companyID
	in.Plate = strings.ToUpper(strings.TrimSpace(in.Plate))

	s.writeAudit(r.Context(), "vehicle", in.ID, "create", models.JSONB{"plate": in.Plate})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var in models.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if in.Status != "" && !models.IsValidVehicleStatus(in.Status) {
		http.Error(w, "invalid status", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 10)
	if strings.TrimSpace(in.Plate) != "" {
		sets = append(sets, set{"plate = $%d", strings.ToUpper(strings.TrimSpace(in.Plate))})
	}
	if strings.TrimSpace(in.Make) != "" {
		sets = append(sets, set{"make = $%d", in.Make})
	}
	if strings.TrimSpace(in.Model) != "" {
		sets = append(sets, set{"model = $%d", in.Model})
	}
	if in.Year != nil {
		sets = append(sets, set{"year = $%d", *in.Year})
	}
	if in.Color != nil {
		sets = append(sets, set{"color = $%d", nullIfEmpty(in.Color)})
	}
	if in.Category != nil {
		sets = append(sets, set{"category = $%d", nullIfEmpty(in.Category)})
	}
	if in.OdometerKM != nil {
		sets = append(sets, set{"odometer_km = $%d", *in.OdometerKM})
	}
	if in.DailyRateCents > 0 {
		sets = append(sets, set{"daily_rate_cents = $%d", in.DailyRateCents})
	}
	if in.Status != "" {
		sets = append(sets, set{"status = $%d", in.Status})
	}
	if in.Notes != nil {
		sets = append(sets, set{"notes = $%d", nullIfEmpty(in.Notes)})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE vehicles SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d RETURNING %s", len(args)+1, len(args)+2, vehicleColumns)
	args = append(args, id, companyID)

	q := dbFrom(r.Context(), s.DB)
	var out models.Vehicle
	if err := scanVehicle(q.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "plate already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "vehicle", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)

	// Refuse while a contract is still active
	var activeContracts int
	err := q.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FROM contracts
		WHERE vehicle_id = $1 AND company_id = $2 AND status = 'active'`, id, companyID).Scan(&activeContracts)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if activeContracts > 0 {
		http.Error(w, "vehicle has an active contract", http.StatusConflict)
		return
	}

	res, err := q.ExecContext(r.Context(), `DELETE FROM vehicles WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "vehicle", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
