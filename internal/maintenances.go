package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const maintenanceColumns = `id, company_id, vehicle_id, supplier_id, service_type, description,
	       scheduled_at, completed_at, odometer_km, cost_cents, status, notes, created_at, updated_at`

func scanMaintenance(row interface{ Scan(...any) error }, m *models.Maintenance, extra ...any) error {
	dest := []any{
		&m.ID, &m.CompanyID, &m.VehicleID, &m.SupplierID, &m.ServiceType, &m.Description,
		&m.ScheduledAt, &m.CompletedAt, &m.OdometerKM, &m.CostCents, &m.Status, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (s *Server) listMaintenances(w http.ResponseWriter, r *http.Request) {
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

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM maintenances WHERE %s`, maintenanceColumns, strings.Join(clauses, " AND "))

	allowedSort := map[string]string{
		"id":           "id",
		"scheduled_at": "scheduled_at",
		"status":       "status",
		"created_at":   "created_at",
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

	maintenances := []interface{}{}
	var totalCount int
	for rows.Next() {
		var m models.Maintenance
		if err := scanMaintenance(rows, &m, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		maintenances = append(maintenances, m)
	}

	sendListResponse(w, maintenances, totalCount, params)
}

func (s *Server) getMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var m models.Maintenance
	q := dbFrom(r.Context(), s.DB)
	err := scanMaintenance(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM maintenances WHERE id = $1 AND company_id = $2`, maintenanceColumns), id, companyID), &m)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func (s *Server) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var in models.Maintenance
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if in.VehicleID <= 0 || strings.TrimSpace(in.ServiceType) == "" {
		http.Error(w, "vehicle_id and service_type are required", 400)
		return
	}
	if in.Status == "" {
		in.Status = models.MaintenanceScheduled
	}
	if !models.IsValidMaintenanceStatus(in.Status) {
		http.Error(w, "invalid status", 400)
		return
	}
	if in.CostCents < 0 {
		http.Error(w, "cost_cents cannot be negative", 400)
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

	err = q.QueryRowContext(r.Context(), `
		INSERT INTO maintenances (company_id, vehicle_id, supplier_id, service_type, description, scheduled_at, odometer_km, cost_cents, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at
	`, companyID, in.VehicleID, in.SupplierID, in.ServiceType, nullIfEmpty(in.Description),
		in.ScheduledAt, in.OdometerKM, in.CostCents, in.Status, nullIfEmpty(in.Notes)).
		Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	in.CompanyID = companyID

	s.writeAudit(r.Context(), "maintenance", in.ID, "create", models.JSONB{"vehicle_id": in.VehicleID})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(in)
}

// updateMaintenance updates fields and drives the status transitions.
// Moving to in_progress sends an available vehicle to the shop; moving
// to completed or canceled releases it again.
func (s *Server) updateMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var in models.Maintenance
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if in.Status != "" && !models.IsValidMaintenanceStatus(in.Status) {
		http.Error(w, "invalid status", 400)
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var current models.Maintenance
	err = scanMaintenance(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM maintenances WHERE id = $1 AND company_id = $2 FOR UPDATE`, maintenanceColumns), id, companyID), &current)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if current.Status == models.MaintenanceCompleted || current.Status == models.MaintenanceCanceled {
		http.Error(w, "maintenance is already finished", http.StatusConflict)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 8)
	if strings.TrimSpace(in.ServiceType) != "" {
		sets = append(sets, set{"service_type = $%d", in.ServiceType})
	}
	if in.Description != nil {
		sets = append(sets, set{"description = $%d", nullIfEmpty(in.Description)})
	}
	if in.ScheduledAt != nil {
		sets = append(sets, set{"scheduled_at = $%d", *in.ScheduledAt})
	}
	if in.SupplierID != nil {
		sets = append(sets, set{"supplier_id = $%d", *in.SupplierID})
	}
	if in.OdometerKM != nil {
		sets = append(sets, set{"odometer_km = $%d", *in.OdometerKM})
	}
	if in.CostCents > 0 {
		sets = append(sets, set{"cost_cents = $%d", in.CostCents})
	}
	if in.Notes != nil {
		sets = append(sets, set{"notes = $%d", nullIfEmpty(in.Notes)})
	}
	if in.Status != "" && in.Status != current.Status {
		sets = append(sets, set{"status = $%d", in.Status})
		if in.Status == models.MaintenanceCompleted {
			sets = append(sets, set{"completed_at = $%d", time.Now()})
		}
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE maintenances SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d RETURNING %s", len(args)+1, len(args)+2, maintenanceColumns)
	args = append(args, id, companyID)

	var out models.Maintenance
	if err := scanMaintenance(tx.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	// Vehicle status follows the maintenance lifecycle. A rented vehicle
	// is left alone: the contract owns its status.
	if out.Status != current.Status {
		switch out.Status {
		case models.MaintenanceInProgress:
			_, err = tx.ExecContext(r.Context(), `
				UPDATE vehicles SET status = 'maintenance', updated_at = now()
				WHERE id = $1 AND company_id = $2 AND status = 'available'`, out.VehicleID, companyID)
		case models.MaintenanceCompleted, models.MaintenanceCanceled:
			_, err = tx.ExecContext(r.Context(), `
				UPDATE vehicles SET status = 'available', updated_at = now()
				WHERE id = $1 AND company_id = $2 AND status = 'maintenance'`, out.VehicleID, companyID)
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "maintenance", out.ID, "update", models.JSONB{"status": out.Status})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) deleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	res, err := q.ExecContext(r.Context(), `DELETE FROM maintenances WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "maintenance", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
