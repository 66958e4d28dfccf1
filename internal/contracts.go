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

const contractColumns = `id, company_id, vehicle_id, tenant_id, start_date, end_date,
	       daily_rate_cents, deposit_cents, status, mileage_out_km, mileage_in_km,
	       notes, created_at, updated_at`

func scanContract(row interface{ Scan(...any) error }, c *models.Contract, extra ...any) error {
	dest := []any{
		&c.ID, &c.CompanyID, &c.VehicleID, &c.TenantID, &c.StartDate, &c.EndDate,
		&c.DailyRateCents, &c.DepositCents, &c.Status, &c.MileageOutKM, &c.MileageInKM,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
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
		FROM contracts WHERE %s`, contractColumns, strings.Join(clauses, " AND "))

	allowedSort := map[string]string{
		"id":         "id",
		"start_date": "start_date",
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

	contracts := []interface{}{}
	var totalCount int
	for rows.Next() {
		var c models.Contract
		if err := scanContract(rows, &c, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		contracts = append(contracts, c)
	}

	sendListResponse(w, contracts, totalCount, params)
}

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var c models.Contract
	q := dbFrom(r.Context(), s.DB)
	err := scanContract(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM contracts WHERE id = $1 AND company_id = $2`, contractColumns), id, companyID), &c)
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

// createContract creates a draft contract. The vehicle is only committed
// on activation, so drafts never block the fleet.
func (s *Server) createContract(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.VehicleID <= 0 || req.TenantID <= 0 {
		http.Error(w, "vehicle_id and tenant_id are required", 400)
		return
	}
	if req.StartDate.IsZero() {
		http.Error(w, "start_date is required", 400)
		return
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		http.Error(w, "end_date cannot be before start_date", 400)
		return
	}
	if req.DepositCents < 0 {
		http.Error(w, "deposit_cents cannot be negative", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	// Default the rate from the vehicle, and make sure both ends exist
	// in this company.
	var vehicleRate int64
	err := q.QueryRowContext(r.Context(),
		`SELECT daily_rate_cents FROM vehicles WHERE id = $1 AND company_id = $2`,
		req.VehicleID, companyID).Scan(&vehicleRate)
	if err == sql.ErrNoRows {
		http.Error(w, "vehicle not found", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	var tenantExists bool
	err = q.QueryRowContext(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1 AND company_id = $2 AND is_active = true)`,
		req.TenantID, companyID).Scan(&tenantExists)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if !tenantExists {
		http.Error(w, "tenant not found or inactive", http.StatusUnprocessableEntity)
		return
	}

	rate := vehicleRate
	if req.DailyRateCents != nil && *req.DailyRateCents > 0 {
		rate = *req.DailyRateCents
	}

	c := models.Contract{
		CompanyID:      companyID,
		VehicleID:      req.VehicleID,
		TenantID:       req.TenantID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		DailyRateCents: rate,
		DepositCents:   req.DepositCents,
		Status:         models.ContractDraft,
		MileageOutKM:   req.MileageOutKM,
		Notes:          req.Notes,
	}

	err = q.QueryRowContext(r.Context(), `
		INSERT INTO contracts (company_id, vehicle_id, tenant_id, start_date, end_date, daily_rate_cents, deposit_cents, status, mileage_out_km, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at
	`, c.CompanyID, c.VehicleID, c.TenantID, c.StartDate, c.EndDate, c.DailyRateCents,
		c.DepositCents, c.Status, c.MileageOutKM, nullIfEmpty(c.Notes)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "contract", c.ID, "create", models.JSONB{"vehicle_id": c.VehicleID, "tenant_id": c.TenantID})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (s *Server) updateContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var req models.UpdateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 4)
	if req.EndDate != nil {
		sets = append(sets, set{"end_date = $%d", *req.EndDate})
	}
	if req.DailyRateCents != nil {
		if *req.DailyRateCents <= 0 {
			http.Error(w, "daily_rate_cents must be positive", 400)
			return
		}
		sets = append(sets, set{"daily_rate_cents = $%d", *req.DailyRateCents})
	}
	if req.DepositCents != nil {
		if *req.DepositCents < 0 {
			http.Error(w, "deposit_cents cannot be negative", 400)
			return
		}
		sets = append(sets, set{"deposit_cents = $%d", *req.DepositCents})
	}
	if req.Notes != nil {
		sets = append(sets, set{"notes = $%d", nullIfEmpty(req.Notes)})
	}
	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+2)
	sqlStr := "UPDATE contracts SET "
	for i, sset := range sets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += fmt.Sprintf(sset.sql, i+1)
		args = append(args, sset.val)
	}
	sqlStr += ", updated_at = now()"
	// Closed and canceled contracts are immutable
	sqlStr += fmt.Sprintf(" WHERE id = $%d AND company_id = $%d AND status IN ('draft','active') RETURNING %s",
		len(args)+1, len(args)+2, contractColumns)
	args = append(args, id, companyID)

	q := dbFrom(r.Context(), s.DB)
	var out models.Contract
	if err := scanContract(q.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "not found or not editable", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "contract", out.ID, "update", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// activateContract flips a draft contract to active and the vehicle to
// rented, in one transaction. Fails if the vehicle is not available or
// already carries an active contract.
func (s *Server) activateContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var c models.Contract
	err = scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM contracts WHERE id = $1 AND company_id = $2 FOR UPDATE`, contractColumns), id, companyID), &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if c.Status != models.ContractDraft {
		http.Error(w, "only draft contracts can be activated", http.StatusConflict)
		return
	}

	var vehicleStatus string
	var odometer sql.NullInt64
	err = tx.QueryRowContext(r.Context(),
		`SELECT status, odometer_km FROM vehicles WHERE id = $1 AND company_id = $2 FOR UPDATE`,
		c.VehicleID, companyID).Scan(&vehicleStatus, &odometer)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if vehicleStatus != models.VehicleAvailable {
		http.Error(w, "vehicle is not available", http.StatusConflict)
		return
	}

	var overlapping int
	err = tx.QueryRowContext(r.Context(), `
		SELECT COUNT(*) FROM contracts
		WHERE vehicle_id = $1 AND company_id = $2 AND status = 'active' AND id != $3`,
		c.VehicleID, companyID, c.ID).Scan(&overlapping)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if overlapping > 0 {
		http.Error(w, "vehicle already has an active contract", http.StatusConflict)
		return
	}

	// Record the odometer at handover unless the draft already did
	mileageOut := c.MileageOutKM
	if mileageOut == nil && odometer.Valid {
		mileageOut = &odometer.Int64
	}

	err = scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		UPDATE contracts SET status = 'active', mileage_out_km = $1, updated_at = now()
		WHERE id = $2 AND company_id = $3
		RETURNING %s`, contractColumns), mileageOut, c.ID, companyID), &c)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	_, err = tx.ExecContext(r.Context(),
		`UPDATE vehicles SET status = 'rented', updated_at = now() WHERE id = $1 AND company_id = $2`,
		c.VehicleID, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "contract", c.ID, "activate", models.JSONB{"vehicle_id": c.VehicleID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// closeContract records the handback and releases the vehicle
func (s *Server) closeContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var req models.CloseContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var c models.Contract
	err = scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM contracts WHERE id = $1 AND company_id = $2 FOR UPDATE`, contractColumns), id, companyID), &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if c.Status != models.ContractActive {
		http.Error(w, "only active contracts can be closed", http.StatusConflict)
		return
	}

	if req.MileageInKM != nil && c.MileageOutKM != nil && *req.MileageInKM < *c.MileageOutKM {
		http.Error(w, "mileage_in_km cannot be lower than mileage at handover", 400)
		return
	}

	endDate := time.Now()
	if req.EndDate != nil {
		endDate = *req.EndDate
	}

	notes := c.Notes
	if req.Notes != nil {
		notes = req.Notes
	}

	err = scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		UPDATE contracts SET status = 'closed', end_date = $1, mileage_in_km = $2, notes = $3, updated_at = now()
		WHERE id = $4 AND company_id = $5
		RETURNING %s`, contractColumns), endDate, req.MileageInKM, nullIfEmpty(notes), c.ID, companyID), &c)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	// Release the vehicle and roll its odometer forward
	if req.MileageInKM != nil {
		_, err = tx.ExecContext(r.Context(), `
			UPDATE vehicles SET status = 'available', odometer_km = GREATEST(COALESCE(odometer_km, 0), $1), updated_at = now()
			WHERE id = $2 AND company_id = $3`, *req.MileageInKM, c.VehicleID, companyID)
	} else {
		_, err = tx.ExecContext(r.Context(), `
			UPDATE vehicles SET status = 'available', updated_at = now()
			WHERE id = $1 AND company_id = $2`, c.VehicleID, companyID)
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "contract", c.ID, "close", models.JSONB{"vehicle_id": c.VehicleID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// cancelContract voids a draft or active contract without a handback
func (s *Server) cancelContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	var c models.Contract
	err = scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM contracts WHERE id = $1 AND company_id = $2 FOR UPDATE`, contractColumns), id, companyID), &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if c.Status != models.ContractDraft && c.Status != models.ContractActive {
		http.Error(w, "contract is already finished", http.StatusConflict)
		return
	}

	wasActive := c.Status == models.ContractActive

	err = scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
		UPDATE contracts SET status = 'canceled', updated_at = now()
		WHERE id = $1 AND company_id = $2
		RETURNING %s`, contractColumns), c.ID, companyID), &c)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if wasActive {
		_, err = tx.ExecContext(r.Context(),
			`UPDATE vehicles SET status = 'available', updated_at = now() WHERE id = $1 AND company_id = $2`,
			c.VehicleID, companyID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "contract", c.ID, "cancel", nil)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (s *Server) deleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	// Only drafts can be deleted outright; everything else stays for the books
	res, err := q.ExecContext(r.Context(),
		`DELETE FROM contracts WHERE id = $1 AND company_id = $2 AND status = 'draft'`, id, companyID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found or not a draft", http.StatusNotFound)
		return
	}

	s.writeAudit(r.Context(), "contract", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
