package internal

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"
)

// writeAudit appends a mutation record. Audit failures are logged, never
// surfaced: losing a log line must not fail the mutation that succeeded.
func (s *Server) writeAudit(ctx context.Context, entityType string, entityID int64, action string, detail models.JSONB) {
	companyID := auth.CompanyIDFromContext(ctx)
	actorID := auth.UserIDFromContext(ctx)

	q := dbFrom(ctx, s.DB)
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_logs (company_id, actor_id, entity_type, entity_id, action, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		companyID, actorID, entityType, entityID, action, detail)
	if err != nil {
		log.Printf("audit write failed (%s %s %d): %v", action, entityType, entityID, err)
	}
}

// listAuditLogs lists mutation records for the caller's company.
// Platform admins may pass company_id=0 to see every company.
func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if !(auth.IsPlatformAdmin(r.Context()) && r.URL.Query().Get("company_id") == "0") {
		clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
		args = append(args, auth.CompanyIDFromContext(r.Context()))
		arg++
	}

	if entity := strings.TrimSpace(r.URL.Query().Get("entity_type")); entity != "" {
		clauses = append(clauses, fmt.Sprintf("entity_type = $%d", arg))
		args = append(args, entity)
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT id, company_id, actor_id, entity_type, entity_id, action, detail, created_at,
		       COUNT(*) OVER() as total_count
		FROM audit_logs%s`, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
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

	logs := []interface{}{}
	var totalCount int
	for rows.Next() {
		var al models.AuditLog
		if err := rows.Scan(
			&al.ID, &al.CompanyID, &al.ActorID, &al.EntityType, &al.EntityID,
			&al.Action, &al.Detail, &al.CreatedAt, &totalCount,
		); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		logs = append(logs, al)
	}

	sendListResponse(w, logs, totalCount, params)
}
