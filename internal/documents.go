package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const documentColumns = `id, company_id, owner_type, owner_id, name, content_type, size_bytes, storage_key, uploaded_by, created_at`

func scanDocument(row interface{ Scan(...any) error }, d *models.Document, extra ...any) error {
	dest := []any{
		&d.ID, &d.CompanyID, &d.OwnerType, &d.OwnerID, &d.Name, &d.ContentType,
		&d.SizeBytes, &d.StorageKey, &d.UploadedBy, &d.CreatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	companyID := auth.CompanyIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("company_id = $%d", arg))
	args = append(args, companyID)
	arg++

	if v := strings.TrimSpace(r.URL.Query().Get("owner_type")); v != "" {
		if !models.IsValidDocumentOwner(v) {
			http.Error(w, "invalid owner_type", 400)
			return
		}
		clauses = append(clauses, fmt.Sprintf("owner_type = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(r.URL.Query().Get("owner_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", arg))
		args = append(args, v)
		arg++
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM documents WHERE %s`, documentColumns, strings.Join(clauses, " AND "))

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
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

	documents := []interface{}{}
	var totalCount int
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		documents = append(documents, d)
	}

	sendListResponse(w, documents, totalCount, params)
}

// uploadDocument accepts a multipart form with a "file" part plus
// owner_type and owner_id fields.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.Config.MaxUploadBytes); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}

	ownerType := r.FormValue("owner_type")
	if !models.IsValidDocumentOwner(ownerType) {
		http.Error(w, "owner_type must be vehicle or tenant", 400)
		return
	}
	ownerID := parseID(r.FormValue("owner_id"))
	if ownerID == 0 {
		http.Error(w, "owner_id is required", 400)
		return
	}

	companyID := auth.CompanyIDFromContext(r.Context())
	q := dbFrom(r.Context(), s.DB)

	ownerTable := "vehicles"
	if ownerType == models.DocumentOwnerTenant {
		ownerTable = "tenants"
	}
	var ownerExists bool
	err := q.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1 AND company_id = $2)`, ownerTable),
		ownerID, companyID).Scan(&ownerExists)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if !ownerExists {
		http.Error(w, ownerType+" not found", http.StatusUnprocessableEntity)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file part is required", 400)
		return
	}
	defer file.Close()

	key, size, err := s.Storage.Save(file, header.Filename)
	if err != nil {
		http.Error(w, "failed to store file", 500)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(header.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := models.Document{
		CompanyID:   companyID,
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Name:        header.Filename,
		ContentType: contentType,
		SizeBytes:   size,
		StorageKey:  key,
		UploadedBy:  auth.UserIDFromContext(r.Context()),
	}
	err = q.QueryRowContext(r.Context(), `
		INSERT INTO documents (company_id, owner_type, owner_id, name, content_type, size_bytes, storage_key, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`, doc.CompanyID, doc.OwnerType, doc.OwnerID, doc.Name, doc.ContentType,
		doc.SizeBytes, doc.StorageKey, doc.UploadedBy).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		// Orphaned file cleanup
		_ = s.Storage.Delete(key)
		http.Error(w, err.Error(), 500)
		return
	}

	s.writeAudit(r.Context(), "document", doc.ID, "create",
		models.JSONB{"owner_type": ownerType, "owner_id": ownerID, "name": doc.Name})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	var d models.Document
	q := dbFrom(r.Context(), s.DB)
	err := scanDocument(q.QueryRowContext(r.Context(), fmt.Sprintf(`
		SELECT %s
		FROM documents WHERE id = $1 AND company_id = $2`, documentColumns), id, companyID), &d)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	f, err := s.Storage.Open(d.StorageKey)
	if err != nil {
		http.Error(w, "stored file is missing", 500)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Name))
	http.ServeContent(w, r, d.Name, d.CreatedAt, f)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := auth.CompanyIDFromContext(r.Context())

	q := dbFrom(r.Context(), s.DB)
	var key string
	err := q.QueryRowContext(r.Context(), `
		DELETE FROM documents WHERE id = $1 AND company_id = $2
		RETURNING storage_key`, id, companyID).Scan(&key)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	// The row is gone either way; a stranded file only wastes disk
	_ = s.Storage.Delete(key)

	s.writeAudit(r.Context(), "document", parseID(id), "delete", nil)

	w.WriteHeader(http.StatusNoContent)
}
