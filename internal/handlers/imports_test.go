package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentfleet-api/internal/auth"

	"github.com/stretchr/testify/assert"
)

func TestImportsHandler_UploadExcel(t *testing.T) {
	// Create a mock handler (without real database for unit tests)
	handler := &ImportsHandler{
		DB:         nil, // Will be nil for unit tests
		MaxBytes:   20 << 20,
		DefaultMap: "configs/mapping/vehicles.yaml",
	}

	withClaims := func(req *http.Request) *http.Request {
		return req.WithContext(context.WithValue(req.Context(), auth.ClaimsKey, &auth.Claims{
			UserID:    1,
			CompanyID: 2,
			Roles:     []string{"company_admin"},
		}))
	}

	t.Run("Rejects non-multipart content type", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/imports/excel", nil)
		req.Header.Set("Content-Type", "application/json")
		req = withClaims(req)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "content-type must be multipart/form-data")
	})

	t.Run("Rejects missing file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.Close()

		req := httptest.NewRequest("POST", "/imports/excel", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req = withClaims(req)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("Rejects non-xlsx file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		// Create a fake file with .xls extension
		fileWriter, _ := writer.CreateFormFile("file", "fleet.xls")
		fileWriter.Write([]byte("fake excel content"))
		writer.Close()

		req := httptest.NewRequest("POST", "/imports/excel", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req = withClaims(req)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "only .xlsx files are accepted")
	})

	t.Run("Rejects unauthenticated request", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		fileWriter, _ := writer.CreateFormFile("file", "fleet.xlsx")
		fileWriter.Write([]byte("fake excel content"))
		writer.Close()

		req := httptest.NewRequest("POST", "/imports/excel", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		// No claims in context

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Accepts valid xlsx file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("dry_run", "true")

		// Create a fake file with .xlsx extension
		fileWriter, _ := writer.CreateFormFile("file", "fleet.xlsx")
		fileWriter.Write([]byte("fake excel content"))
		writer.Close()

		req := httptest.NewRequest("POST", "/imports/excel", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req = withClaims(req)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		// Should fail on the file contents, but not on request validation
		assert.NotEqual(t, http.StatusBadRequest, w.Code)
		assert.NotEqual(t, http.StatusUnauthorized, w.Code)
	})
}

func TestNewImportsHandler(t *testing.T) {
	handler := NewImportsHandler(nil)

	assert.Equal(t, int64(20<<20), handler.MaxBytes)
	assert.Equal(t, "configs/mapping/vehicles.yaml", handler.DefaultMap)
}
