//go:build integration

package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentfleet-api/internal/models"
	"rentfleet-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadDocument(t *testing.T, token, ownerType string, ownerID int64, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("owner_type", ownerType))
	require.NoError(t, writer.WriteField("owner_id", fmt.Sprintf("%d", ownerID)))
	fileWriter, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fileWriter, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	return w
}

func TestDocumentsIntegration(t *testing.T) {
	testutil.RequireIntegration(t)

	token := makeToken(t, acmeAdminID, acmeCompanyID, "company_admin")

	var vehicleID int64
	require.NoError(t, testDB.QueryRow(
		`SELECT id FROM vehicles WHERE company_id = $1 AND plate = 'ABC1234'`,
		acmeCompanyID).Scan(&vehicleID))

	var doc models.Document
	t.Run("Upload", func(t *testing.T) {
		w := uploadDocument(t, token, "vehicle", vehicleID, "registration.pdf", "pdf bytes here")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

		assert.Equal(t, "vehicle", doc.OwnerType)
		assert.Equal(t, vehicleID, doc.OwnerID)
		assert.Equal(t, "registration.pdf", doc.Name)
		assert.Equal(t, int64(len("pdf bytes here")), doc.SizeBytes)
	})

	t.Run("RejectsUnknownOwnerType", func(t *testing.T) {
		w := uploadDocument(t, token, "contract", vehicleID, "x.pdf", "data")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RejectsMissingOwner", func(t *testing.T) {
		w := uploadDocument(t, token, "vehicle", 999999, "x.pdf", "data")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Download", func(t *testing.T) {
		w := doJSON(t, "GET", urlf("/documents/%d/download", doc.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Disposition"), "registration.pdf")
		assert.Equal(t, "pdf bytes here", w.Body.String())
	})

	t.Run("ListByOwner", func(t *testing.T) {
		w := doJSON(t, "GET", urlf("/documents?owner_type=vehicle&owner_id=%d", vehicleID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data []models.Document `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Data)
		assert.Equal(t, doc.ID, resp.Data[0].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		w := doJSON(t, "DELETE", urlf("/documents/%d", doc.ID), token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		dw := doJSON(t, "GET", urlf("/documents/%d/download", doc.ID), token, nil)
		assert.Equal(t, http.StatusNotFound, dw.Code)
	})
}
