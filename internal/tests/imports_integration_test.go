//go:build integration

package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"rentfleet-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

// buildWorkbook produces an in-memory .xlsx with a Vehicles sheet
func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Vehicles")
	require.NoError(t, err)

	for _, cells := range rows {
		row := sheet.AddRow()
		for _, cell := range cells {
			row.AddCell().SetString(cell)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

// mappingPath resolves configs/mapping/vehicles.yaml from the repo root,
// since tests do not run with the repository as working directory.
func mappingPath(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "configs", "mapping", "vehicles.yaml")
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found above test directory")
		dir = parent
	}
}

func uploadWorkbook(t *testing.T, token string, workbook []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	fileWriter, err := writer.CreateFormFile("file", "fleet.xlsx")
	require.NoError(t, err)
	_, err = fileWriter.Write(workbook)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/imports/excel", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	return w
}

func TestImportsIntegration(t *testing.T) {
	testutil.RequireIntegration(t)

	token := makeToken(t, acmeAdminID, acmeCompanyID, "company_admin")
	mapping := mappingPath(t)

	workbook := buildWorkbook(t, [][]string{
		{"License Plate", "Make", "Model", "Year", "Daily Rate", "Odometer KM"},
		{"imp1a11", "Toyota", "Yaris", "2022", "105.00", "30000"},
		{"imp2b22", "Hyundai", "HB20", "2023", "98.50", "12000"},
		{"", "Missing", "Plate", "", "", ""},
	})

	t.Run("DryRunReportsWithoutWriting", func(t *testing.T) {
		w := uploadWorkbook(t, token, workbook, map[string]string{
			"dry_run": "true",
			"mapping": mapping,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data struct {
				Inserted int  `json:"inserted"`
				Errors   int  `json:"errors"`
				DryRun   bool `json:"dry_run"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.DryRun)
		assert.Equal(t, 2, resp.Data.Inserted)
		assert.Equal(t, 1, resp.Data.Errors, "the row without a plate is an error")

		var count int
		require.NoError(t, testDB.QueryRow(
			`SELECT COUNT(*) FROM vehicles WHERE company_id = $1 AND plate LIKE 'IMP%'`,
			acmeCompanyID).Scan(&count))
		assert.Equal(t, 0, count, "dry runs must not persist anything")
	})

	t.Run("RealRunUpserts", func(t *testing.T) {
		w := uploadWorkbook(t, token, workbook, map[string]string{
			"mapping": mapping,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data struct {
				Inserted int `json:"inserted"`
				Updated  int `json:"updated"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.Inserted)

		var rate int64
		require.NoError(t, testDB.QueryRow(
			`SELECT daily_rate_cents FROM vehicles WHERE company_id = $1 AND plate = 'IMP1A11'`,
			acmeCompanyID).Scan(&rate))
		assert.Equal(t, int64(10500), rate, "money cells are stored as cents")

		// A second run with the same file updates instead of inserting
		again := uploadWorkbook(t, token, workbook, map[string]string{
			"mapping": mapping,
		})
		require.Equal(t, http.StatusOK, again.Code, again.Body.String())
		require.NoError(t, json.Unmarshal(again.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Data.Inserted)
		assert.Equal(t, 2, resp.Data.Updated)
	})

	t.Run("GarbageFileFailsCleanly", func(t *testing.T) {
		w := uploadWorkbook(t, token, []byte("not a workbook"), map[string]string{
			"mapping": mapping,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "IMPORT_FAILED")
	})
}

func TestExportsIntegration(t *testing.T) {
	testutil.RequireIntegration(t)

	token := makeToken(t, acmeAdminID, acmeCompanyID, "company_admin")

	w := doJSON(t, "GET", "/exports/expenses.xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	// The payload must be a readable workbook
	file, err := xlsx.OpenBinary(w.Body.Bytes())
	require.NoError(t, err)
	require.NotEmpty(t, file.Sheets)
}
