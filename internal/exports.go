package internal

import (
	"fmt"
	"net/http"
	"time"

	"rentfleet-api/internal/auth"
	"rentfleet-api/internal/models"

	"github.com/tealeg/xlsx/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportExpenses streams the company's expenses as an .xlsx workbook.
// Honors the same from/to and category filters as the list endpoint.
func (s *Server) exportExpenses(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyIDFromContext(r.Context())

	sqlStr := fmt.Sprintf(`
		SELECT %s FROM expenses WHERE company_id = $1`, expenseColumns)
	args := []interface{}{companyID}
	arg := 2

	if v := r.URL.Query().Get("category"); v != "" {
		sqlStr += fmt.Sprintf(" AND category = $%d", arg)
		args = append(args, v)
		arg++
	}
	if v := r.URL.Query().Get("from"); v != "" {
		sqlStr += fmt.Sprintf(" AND incurred_on >= $%d", arg)
		args = append(args, v)
		arg++
	}
	if v := r.URL.Query().Get("to"); v != "" {
		sqlStr += fmt.Sprintf(" AND incurred_on <= $%d", arg)
		args = append(args, v)
		arg++
	}
	sqlStr += " ORDER BY incurred_on ASC"

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Expenses")
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Category", "Description", "Amount", "Incurred On", "Vehicle ID", "Supplier ID"} {
		header.AddCell().SetString(h)
	}

	for rows.Next() {
		var e models.Expense
		if err := scanExpense(rows, &e); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		row := sheet.AddRow()
		row.AddCell().SetInt64(e.ID)
		row.AddCell().SetString(e.Category)
		if e.Description != nil {
			row.AddCell().SetString(*e.Description)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(float64(e.AmountCents) / 100)
		row.AddCell().SetString(e.IncurredOn.Format("2006-01-02"))
		if e.VehicleID != nil {
			row.AddCell().SetInt64(*e.VehicleID)
		} else {
			row.AddCell().SetString("")
		}
		if e.SupplierID != nil {
			row.AddCell().SetInt64(*e.SupplierID)
		} else {
			row.AddCell().SetString("")
		}
	}
	if err := rows.Err(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "expenses-"+time.Now().Format("2006-01-02")+".xlsx"))
	if err := file.Write(w); err != nil {
		http.Error(w, err.Error(), 500)
	}
}

// exportFines streams the company's fines as an .xlsx workbook.
func (s *Server) exportFines(w http.ResponseWriter, r *http.Request) {
	companyID := auth.CompanyIDFromContext(r.Context())

	sqlStr := fmt.Sprintf(`
		SELECT %s FROM fines WHERE company_id = $1`, fineColumns)
	args := []interface{}{companyID}

	if v := r.URL.Query().Get("status"); v != "" {
		sqlStr += " AND status = $2"
		args = append(args, v)
	}
	sqlStr += " ORDER BY issued_at ASC"

	q := dbFrom(r.Context(), s.DB)
	rows, err := q.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Fines")
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Vehicle ID", "Tenant ID", "Issued At", "Infraction", "Amount", "Due Date", "Points", "Status"} {
		header.AddCell().SetString(h)
	}

	for rows.Next() {
		var f models.Fine
		if err := scanFine(rows, &f); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		row := sheet.AddRow()
		row.AddCell().SetInt64(f.ID)
		row.AddCell().SetInt64(f.VehicleID)
		if f.TenantID != nil {
			row.AddCell().SetInt64(*f.TenantID)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(f.IssuedAt.Format("2006-01-02 15:04"))
		if f.InfractionCode != nil {
			row.AddCell().SetString(*f.InfractionCode)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(float64(f.AmountCents) / 100)
		if f.DueDate != nil {
			row.AddCell().SetString(f.DueDate.Format("2006-01-02"))
		} else {
			row.AddCell().SetString("")
		}
		if f.Points != nil {
			row.AddCell().SetInt(*f.Points)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(f.Status)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "fines-"+time.Now().Format("2006-01-02")+".xlsx"))
	if err := file.Write(w); err != nil {
		http.Error(w, err.Error(), 500)
	}
}
