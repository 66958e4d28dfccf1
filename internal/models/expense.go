package models

import "time"

type Expense struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	VehicleID   *int64    `json:"vehicle_id,omitempty"`
	SupplierID  *int64    `json:"supplier_id,omitempty"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	IncurredOn  time.Time `json:"incurred_on"`
	DocumentID  *int64    `json:"document_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
