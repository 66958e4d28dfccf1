package models

import "time"

// Tenant is a renter profile associated with a company (not a tenant
// company in the multi-tenancy sense).
type Tenant struct {
	ID               int64      `json:"id"`
	CompanyID        int64      `json:"company_id"`
	FullName         string     `json:"full_name"`
	DocumentNumber   string     `json:"document_number"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	LicenseNumber    *string    `json:"license_number,omitempty"`
	LicenseExpiresAt *time.Time `json:"license_expires_at,omitempty"`
	Address          *string    `json:"address,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
