package models

import "time"

// Contract status values
const (
	ContractDraft    = "draft"
	ContractActive   = "active"
	ContractClosed   = "closed"
	ContractCanceled = "canceled"
)

// Contract represents a rental agreement binding a vehicle to a tenant
type Contract struct {
	ID             int64      `json:"id"`
	CompanyID      int64      `json:"company_id"`
	VehicleID      int64      `json:"vehicle_id"`
	TenantID       int64      `json:"tenant_id"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	DailyRateCents int64      `json:"daily_rate_cents"`
	DepositCents   int64      `json:"deposit_cents"`
	Status         string     `json:"status"`
	MileageOutKM   *int64     `json:"mileage_out_km,omitempty"`
	MileageInKM    *int64     `json:"mileage_in_km,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateContractRequest represents the request body for creating a contract
type CreateContractRequest struct {
	VehicleID      int64      `json:"vehicle_id" validate:"required"`
	TenantID       int64      `json:"tenant_id" validate:"required"`
	StartDate      time.Time  `json:"start_date" validate:"required"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	DailyRateCents *int64     `json:"daily_rate_cents,omitempty"` // defaults to the vehicle's rate
	DepositCents   int64      `json:"deposit_cents"`
	MileageOutKM   *int64     `json:"mileage_out_km,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// UpdateContractRequest represents the request body for updating a contract
type UpdateContractRequest struct {
	EndDate        *time.Time `json:"end_date,omitempty"`
	DailyRateCents *int64     `json:"daily_rate_cents,omitempty"`
	DepositCents   *int64     `json:"deposit_cents,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// CloseContractRequest records the vehicle handback
type CloseContractRequest struct {
	MileageInKM *int64     `json:"mileage_in_km,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// ValidContractStatuses defines the accepted contract states
var ValidContractStatuses = []string{
	ContractDraft,
	ContractActive,
	ContractClosed,
	ContractCanceled,
}

// IsValidContractStatus checks if a contract status is valid
func IsValidContractStatus(status string) bool {
	for _, s := range ValidContractStatuses {
		if s == status {
			return true
		}
	}
	return false
}
