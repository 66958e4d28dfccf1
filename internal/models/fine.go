package models

import "time"

// Fine status values
const (
	FinePending   = "pending"
	FineNotified  = "notified"
	FinePaid      = "paid"
	FineContested = "contested"
)

type Fine struct {
	ID             int64      `json:"id"`
	CompanyID      int64      `json:"company_id"`
	VehicleID      int64      `json:"vehicle_id"`
	ContractID     *int64     `json:"contract_id,omitempty"`
	TenantID       *int64     `json:"tenant_id,omitempty"`
	IssuedAt       time.Time  `json:"issued_at"`
	InfractionCode *string    `json:"infraction_code,omitempty"`
	Description    *string    `json:"description,omitempty"`
	AmountCents    int64      `json:"amount_cents"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Points         *int       `json:"points,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ValidFineStatuses defines the accepted fine states
var ValidFineStatuses = []string{
	FinePending,
	FineNotified,
	FinePaid,
	FineContested,
}

// IsValidFineStatus checks if a fine status is valid
func IsValidFineStatus(status string) bool {
	for _, s := range ValidFineStatuses {
		if s == status {
			return true
		}
	}
	return false
}
