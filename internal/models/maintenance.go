package models

import "time"

// Maintenance status values
const (
	MaintenanceScheduled  = "scheduled"
	MaintenanceInProgress = "in_progress"
	MaintenanceCompleted  = "completed"
	MaintenanceCanceled   = "canceled"
)

type Maintenance struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	VehicleID   int64      `json:"vehicle_id"`
	SupplierID  *int64     `json:"supplier_id,omitempty"`
	ServiceType string     `json:"service_type"`
	Description *string    `json:"description,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	OdometerKM  *int64     `json:"odometer_km,omitempty"`
	CostCents   int64      `json:"cost_cents"`
	Status      string     `json:"status"`
	Notes       *string    `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ValidMaintenanceStatuses defines the accepted maintenance states
var ValidMaintenanceStatuses = []string{
	MaintenanceScheduled,
	MaintenanceInProgress,
	MaintenanceCompleted,
	MaintenanceCanceled,
}

// IsValidMaintenanceStatus checks if a maintenance status is valid
func IsValidMaintenanceStatus(status string) bool {
	for _, s := range ValidMaintenanceStatuses {
		if s == status {
			return true
		}
	}
	return false
}
