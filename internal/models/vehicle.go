package models

import "time"

// Vehicle status values
const (
	VehicleAvailable   = "available"
	VehicleRented      = "rented"
	VehicleMaintenance = "maintenance"
	VehicleInactive    = "inactive"
)

type Vehicle struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"company_id"`
	Plate          string    `json:"plate"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           *int      `json:"year,omitempty"`
	Color          *string   `json:"color,omitempty"`
	Category       *string   `json:"category,omitempty"`
	OdometerKM     *int64    `json:"odometer_km,omitempty"`
	DailyRateCents int64     `json:"daily_rate_cents"`
	Status         string    `json:"status"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ValidVehicleStatuses defines the accepted vehicle states
var ValidVehicleStatuses = []string{
	VehicleAvailable,
	VehicleRented,
	VehicleMaintenance,
	VehicleInactive,
}

// IsValidVehicleStatus checks if a vehicle status is valid
func IsValidVehicleStatus(status string) bool {
	for _, s := range ValidVehicleStatuses {
		if s == status {
			return true
		}
	}
	return false
}
