package models

import "time"

type Plan struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	MonthlyPriceCents int64     `json:"monthly_price_cents"`
	VehicleLimit      *int      `json:"vehicle_limit,omitempty"`
	UserLimit         *int      `json:"user_limit,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
