package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AuditLog is an append-only record of a mutation
type AuditLog struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	ActorID    int64     `json:"actor_id"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Action     string    `json:"action"`
	Detail     JSONB     `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}
