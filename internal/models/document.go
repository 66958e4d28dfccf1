package models

import "time"

// Document owner kinds
const (
	DocumentOwnerVehicle = "vehicle"
	DocumentOwnerTenant  = "tenant"
)

// Document is the metadata row for a stored file (the file itself lives
// in the storage backend under StorageKey).
type Document struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	OwnerType   string    `json:"owner_type"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"-"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsValidDocumentOwner checks the owner kind of a document
func IsValidDocumentOwner(ownerType string) bool {
	return ownerType == DocumentOwnerVehicle || ownerType == DocumentOwnerTenant
}
