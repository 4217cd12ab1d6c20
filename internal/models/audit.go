package models

import "time"

// Audit actions recorded against invoices.
const (
	AuditActionExtracted = "EXTRACTED"
	AuditActionUpdated   = "UPDATED"
	AuditActionApproved  = "APPROVED"
)

// Entity types referenced by audit entries.
const (
	EntityInvoice = "INVOICE"
)

// AuditLog is an immutable, append-only record of entity-level actions.
// Rows are only ever created.
type AuditLog struct {
	ID          uint   `gorm:"primaryKey"`
	ActorUserID uint   `gorm:"index;not null"`
	EntityType  string `gorm:"size:50;not null;index"`
	EntityID    string `gorm:"size:36;not null;index"`
	Action      string `gorm:"size:50;not null"`
	DiffJSON    string `gorm:"type:text"`
	CreatedAt   time.Time
}
