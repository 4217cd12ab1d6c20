package models

import "time"

// ExtractionRun records one attempt to derive structured fields from an
// invoice document. Append-only: rows are created when the attempt starts
// and completed exactly once, never deleted.
type ExtractionRun struct {
	ID          string `gorm:"primaryKey;size:36"`
	InvoiceID   string `gorm:"size:36;index;not null"`
	Model       string `gorm:"size:100;not null"`
	StartedAt   time.Time
	CompletedAt *time.Time
	Success     bool
	RawResponse string `gorm:"type:text"`
	TokensIn    int
	TokensOut   int
	Error       string `gorm:"type:text"`
}
