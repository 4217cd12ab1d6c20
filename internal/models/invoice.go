package models

import "time"

// Invoice lifecycle. Transitions are monotonic: PROCESSING moves to
// NEEDS_REVIEW or FAILED, NEEDS_REVIEW moves to APPROVED. Every invoice
// starts in PROCESSING.
const (
	InvoiceStatusProcessing  = "PROCESSING"
	InvoiceStatusNeedsReview = "NEEDS_REVIEW"
	InvoiceStatusApproved    = "APPROVED"
	InvoiceStatusFailed      = "FAILED"
)

type Invoice struct {
	ID      string `gorm:"primaryKey;size:36"`
	OwnerID uint   `gorm:"index;not null"`

	VendorID      *string `gorm:"size:36;index"`
	VendorNameRaw string  `gorm:"size:255"`
	InvoiceNumber string  `gorm:"size:100"`
	InvoiceDate   time.Time
	DueDate       time.Time
	PaymentTerms  string `gorm:"size:255"`
	Mobile        string `gorm:"size:50"`
	Email         string `gorm:"size:255"`

	Subtotal float64
	GST      float64
	HST      float64
	QST      float64
	PST      float64
	TaxTotal float64
	Total    float64

	Status string `gorm:"size:50;not null;index"`

	FileKey  string `gorm:"size:255"`
	FileURL  string `gorm:"size:512"`
	FileHash string `gorm:"size:64"`

	// Verbatim structured payload returned by the extraction model.
	ExtractedJSON string `gorm:"type:text"`
	ProcessedAt   *time.Time

	Items []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetOwnerID satisfies policy.Ownable.
func (i *Invoice) GetOwnerID() uint { return i.OwnerID }

type LineItem struct {
	ID          string `gorm:"primaryKey;size:36"`
	InvoiceID   string `gorm:"size:36;index;not null"`
	Description string `gorm:"size:512"`
	Quantity    float64
	Rate        float64
	Amount      float64
	SortOrder   int `gorm:"not null"` // zero-based extraction order
	CreatedAt   time.Time
}
