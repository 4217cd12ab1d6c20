package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-intake/internal/extraction"
	"github.com/diewo77/invoice-intake/internal/models"
	"github.com/diewo77/invoice-intake/internal/policy"
	"github.com/diewo77/invoice-intake/internal/storage"
)

// DocumentReader validates and reads uploaded documents. The production
// implementation wraps the pdf package; tests substitute stubs.
type DocumentReader interface {
	IsPDF(data []byte) bool
	ExtractText(data []byte) (string, error)
}

// Refresher receives post-commit invalidation signals for cached read views.
type Refresher interface {
	Invalidate(paths ...string)
}

// InvoiceUpdate carries the caller-editable scalar fields. All of them are
// overwritten unconditionally; there is no field-level diffing.
type InvoiceUpdate struct {
	VendorNameRaw string    `json:"vendor_name_raw"`
	InvoiceNumber string    `json:"invoice_number"`
	InvoiceDate   time.Time `json:"invoice_date"`
	DueDate       time.Time `json:"due_date"`
	PaymentTerms  string    `json:"payment_terms"`
	Mobile        string    `json:"mobile"`
	Email         string    `json:"email"`
	Subtotal      float64   `json:"subtotal"`
	GST           float64   `json:"gst"`
	HST           float64   `json:"hst"`
	QST           float64   `json:"qst"`
	PST           float64   `json:"pst"`
	TaxTotal      float64   `json:"tax_total"`
	Total         float64   `json:"total"`
}

// IntakeService orchestrates the invoice workflow: process an upload,
// update extracted fields, approve. Concurrency control is delegated to the
// database; each call is a single sequential unit of work with no retries.
type IntakeService struct {
	db        *gorm.DB
	store     storage.Store
	docs      DocumentReader
	extractor extraction.Extractor
	views     Refresher
	authz     policy.Policy
}

func NewIntakeService(db *gorm.DB, store storage.Store, docs DocumentReader, extractor extraction.Extractor, views Refresher) *IntakeService {
	isAdmin := func(ctx context.Context, uid uint) bool {
		var u models.User
		if err := db.WithContext(ctx).First(&u, uid).Error; err != nil {
			return false
		}
		return u.IsAdmin()
	}
	return &IntakeService{
		db:        db,
		store:     store,
		docs:      docs,
		extractor: extractor,
		views:     views,
		authz:     policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin),
	}
}

// ProcessInvoice runs the full pipeline for one uploaded file: validate,
// store, create the PROCESSING anchor row, extract, resolve the vendor,
// finalize, record the extraction run, and write the audit entry.
//
// Errors before the anchor row exists leave no durable state behind. Any
// error after it marks the invoice FAILED (and the extraction run, once it
// exists, failed) before being returned.
func (s *IntakeService) ProcessInvoice(ctx context.Context, actor *models.User, data []byte, filename string) (*models.Invoice, error) {
	if actor == nil || actor.ID == 0 {
		return nil, ErrUnauthorized
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidInput)
	}
	if !s.docs.IsPDF(data) {
		return nil, fmt.Errorf("%w: invalid PDF file", ErrInvalidFormat)
	}

	obj, err := s.store.Save(ctx, data, filename)
	if err != nil {
		// No invoice row exists yet; the raw storage error goes to the caller.
		return nil, err
	}

	now := time.Now()
	inv := models.Invoice{
		ID:            uuid.NewString(),
		OwnerID:       actor.ID,
		VendorNameRaw: "Processing...",
		InvoiceNumber: "TBD",
		InvoiceDate:   now,
		DueDate:       now,
		Status:        models.InvoiceStatusProcessing,
		FileKey:       obj.Key,
		FileURL:       obj.URL,
		FileHash:      obj.Hash,
	}
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("%w: create invoice: %v", ErrPersistence, err)
	}

	// The anchor row exists: from here on, failures transition it to FAILED
	// instead of leaving it orphaned in PROCESSING.
	run, err := s.extractAndFinalize(ctx, actor, &inv, data)
	if err != nil {
		s.markFailed(ctx, &inv, run, err)
		return nil, err
	}

	s.views.Invalidate("/dashboard", "/history")
	return &inv, nil
}

func (s *IntakeService) extractAndFinalize(ctx context.Context, actor *models.User, inv *models.Invoice, data []byte) (*models.ExtractionRun, error) {
	text, err := s.docs.ExtractText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	run := &models.ExtractionRun{
		ID:        uuid.NewString(),
		InvoiceID: inv.ID,
		Model:     s.extractor.Model(),
		StartedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("%w: create extraction run: %v", ErrPersistence, err)
	}

	res, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return run, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	vendor, err := s.lookupOrCreateVendor(ctx, res.Fields.VendorName)
	if err != nil {
		return run, fmt.Errorf("%w: resolve vendor: %v", ErrPersistence, err)
	}

	invoiceDate, err := parseDate(res.Fields.InvoiceDate)
	if err != nil {
		return run, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	dueDate, err := parseDate(res.Fields.DueDate)
	if err != nil {
		return run, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	extractedJSON, err := json.Marshal(res.Fields)
	if err != nil {
		return run, fmt.Errorf("%w: encode payload: %v", ErrExtractionFailed, err)
	}

	processedAt := time.Now()
	updates := map[string]any{
		"vendor_id":       vendor.ID,
		"vendor_name_raw": res.Fields.VendorName,
		"invoice_number":  res.Fields.InvoiceNumber,
		"invoice_date":    invoiceDate,
		"due_date":        dueDate,
		"payment_terms":   res.Fields.PaymentTerms,
		"mobile":          res.Fields.Mobile,
		"email":           res.Fields.Email,
		"subtotal":        res.Fields.Subtotal,
		"gst":             res.Fields.Taxes.GST,
		"hst":             res.Fields.Taxes.HST,
		"qst":             res.Fields.Taxes.QST,
		"pst":             res.Fields.Taxes.PST,
		"tax_total":       res.Fields.Taxes.Total,
		"total":           res.Fields.TotalAmount,
		"status":          models.InvoiceStatusNeedsReview,
		"extracted_json":  string(extractedJSON),
		"processed_at":    processedAt,
	}
	if err := s.db.WithContext(ctx).Model(inv).Updates(updates).Error; err != nil {
		return run, fmt.Errorf("%w: finalize invoice: %v", ErrPersistence, err)
	}

	if len(res.Fields.LineItems) > 0 {
		items := make([]models.LineItem, 0, len(res.Fields.LineItems))
		for i, li := range res.Fields.LineItems {
			items = append(items, models.LineItem{
				ID:          uuid.NewString(),
				InvoiceID:   inv.ID,
				Description: li.Description,
				Quantity:    li.Quantity,
				Rate:        li.Rate,
				Amount:      li.Amount,
				SortOrder:   i,
			})
		}
		if err := s.db.WithContext(ctx).Create(&items).Error; err != nil {
			return run, fmt.Errorf("%w: create line items: %v", ErrPersistence, err)
		}
	}

	completed := time.Now()
	runUpdates := map[string]any{
		"completed_at": completed,
		"success":      true,
		"raw_response": string(res.RawResponse),
		"tokens_in":    res.Usage.InputTokens,
		"tokens_out":   res.Usage.OutputTokens,
	}
	if err := s.db.WithContext(ctx).Model(run).Updates(runUpdates).Error; err != nil {
		return run, fmt.Errorf("%w: complete extraction run: %v", ErrPersistence, err)
	}
	run.Success = true

	if err := s.writeAudit(ctx, actor.ID, inv.ID, models.AuditActionExtracted, map[string]any{"data": res.Fields}); err != nil {
		return run, fmt.Errorf("%w: audit: %v", ErrPersistence, err)
	}

	// Reload so callers see the finalized row.
	if err := s.db.WithContext(ctx).Preload("Items").First(inv, "id = ?", inv.ID).Error; err != nil {
		return run, fmt.Errorf("%w: reload invoice: %v", ErrPersistence, err)
	}
	return run, nil
}

// markFailed is best-effort recovery bookkeeping: the workflow error has
// already been decided and will be returned regardless.
func (s *IntakeService) markFailed(ctx context.Context, inv *models.Invoice, run *models.ExtractionRun, cause error) {
	if err := s.db.WithContext(ctx).Model(inv).Update("status", models.InvoiceStatusFailed).Error; err != nil {
		log.Printf("intake: marking invoice %s failed: %v", inv.ID, err)
	}
	if run != nil && !run.Success {
		completed := time.Now()
		updates := map[string]any{
			"completed_at": completed,
			"success":      false,
			"error":        cause.Error(),
		}
		if err := s.db.WithContext(ctx).Model(run).Updates(updates).Error; err != nil {
			log.Printf("intake: marking run %s failed: %v", run.ID, err)
		}
	}
}

// lookupOrCreateVendor resolves a vendor by normalized name, creating it on
// first sighting. The read-then-write pair is not atomic; the unique index
// on normalized_name arbitrates races, and a create conflict falls back to
// re-fetching the winner's row.
func (s *IntakeService) lookupOrCreateVendor(ctx context.Context, name string) (*models.Vendor, error) {
	normalized := extraction.NormalizeVendorName(name)
	if normalized == "" {
		return nil, fmt.Errorf("vendor name %q normalizes to empty key", name)
	}
	var v models.Vendor
	err := s.db.WithContext(ctx).Where("normalized_name = ?", normalized).First(&v).Error
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	v = models.Vendor{ID: uuid.NewString(), Name: name, NormalizedName: normalized}
	if createErr := s.db.WithContext(ctx).Create(&v).Error; createErr != nil {
		if fetchErr := s.db.WithContext(ctx).Where("normalized_name = ?", normalized).First(&v).Error; fetchErr != nil {
			return nil, createErr
		}
	}
	return &v, nil
}

// UpdateInvoice overwrites the caller-editable scalar fields, writes an
// UPDATED audit entry with before/after snapshots, and invalidates the
// affected views. Status is never changed here.
func (s *IntakeService) UpdateInvoice(ctx context.Context, actor *models.User, invoiceID string, in InvoiceUpdate) (*models.Invoice, error) {
	inv, err := s.authorize(ctx, actor, invoiceID, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}

	before, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrPersistence, err)
	}

	updates := map[string]any{
		"vendor_name_raw": in.VendorNameRaw,
		"invoice_number":  in.InvoiceNumber,
		"invoice_date":    in.InvoiceDate,
		"due_date":        in.DueDate,
		"payment_terms":   in.PaymentTerms,
		"mobile":          in.Mobile,
		"email":           in.Email,
		"subtotal":        in.Subtotal,
		"gst":             in.GST,
		"hst":             in.HST,
		"qst":             in.QST,
		"pst":             in.PST,
		"tax_total":       in.TaxTotal,
		"total":           in.Total,
	}
	if err := s.db.WithContext(ctx).Model(inv).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("%w: update invoice: %v", ErrPersistence, err)
	}
	if err := s.db.WithContext(ctx).First(inv, "id = ?", inv.ID).Error; err != nil {
		return nil, fmt.Errorf("%w: reload invoice: %v", ErrPersistence, err)
	}

	after, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrPersistence, err)
	}
	diff := map[string]any{"before": json.RawMessage(before), "after": json.RawMessage(after)}
	if err := s.writeAudit(ctx, actor.ID, inv.ID, models.AuditActionUpdated, diff); err != nil {
		return nil, fmt.Errorf("%w: audit: %v", ErrPersistence, err)
	}

	s.views.Invalidate("/invoices/"+inv.ID, "/history", "/dashboard")
	return inv, nil
}

// ApproveInvoice sets status to APPROVED unconditionally. Re-approving is
// allowed and idempotent; each call appends a fresh audit entry.
func (s *IntakeService) ApproveInvoice(ctx context.Context, actor *models.User, invoiceID string) (*models.Invoice, error) {
	inv, err := s.authorize(ctx, actor, invoiceID, policy.ActionApprove)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(inv).Update("status", models.InvoiceStatusApproved).Error; err != nil {
		return nil, fmt.Errorf("%w: approve invoice: %v", ErrPersistence, err)
	}
	inv.Status = models.InvoiceStatusApproved

	if err := s.writeAudit(ctx, actor.ID, inv.ID, models.AuditActionApproved, nil); err != nil {
		return nil, fmt.Errorf("%w: audit: %v", ErrPersistence, err)
	}

	s.views.Invalidate("/invoices/"+inv.ID, "/history", "/dashboard")
	return inv, nil
}

// authorize loads the invoice and applies the shared auth contract for
// update/approve: authenticated, existing target, admin-or-owner.
func (s *IntakeService) authorize(ctx context.Context, actor *models.User, invoiceID string, action policy.Action) (*models.Invoice, error) {
	if actor == nil || actor.ID == 0 {
		return nil, ErrUnauthorized
	}
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: load invoice: %v", ErrPersistence, err)
	}
	if !s.authz.Can(ctx, actor.ID, action, &inv) {
		return nil, ErrForbidden
	}
	return &inv, nil
}

func (s *IntakeService) writeAudit(ctx context.Context, actorID uint, invoiceID, action string, diff map[string]any) error {
	entry := models.AuditLog{
		ActorUserID: actorID,
		EntityType:  models.EntityInvoice,
		EntityID:    invoiceID,
		Action:      action,
	}
	if diff != nil {
		b, err := json.Marshal(diff)
		if err != nil {
			return fmt.Errorf("encode diff: %w", err)
		}
		entry.DiffJSON = string(b)
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %v", s, err)
	}
	return t, nil
}
