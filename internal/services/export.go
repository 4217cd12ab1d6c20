package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-intake/internal/models"
)

// ExportService produces XLSX bytes for a user's invoices.
type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) *ExportService { return &ExportService{db: db} }

// ExportInvoicesXLSX returns a workbook with one row per invoice. Admins get
// every invoice; other actors get only their own.
func (s *ExportService) ExportInvoicesXLSX(ctx context.Context, actor *models.User) ([]byte, error) {
	if actor == nil || actor.ID == 0 {
		return nil, ErrUnauthorized
	}

	q := s.db.WithContext(ctx).Order("created_at desc")
	if !actor.IsAdmin() {
		q = q.Where("owner_id = ?", actor.ID)
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("%w: list invoices: %v", ErrPersistence, err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Invoice Number", "Vendor", "Invoice Date", "Due Date",
		"Subtotal", "Tax Total", "Total", "Status", "Processed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range invoices {
		processed := ""
		if inv.ProcessedAt != nil {
			processed = inv.ProcessedAt.Format(time.RFC3339)
		}
		values := []any{
			inv.InvoiceNumber,
			inv.VendorNameRaw,
			inv.InvoiceDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			inv.Subtotal,
			inv.TaxTotal,
			inv.Total,
			inv.Status,
			processed,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
