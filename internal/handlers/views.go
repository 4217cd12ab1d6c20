package handlers

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/invoice-intake/internal/httpx"
	"github.com/diewo77/invoice-intake/internal/models"
	"github.com/diewo77/invoice-intake/internal/view"
)

// ViewHandler serves the dashboard and history read views through the view
// cache the intake workflow invalidates.
type ViewHandler struct {
	DB    *gorm.DB
	Cache *view.Cache
}

func NewViewHandler(db *gorm.DB, cache *view.Cache) *ViewHandler {
	return &ViewHandler{DB: db, Cache: cache}
}

type dashboardSummary struct {
	Counts     map[string]int64 `json:"counts"`
	TotalValue float64          `json:"total_value"`
	Invoices   int64            `json:"invoices"`
}

// Dashboard: GET /dashboard – status counts and totals.
func (h *ViewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if body, ok := h.Cache.Get("/dashboard"); ok {
		writeCached(w, body)
		return
	}

	summary := dashboardSummary{Counts: map[string]int64{}}
	for _, status := range []string{
		models.InvoiceStatusProcessing,
		models.InvoiceStatusNeedsReview,
		models.InvoiceStatusApproved,
		models.InvoiceStatusFailed,
	} {
		var n int64
		if err := h.DB.Model(&models.Invoice{}).Where("status = ?", status).Count(&n).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
			return
		}
		summary.Counts[status] = n
		summary.Invoices += n
	}
	row := h.DB.Model(&models.Invoice{}).Select("COALESCE(SUM(total),0)").Row()
	if err := row.Scan(&summary.TotalValue); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}

	body, err := json.Marshal(summary)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "dashboard_failed", nil)
		return
	}
	h.Cache.Put("/dashboard", body)
	writeCached(w, body)
}

// History: GET /history – audit trail, most recent first.
func (h *ViewHandler) History(w http.ResponseWriter, r *http.Request) {
	if body, ok := h.Cache.Get("/history"); ok {
		writeCached(w, body)
		return
	}

	var entries []models.AuditLog
	if err := h.DB.Order("id desc").Limit(200).Find(&entries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "history_failed", nil)
		return
	}
	body, err := json.Marshal(map[string]any{"items": entries, "total": len(entries)})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "history_failed", nil)
		return
	}
	h.Cache.Put("/history", body)
	writeCached(w, body)
}

func writeCached(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
