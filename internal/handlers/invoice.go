package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/invoice-intake/internal/auth"
	"github.com/diewo77/invoice-intake/internal/httpx"
	"github.com/diewo77/invoice-intake/internal/models"
	"github.com/diewo77/invoice-intake/internal/services"
)

const maxUploadSize = 25 << 20 // 25MB

// InvoiceHandler exposes the intake workflow over HTTP.
type InvoiceHandler struct {
	DB     *gorm.DB
	Svc    *services.IntakeService
	Export *services.ExportService
}

func NewInvoiceHandler(db *gorm.DB, svc *services.IntakeService, export *services.ExportService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc, Export: export}
}

// currentUser loads the authenticated user from the session context.
func (h *InvoiceHandler) currentUser(r *http.Request) (*models.User, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// writeServiceError maps the workflow error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
	case errors.Is(err, services.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "no_file_provided", nil)
	case errors.Is(err, services.ErrInvalidFormat):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "invalid_pdf", nil)
	case errors.Is(err, services.ErrExtractionFailed):
		httpx.JSONError(w, http.StatusBadGateway, "extraction_failed", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "processing_failed", err.Error())
	}
}

// Process: POST /invoices/process – multipart upload, runs the pipeline.
func (h *InvoiceHandler) Process(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "no_file_provided", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "read_error", nil)
		return
	}

	inv, err := h.Svc.ProcessInvoice(r.Context(), actor, data, header.Filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "invoice_id": inv.ID})
}

type updateReq struct {
	ID string `json:"id"`
	services.InvoiceUpdate
}

// Update: POST /invoices/update – overwrites the editable scalar fields.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	inv, err := h.Svc.UpdateInvoice(r.Context(), actor, req.ID, req.InvoiceUpdate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": inv})
}

// Approve: POST /invoices/approve
func (h *InvoiceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	inv, err := h.Svc.ApproveInvoice(r.Context(), actor, req.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": inv})
}

// List: GET /invoices – owner-scoped; admins see everything.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	q := h.DB.Order("created_at desc").Preload("Items")
	if !actor.IsAdmin() {
		q = q.Where("owner_id = ?", actor.ID)
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": len(invoices)})
}

// Get: GET /invoices/get?id=...
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.Preload("Items").First(&inv, "id = ?", id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	if !actor.IsAdmin() && inv.OwnerID != actor.ID {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// ExportXLSX: GET /invoices/export – workbook download.
func (h *InvoiceHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	data, err := h.Export.ExportInvoicesXLSX(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
