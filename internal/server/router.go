package server

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/invoice-intake/internal/auth"
	"github.com/diewo77/invoice-intake/internal/handlers"
	"github.com/diewo77/invoice-intake/internal/httpx"
	"github.com/diewo77/invoice-intake/internal/models"
	"github.com/diewo77/invoice-intake/internal/services"
	"github.com/diewo77/invoice-intake/internal/view"
)

// Deps bundles the collaborators the router wires together.
type Deps struct {
	DB       *gorm.DB
	Intake   *services.IntakeService
	Export   *services.ExportService
	Views    *view.Cache
	FilesDir string
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := d.DB.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(d.DB)
	authHandler.Register(mux)

	// Invoice endpoints
	ih := handlers.NewInvoiceHandler(d.DB, d.Intake, d.Export)
	mux.Handle("/invoices", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ih.List(w, r)
			return
		}
		w.Header().Set("Allow", "GET")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})))
	mux.Handle("/invoices/process", protect(post(ih.Process)))
	mux.Handle("/invoices/update", protect(post(ih.Update)))
	mux.Handle("/invoices/approve", protect(post(ih.Approve)))
	mux.Handle("/invoices/get", protect(http.HandlerFunc(ih.Get)))
	mux.Handle("/invoices/export", protect(http.HandlerFunc(ih.ExportXLSX)))

	// Cached read views
	vh := handlers.NewViewHandler(d.DB, d.Views)
	mux.Handle("/dashboard", protect(http.HandlerFunc(vh.Dashboard)))
	mux.Handle("/history", protect(http.HandlerFunc(vh.History)))

	// Stored invoice files
	if d.FilesDir != "" {
		files := http.StripPrefix("/files/", http.FileServer(http.Dir(d.FilesDir)))
		mux.Handle("/files/", protect(files))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"service": "invoice-intake"})
	})

	return auth.Middleware(mux)
}

func protect(next http.Handler) http.Handler { return auth.RequireAuth(next) }

func post(fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		fn(w, r)
	})
}
