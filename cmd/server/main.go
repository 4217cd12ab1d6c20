package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diewo77/invoice-intake/internal/config"
	"github.com/diewo77/invoice-intake/internal/db"
	"github.com/diewo77/invoice-intake/internal/extraction"
	"github.com/diewo77/invoice-intake/internal/pdf"
	"github.com/diewo77/invoice-intake/internal/server"
	"github.com/diewo77/invoice-intake/internal/services"
	"github.com/diewo77/invoice-intake/internal/storage"
	"github.com/diewo77/invoice-intake/internal/view"
)

// simple middleware chain
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if *migrateOnlyFlag {
		log.Println("migrations completed; exiting as requested")
		return
	}
	if cfg.Extraction.APIKey == "" {
		log.Println("warning: ANTHROPIC_API_KEY is empty; extraction calls will fail")
	}
	log.Printf("Starting server env=%s port=%s model=%s", cfg.Env, cfg.Port, cfg.Extraction.Model)

	store := storage.NewDiskStore(cfg.StorageDir, cfg.PublicBaseURL)
	extractor := extraction.NewClient(cfg.Extraction, slog.Default())
	views := view.NewCache(0)
	intake := services.NewIntakeService(dbConn, store, pdf.Reader{}, extractor, views)
	export := services.NewExportService(dbConn)

	handler := server.New(server.Deps{
		DB:       dbConn,
		Intake:   intake,
		Export:   export,
		Views:    views,
		FilesDir: store.Dir(),
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: withLogging(handler)}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
