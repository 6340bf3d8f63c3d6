package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reflexity/ingest/internal/config"
	"github.com/reflexity/ingest/internal/db"
	"github.com/reflexity/ingest/internal/ingestion"
	"github.com/reflexity/ingest/internal/middleware"
	"github.com/reflexity/ingest/internal/repository"
	"github.com/reflexity/ingest/internal/storage"
	"github.com/reflexity/ingest/internal/webhook"
	"github.com/reflexity/ingest/internal/worker"

	"github.com/rs/cors"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn.Pool, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	tableRepo := repository.NewRawTableRepository(conn.Pool)
	logRepo := repository.NewIngestionLogRepository(conn.Pool)

	service := ingestion.NewService(tableRepo, logRepo, logger)
	ingestHandler := ingestion.NewHandler(service, logRepo)

	pool := worker.NewPool(cfg.Workers.Count, cfg.Workers.QueueDepth, logger)
	pool.Start(ctx)

	storageClient := storage.NewClient(cfg.Storage.URL, cfg.Storage.ServiceKey)
	webhookHandler := webhook.NewHandler(storageClient, service, pool, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest-file", ingestHandler.HandleUpload)
	mux.HandleFunc("GET /api/ingestion-logs", ingestHandler.HandleLogs)
	mux.HandleFunc("POST /api/upload-webhook", webhookHandler.HandleEvent)
	mux.HandleFunc("GET /api/ingest-jobs/{id}", webhookHandler.HandleJobStatus)
	mux.HandleFunc("GET /api/test", func(w http.ResponseWriter, r *http.Request) {
		ingestion.WriteJSON(w, http.StatusOK, map[string]any{"data": "API is working!"})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ingestion.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		ingestion.WriteJSON(w, http.StatusOK, map[string]any{"message": "Reflexity ingestion service"})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: false,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      middleware.Logging(logger)(corsHandler.Handler(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Let queued ingestions finish before releasing the database pool.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown incomplete", "error", err)
	}

	logger.Info("server exited")
}
