package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Loopin-city/loopin-city-sub001/internal/api"
	"github.com/Loopin-city/loopin-city-sub001/internal/archiver"
	"github.com/Loopin-city/loopin-city-sub001/internal/assets"
	"github.com/Loopin-city/loopin-city-sub001/internal/auth"
	"github.com/Loopin-city/loopin-city-sub001/internal/cloudsql"
	"github.com/Loopin-city/loopin-city-sub001/internal/config"
	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/dedup"
	"github.com/Loopin-city/loopin-city-sub001/internal/lifecycle"
	"github.com/Loopin-city/loopin-city-sub001/internal/logging"
	"github.com/Loopin-city/loopin-city-sub001/internal/metrics"
	"github.com/Loopin-city/loopin-city-sub001/internal/scheduler"
	"github.com/Loopin-city/loopin-city-sub001/internal/server"
	_ "github.com/lib/pq"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting loopin")

	// Connect to database (supports both local DATABASE_URL and Cloud SQL)
	dbURL, err := cloudsql.BuildDatabaseURL()
	if err != nil {
		logger.Error("failed to build database URL", "error", err)
		os.Exit(1)
	}

	// Log connection config (without sensitive data)
	logger.Info("database configuration", "config", cloudsql.ConnectionInfo())

	logger.Info("connecting to database")
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db, err := database.Connect(context.Background(), dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run pending migrations (non-fatal to allow app to start even if migrations fail)
	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	// Create repositories
	repos := api.Repositories{
		Events:      database.NewPostgresEventRepository(db),
		Archive:     database.NewPostgresArchiveRepository(db),
		Communities: database.NewPostgresCommunityRepository(db),
		Venues:      database.NewPostgresVenueRepository(db),
		Duplicates:  database.NewPostgresDuplicateRepository(db),
		CleanupLogs: database.NewCleanupLogRepository(db),
	}
	counters := database.NewPostgresCounterStore(db)

	// Banner asset cleanup, disabled unless a storage endpoint is configured
	var cleaner assets.Cleaner = assets.NopCleaner{}
	if cfg.Assets.StorageURL != "" {
		cleaner = assets.NewHTTPCleaner(cfg.Assets.StorageURL, cfg.Assets.StorageToken)
		logger.Info("asset cleanup enabled", "storage_url", cfg.Assets.StorageURL)
	}

	// Core engines
	manager := lifecycle.NewManager(repos.Events, counters, logger)
	arch := archiver.New(repos.Events, repos.Archive, repos.Communities, counters, cleaner, archiver.Config{
		CreditCountsOnArchive: cfg.Cleanup.CreditCountsOnArchive,
	}, logger)
	workflow := dedup.NewWorkflow(repos.Events, repos.Communities, repos.Duplicates, counters, dedup.Config{
		ReconcileCountsOnMerge: cfg.Cleanup.ReconcileCountsOnMerge,
	}, logger)

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Service info endpoint
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"loopin","status":"ready","version":"0.1.0"}`))
	})

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	mux.Handle("/metrics", collector.Handler())

	archiveMetrics, err := collector.NewArchiveMetrics()
	if err != nil {
		logger.Error("failed to init archive metrics", "error", err)
		os.Exit(1)
	}

	// Load auth configuration
	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	// Start cleanup scheduler
	logger.Info("starting cleanup scheduler", "interval", cfg.Cleanup.Interval)
	cleanupScheduler := scheduler.NewCleanupScheduler(arch, repos.CleanupLogs, cfg.Cleanup.Interval, logger)
	cleanupScheduler.SetMetrics(archiveMetrics)
	go cleanupScheduler.Start(context.Background())

	// Add REST API routes
	logger.Info("setting up REST API")
	api.SetupRoutes(mux, repos, manager, arch, workflow, cleanupScheduler, authConfig, logger)

	// Wrap with SPA middleware to serve frontend for non-API routes
	logger.Info("setting up static file server for web UI")
	handler := server.SPAMiddleware(collector.InstrumentHandler(mux), "./web/dist", "./web/dist/index.html")

	// Start server
	srv := server.New(cfg.Server, logger, handler)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("loopin started successfully")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	cleanupScheduler.Stop()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
