package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/catalog-price-converter/internal/application/service"
	"github.com/damon-houk/catalog-price-converter/internal/config"
	"github.com/damon-houk/catalog-price-converter/internal/domain/repository"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/api"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/cache"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/db"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/export"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/handler"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/logger"
	"github.com/damon-houk/catalog-price-converter/internal/infrastructure/middleware"
	"github.com/dgraph-io/badger/v3"
	"github.com/gorilla/mux"
)

// defaultDBPath is used by serve mode when DB_PATH is not set
const defaultDBPath = "data"

func main() {
	start := flag.String("start", "", "first day of the rate window (YYYY-MM-DD)")
	end := flag.String("end", "", "last day of the rate window (YYYY-MM-DD)")
	serve := flag.Bool("serve", false, "serve the run API instead of running the pipeline once")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SetDateRange(*start, *end); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid date range: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid LOG_LEVEL: %v\n", err)
		os.Exit(1)
	}
	appLogger, logFile, err := logger.OpenFile(cfg.LogFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	appLogger.Info("Starting catalog price converter", map[string]interface{}{
		"start":  cfg.StartDate.Format(config.DateLayout),
		"end":    cfg.EndDate.Format(config.DateLayout),
		"output": cfg.OutputDir,
		"serve":  *serve,
	})

	if *serve && cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}

	var runs repository.RunRepository
	if cfg.DBPath != "" {
		badgerDB, err := openBadger(cfg.DBPath)
		if err != nil {
			appLogger.Error("Failed to open run archive", map[string]interface{}{
				"path":  cfg.DBPath,
				"error": err.Error(),
			})
			logFile.Close()
			os.Exit(1)
		}
		defer func() {
			if err := badgerDB.Close(); err != nil {
				appLogger.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}()
		runs = db.NewBadgerRunRepository(badgerDB)
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Initialize sources
	rateClient := api.NewECBRateClient(cfg.RatesURL(), httpClient, appLogger)
	catalogClient := api.NewCatalogClient(cfg.CatalogURL, cfg.CatalogCurrency, httpClient, appLogger)
	rateRepo := db.NewSourceExchangeRateRepository(rateClient, cache.NewExchangeRateCache(cfg.RateCacheTTL), appLogger)

	// Initialize pipeline
	pipeline := service.NewPipelineService(
		rateRepo,
		catalogClient,
		export.NewCSVExporter(cfg.OutputDir),
		service.PipelineFiles{Rates: cfg.RatesFile, Merged: cfg.MergedFile},
		runs,
		appLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*serve {
		run, err := pipeline.Run(ctx, cfg.StartDate, cfg.EndDate)
		if err != nil {
			appLogger.Warn("Pipeline completed without archiving", map[string]interface{}{"error": err.Error()})
		}
		if run != nil && !run.Succeeded() {
			appLogger.Warn("Pipeline completed with failed steps", map[string]interface{}{
				"run_id":   run.ID,
				"failures": len(run.Failures),
			})
		}
		return
	}

	runHandler := handler.NewRunHandler(pipeline, runs, cfg.StartDate, cfg.EndDate, appLogger)

	// Setup router
	router := mux.NewRouter()
	runHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(router,
			middleware.RequestIDMiddleware,
			middleware.LoggingMiddleware(appLogger),
			middleware.RecoveryMiddleware(appLogger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	appLogger.Info("Server listening", map[string]interface{}{"addr": server.Addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Error("Server failed", map[string]interface{}{"error": err.Error()})
		return
	}
	appLogger.Info("Server stopped", nil)
}

func openBadger(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	badgerOpts := badger.DefaultOptions(path)
	badgerOpts.Logger = nil // Disable Badger's default logger

	return badger.Open(badgerOpts)
}
