package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-dashboard/internal/dashboard/config"
	delivery "stock-dashboard/internal/dashboard/delivery/http"
	_ "stock-dashboard/internal/dashboard/docs"
	"stock-dashboard/internal/dashboard/repository"
	"stock-dashboard/internal/dashboard/service"
	"stock-dashboard/pkg/logger"
	"stock-dashboard/pkg/sqlite"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the dashboard service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Dashboard Service", logger.Field("name", cfg.App.Name))

	// Open the embedded database
	db, err := sqlite.NewDB(sqlite.Config{
		Path:          cfg.Database.Path,
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
		LogLevel:      cfg.Database.LogLevel,
	})
	if err != nil {
		appLogger.Fatal("Failed to open embedded database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize repositories
	favoritesRepo := repository.NewFavoritesRepository(db.DB)
	uploadsRepo := repository.NewUploadsRepository(db.DB)
	legacyStore := repository.NewLegacyStore(cfg.Database.LegacyStatePath)
	migrator := repository.NewLegacyMigrator(legacyStore, favoritesRepo, uploadsRepo, appLogger)
	marketRepo := repository.NewEastmoneyRepository(cfg, appLogger)

	// Initialize services
	ingestSvc := service.NewIngestService(appLogger)
	watchlistSvc := service.NewWatchlistService(favoritesRepo, uploadsRepo, migrator, ingestSvc, cfg.Watchlist.DefaultPageSize, appLogger)
	exportSvc := service.NewExportService(watchlistSvc, appLogger)
	marketSvc := service.NewMarketService(marketRepo, cfg, appLogger)

	// Migrate the legacy flat store and hydrate state. The service cannot
	// run without its state, so a failure here is fatal.
	if err := watchlistSvc.Load(ctx); err != nil {
		appLogger.Fatal("Failed to initialize watchlist state", logger.ErrorField(err))
	}

	stopPrefetch, err := marketSvc.StartPrefetch(ctx, watchlistSvc)
	if err != nil {
		appLogger.Fatal("Failed to start chart prefetch", logger.ErrorField(err))
	}
	defer stopPrefetch()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Initialize handlers and routes
	apiV1 := e.Group("/api/v1")

	watchlistHandler := delivery.NewWatchlistHandler(watchlistSvc, exportSvc, appLogger)
	watchlistHandler.RegisterRoutes(apiV1.Group("/watchlist"))

	marketHandler := delivery.NewMarketHandler(marketSvc, appLogger)
	marketHandler.RegisterRoutes(apiV1.Group("/market"))

	e.GET("/swagger/*", swagger.WrapHandler)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

// @title Stock Watchlist Dashboard API
// @version 1.0
// @description Local stock-watchlist dashboard: spreadsheet import, favorites, filtering and chart data.
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{Use: "dashboard-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing dashboard-service CLI: %s\n", err)
		os.Exit(1)
	}
}
