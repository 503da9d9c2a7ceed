package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	cfg "github.com/brpainel/painel-gateway/config"
	"github.com/brpainel/painel-gateway/internal/core/ports"
	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/eventbus"
	"github.com/brpainel/painel-gateway/internal/handlers"
	"github.com/brpainel/painel-gateway/internal/metrics"
	"github.com/brpainel/painel-gateway/internal/optimistic"
	"github.com/brpainel/painel-gateway/internal/upstream"
	"github.com/brpainel/painel-gateway/internal/usecases"
	"github.com/brpainel/painel-gateway/internal/usecases/repository"
	"github.com/brpainel/painel-gateway/internal/workers"
	"github.com/brpainel/painel-gateway/pkg/database"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	// Parse configuration
	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Setup logging
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Warn("Starting application with configuration",
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port,
		"panel_api", config.Upstream.BaseURL,
		"database_url", config.DB.DatabaseURL)

	migrationsPath := "./migrations"
	if workDir, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(workDir, "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "migrations")
		} else if _, err := os.Stat(filepath.Join(workDir, "..", "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "..", "migrations")
		}
	}

	// Connect to Database
	pg, err := database.New(ctx, config.DB.DatabaseURL,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
	)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		return
	}
	defer pg.Close()

	// Run database migrations
	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		log.Fatal(err)
	}
	logger.Info("Database migrations completed successfully")

	metrics.Init()

	// Event bus and upstream client
	bus := eventbus.New(logger)

	signOut := func(reason string) {
		logger.Warn("Local session invalidated", "reason", reason)
	}
	guard := upstream.NewSessionGuard(logger, bus, config.Upstream.AuthErrorDenylist, ports.SessionKickCountdown, signOut)

	httpClient := &http.Client{Timeout: config.Upstream.Timeout}
	api := upstream.NewClient(logger, config.Upstream.BaseURL, httpClient,
		upstream.Instrument(),
		upstream.BearerAuth(upstream.StaticToken(config.Upstream.ServiceToken)),
		guard.Middleware(),
	)

	// Repositories
	snapshotsRepository := repository.NewSnapshotsRepository(logger, pg)

	// Websocket push channel
	websocketManager := handlers.NewManager(logger)
	wsHandler := handlers.NewWebSocketHandler(logger, websocketManager, bus)

	// Usecases
	maintenanceService := usecases.NewMaintenanceService(logger, api)
	ordersService := usecases.NewOrdersService(logger, api, snapshotsRepository)
	transactionsService := usecases.NewTransactionsService(logger, api, snapshotsRepository)
	adminService := usecases.NewAdminService(logger, api)
	lookupService := usecases.NewLookupService(logger, api, ports.HasRecordsTTL, map[entities.LookupModule]int64{
		entities.LookupCPF:     config.Lookup.CPFPrice,
		entities.LookupCNPJ:    config.Lookup.CNPJPrice,
		entities.LookupVehicle: config.Lookup.VehiclePrice,
	})
	dashboardService := usecases.NewDashboardService(logger, api, bus, ports.ReconcileDebounce,
		optimistic.WithOnChange(wsHandler.BroadcastStats))

	// Workers
	snapshotSyncer := usecases.NewSnapshotSyncer(logger, api, ordersService, transactionsService)
	go workers.NewMaintenancePoller(logger, maintenanceService, ports.MaintenancePollInterval).Start(ctx)
	go workers.NewSnapshotRefresher(logger, snapshotSyncer, ports.SnapshotRefreshInterval).Start(ctx)

	// Handlers
	httpHandler := handlers.NewHTTPHandler(logger, dashboardService, ordersService, transactionsService, lookupService, bus)
	adminHandler := handlers.NewAdminHandler(logger, adminService, ordersService)

	// Create router
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(handlers.Auth(logger, []byte(config.Auth.JWTSecret)))
	apiRouter.Use(handlers.Maintenance(logger, maintenanceService))
	wsHandler.RegisterRoutes(apiRouter)
	httpHandler.RegisterRoutes(apiRouter)

	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(handlers.RequireAdmin(logger))
	adminHandler.RegisterRoutes(adminRouter)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(router)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}
