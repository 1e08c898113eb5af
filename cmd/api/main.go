package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tassosgomes/GestAuto-sub000/internal/cache"
	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/database"
	"github.com/tassosgomes/GestAuto-sub000/internal/handlers"
	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/messaging"
	"github.com/tassosgomes/GestAuto-sub000/internal/metrics"
	"github.com/tassosgomes/GestAuto-sub000/internal/queue"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/services"
	"github.com/tassosgomes/GestAuto-sub000/internal/worker"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info(ctx, "API Server starting",
		"addr", cfg.API.Addr(),
		"storage", cfg.Storage.Driver,
		"auth_enabled", cfg.Auth.Enabled)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	healthChecks := map[string]handlers.HealthCheck{}

	var (
		uow   repository.UnitOfWork
		relay *worker.Processor
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		// Events never leave the process, so the relay runs alongside the server
		memQueue := queue.NewMemoryQueue()
		memStore := repository.NewMemoryStore(repository.WithEventSink(memQueue.Push))
		uow = memStore
		healthChecks["queue"] = memQueue.HealthCheck
		healthChecks["outbox"] = memStore.HealthCheck

		publisher, closePublisher, err := messaging.FromConfig(cfg.Events)
		if err != nil {
			log.Fatalf("Failed to create event publisher: %v", err)
		}
		defer closePublisher()

		relay = worker.NewProcessor(worker.ProcessorConfig{
			Queue:               memQueue,
			DeliveryAttemptRepo: repository.NewMemoryDeliveryAttemptRepository(),
			Publisher:           publisher,
			Metrics:             m,
			PollInterval:        cfg.Worker.PollInterval,
			BatchSize:           cfg.Worker.BatchSize,
			MaxAttempts:         cfg.Retry.MaxAttempts,
			BackoffBase:         cfg.Retry.BackoffBase,
		})
		logger.Warn(ctx, "Using in-memory storage; data is lost on restart")

	default:
		db, err := database.InitFromConfig(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info(ctx, "Database connection established")

		if err := database.RunMigrations(cfg.Database.URL()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		logger.Info(ctx, "Database migrations completed")

		uow = repository.NewPostgresUnitOfWork(db.DB)
		healthChecks["database"] = db.HealthCheck
	}

	// A typed nil would defeat the nil check in DashboardService
	var snapshots services.SnapshotCache
	if cfg.Redis.CacheEnabled() {
		redisCache, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			logger.LogError(ctx, "Dashboard cache disabled", err)
		} else {
			defer redisCache.Close()
			snapshots = redisCache
			healthChecks["redis"] = redisCache.HealthCheck
		}
	}

	loc, _ := cfg.Sales.Location()
	defaultOwner, _ := cfg.Sales.DefaultSalesPerson()

	opts := []services.Option{services.WithMetrics(m)}
	leads := services.NewLeadService(uow, services.NewScoringService(), opts...)
	router := handlers.NewRouter(cfg, handlers.Services{
		Leads:       leads,
		Capture:     services.NewLeadCaptureService(leads, services.NewMapper(defaultOwner)),
		Proposals:   services.NewProposalService(uow, opts...),
		TestDrives:  services.NewTestDriveService(uow, opts...),
		Evaluations: services.NewEvaluationService(uow, opts...),
		Dashboard:   services.NewDashboardService(uow, loc, snapshots, opts...),
	}, handlers.RouterOptions{
		HealthChecks: healthChecks,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if relay != nil {
		go func() {
			if err := relay.Start(relayCtx); err != nil && err != context.Canceled {
				logger.LogError(ctx, "Outbox relay stopped", err)
			}
		}()
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)

	case sig := <-sigChan:
		logger.Info(ctx, "Received shutdown signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Server shutdown error", "error", err.Error())
			// Force close if graceful shutdown fails
			server.Close()
		}
		stopRelay()

		logger.Info(ctx, "Server shutdown complete")
	}
}
