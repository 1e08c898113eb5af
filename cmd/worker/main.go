package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/database"
	"github.com/tassosgomes/GestAuto-sub000/internal/logger"
	"github.com/tassosgomes/GestAuto-sub000/internal/messaging"
	"github.com/tassosgomes/GestAuto-sub000/internal/metrics"
	"github.com/tassosgomes/GestAuto-sub000/internal/queue"
	"github.com/tassosgomes/GestAuto-sub000/internal/repository"
	"github.com/tassosgomes/GestAuto-sub000/internal/worker"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		log.Fatalf("The outbox relay needs STORAGE_DRIVER=postgres; the in-memory API relays its own events")
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info(ctx, "Outbox relay starting",
		"publisher", cfg.Events.Publisher,
		"poll_interval", cfg.Worker.PollInterval,
		"batch_size", cfg.Worker.BatchSize,
		"max_retry_attempts", cfg.Retry.MaxAttempts)

	// Initialize database connection
	db, err := database.InitFromConfig(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger.Info(ctx, "Database connection established")

	outbox, err := queue.NewDBQueue(db.DB, queue.DefaultClaimLease)
	if err != nil {
		log.Fatalf("Failed to initialize queue: %v", err)
	}
	defer outbox.Close()

	publisher, closePublisher, err := messaging.FromConfig(cfg.Events)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer closePublisher()

	logger.Info(ctx, "Retry configuration",
		"max_attempts", cfg.Retry.MaxAttempts,
		"backoff_base", cfg.Retry.BackoffBase.String(),
		"first_delays", []string{
			worker.Backoff(cfg.Retry.BackoffBase, 1).String(),
			worker.Backoff(cfg.Retry.BackoffBase, 2).String(),
			worker.Backoff(cfg.Retry.BackoffBase, 3).String(),
		})

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Queue:               outbox,
		DeliveryAttemptRepo: repository.NewDeliveryAttemptRepository(db.DB),
		Publisher:           publisher,
		Metrics:             metrics.New(prometheus.DefaultRegisterer),
		PollInterval:        cfg.Worker.PollInterval,
		BatchSize:           cfg.Worker.BatchSize,
		MaxAttempts:         cfg.Retry.MaxAttempts,
		BackoffBase:         cfg.Retry.BackoffBase,
	})

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create context for worker
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start worker in a goroutine
	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- processor.Start(workerCtx)
	}()

	logger.Info(ctx, "Outbox relay started successfully")

	// Wait for shutdown signal or worker error
	select {
	case err := <-workerErrors:
		if err != nil && err != context.Canceled {
			logger.Error(ctx, "Worker error", "error", err.Error())
		}

	case sig := <-sigChan:
		logger.Info(ctx, "Received shutdown signal", "signal", sig.String())

		// Cancel worker context to trigger graceful shutdown
		cancel()

		// Wait for worker to finish with timeout
		shutdownTimeout := time.NewTimer(30 * time.Second)
		defer shutdownTimeout.Stop()

		select {
		case <-workerErrors:
			logger.Info(ctx, "Worker stopped gracefully")
		case <-shutdownTimeout.C:
			logger.Warn(ctx, "Worker shutdown timeout exceeded, forcing exit")
		}
	}

	logger.Info(ctx, "Worker shutdown complete")
}
