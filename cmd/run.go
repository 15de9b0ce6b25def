package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"termbilling/config"
	"termbilling/database"
	"termbilling/events"
	"termbilling/notifications"
	"termbilling/observability"
	"termbilling/repository"
	"termbilling/server"
	"termbilling/service"
)

const poolStatsInterval = 15 * time.Second

// SetupLogging configures the global logrus logger
func SetupLogging(cfg *config.Config) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Run initializes and starts the application
func Run(ctx context.Context, cfg *config.Config) error {
	log.WithField("environment", cfg.Environment).Info("Starting term billing service...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		db.Close()
	}()
	log.Info("Database connection established successfully")

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	go reportPoolStats(ctx, db, metrics)

	// Initialize event bus and subscribers
	eventBus := events.NewBus()
	notifications.RegisterSubscriptions(eventBus, notifications.NewNotifier(notifications.LogSender{}))

	// Initialize unit of work factory and services
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	billingService := service.NewBillingService(uowFactory, metrics)
	log.Info("Services initialized successfully")

	// Start HTTP server
	srv := server.NewServer(cfg, billingService, registry, metrics)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for context cancellation or server failure
	select {
	case <-ctx.Done():
		log.Info("Shutting down HTTP server...")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Shutdown timeout exceeded")
		return err
	}

	log.Info("Shutdown completed")
	return nil
}

// reportPoolStats publishes connection pool gauges until ctx is done
func reportPoolStats(ctx context.Context, db *database.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		metrics.ObservePool(db.Stat())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
