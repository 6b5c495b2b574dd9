// Package main is the entry point for the aims controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"aims/internal/config"
	"aims/internal/controller"
	"aims/internal/controller/handlers"
	"aims/internal/logger"
	"aims/internal/observability"
	"aims/internal/processor"
	"aims/internal/scheduler"
	"aims/internal/status"
	"aims/internal/store/postgres"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()
	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.Options{
		MaxAttempts:  cfg.MaxAttempts,
		LeaseTimeout: cfg.LeaseTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(db.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "aims-controller", cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Printf("Failed to shutdown tracer: %v", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Queue depth gauge queries the DB only when scraped.
	meter := otel.Meter("aims-controller")
	_, err = meter.Int64ObservableGauge("aims.queue.depth",
		metric.WithDescription("Entries currently pending or leased"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := db.PendingCount(ctx)
			if err != nil {
				log.Printf("Failed to count queue depth: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register queue depth metric: %v", err)
	}

	deliverer := processor.NewWebhookDeliverer(cfg.DeliveryEndpoint, cfg.DeliveryTimeout)
	proc := processor.New(db, db, db, deliverer, processor.Config{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		BackoffBase: cfg.BackoffBase,
		BackoffCap:  cfg.BackoffCap,
	}, slogger)

	sched := scheduler.New(proc, cfg.SchedulerInterval, cfg.ShutdownGrace, slogger)
	sched.Start(ctx)

	reporter := status.New(db, sched, slogger)

	h := handlers.New(db, sched, proc, reporter, slogger)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, cfg.APIKey, h, metricsHandler, slogger)

	go func() {
		log.Printf("AIMS controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Printf("Scheduler stop: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
