// Package main is the entry point for a standalone drain worker.
// It polls the queue directly, with adaptive backoff when the queue is
// empty, so processing capacity can scale out beyond the controller's
// scheduler.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aims/internal/config"
	"aims/internal/logger"
	"aims/internal/observability"
	"aims/internal/processor"
	"aims/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.Options{
		MaxAttempts:  cfg.MaxAttempts,
		LeaseTimeout: cfg.LeaseTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "aims-worker", cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Printf("Failed to shutdown tracer: %v", err)
			}
		}()
	}

	deliverer := processor.NewWebhookDeliverer(cfg.DeliveryEndpoint, cfg.DeliveryTimeout)
	proc := processor.New(db, db, db, deliverer, processor.Config{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		BackoffBase: cfg.BackoffBase,
		BackoffCap:  cfg.BackoffCap,
	}, slogger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down worker...")
		cancel()
	}()

	log.Printf("AIMS worker starting, poll interval %s", cfg.WorkerPollInterval)
	runLoop(ctx, proc, cfg.WorkerPollInterval, cfg.WorkerMaxBackoff)
	log.Println("Worker exited")
}

// runLoop drains the queue until the context is cancelled. The poll delay
// doubles while the queue stays empty, capped at maxBackoff, and resets as
// soon as a pass finds work.
func runLoop(ctx context.Context, proc *processor.Processor, pollInterval, maxBackoff time.Duration) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxBackoff < pollInterval {
		maxBackoff = 30 * time.Second
	}

	delay := pollInterval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		result, err := proc.Drain(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Drain error: %v", err)
			delay = pollInterval
			continue
		}

		if result.Processed+result.Failed+result.DeadLettered == 0 {
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
		} else {
			delay = pollInterval
		}
	}
}
