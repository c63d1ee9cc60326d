// Package main is the entry point for the scrapeplane manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"scrapeplane/internal/bus"
	"scrapeplane/internal/calibrator"
	"scrapeplane/internal/cells"
	"scrapeplane/internal/config"
	"scrapeplane/internal/job"
	"scrapeplane/internal/logger"
	"scrapeplane/internal/manager"
	"scrapeplane/internal/manager/handlers"
	"scrapeplane/internal/observability"
	"scrapeplane/internal/progress"
	"scrapeplane/internal/store/postgres"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres (the "Store")
	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pg.Close()

	if *migrateFlag {
		slogger.Info("running database migrations")
		if err := postgres.Migrate(pg.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		slogger.Info("migrations completed")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "scrapeplane-manager", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slogger.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	// An observable gauge that queries the DB only when scraped.
	meter := otel.Meter("scrapeplane-manager")
	_, err = meter.Int64ObservableGauge("scrapeplane.jobs.active",
		metric.WithDescription("Current number of jobs in a non-terminal status"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := pg.CountActiveJobs(ctx)
			if err != nil {
				slogger.Warn("failed to count active jobs", "error", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		slogger.Warn("failed to register active jobs gauge", "error", err)
	}

	// Kafka bus: one shared writer, one reader per feedback topic.
	kafkaBus := bus.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaGroupID, slogger)
	defer kafkaBus.Close()

	// Wire the orchestration core.
	cal := calibrator.New(cfg.CalibratorURL)
	dispatcher := job.NewDispatcher(kafkaBus, pg, pg, cal, slogger)
	orchestrator := job.NewOrchestrator(pg, dispatcher, slogger)

	aggregator := progress.NewAggregator(pg, slogger)
	merger := cells.NewMerger(pg, slogger)
	consumer := progress.NewConsumer(kafkaBus, kafkaBus, aggregator, merger, slogger)

	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			slogger.Error("feedback consumers exited", "error", err)
		}
	}()

	// Start the HTTP API.
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	h := handlers.New(orchestrator, pg)
	srv := manager.New(addr, h, cfg, metricsHandler)

	slogger.Info("scrapeplane manager starting", "addr", addr)
	if err := srv.Run(ctx); err != nil {
		slogger.Error("server stopped", "error", err)
		os.Exit(1)
	}

	slogger.Info("manager exited")
}
