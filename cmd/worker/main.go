package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/spending-dashboard/internal/app"
	"github.com/dvloznov/spending-dashboard/internal/config"
	"github.com/dvloznov/spending-dashboard/internal/jobs"
	"github.com/dvloznov/spending-dashboard/internal/jobs/amqp"
	"github.com/dvloznov/spending-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/spending-dashboard/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required; without a broker the API server processes jobs itself")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	// job state is local to this process
	jobStore := inmemory.NewStore()
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.JobWorkers, jobStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
	}

	log.Info().
		Str("queue", cfg.AMQPQueue).
		Int("workers", cfg.JobWorkers).
		Msg("Starting worker service")

	if err := client.Start(ctx, jobs.NewIngestHandler(services.Ingest, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := client.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close AMQP client")
	}

	log.Info().Msg("Worker service exited")
}
