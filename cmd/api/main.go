package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/api"
	"github.com/dvloznov/spending-dashboard/internal/api/handlers"
	"github.com/dvloznov/spending-dashboard/internal/api/middleware"
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
	if err := cfg.ValidateAuth(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var (
		publisher jobs.Publisher
		consumer  jobs.Consumer
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.JobWorkers, jobStore, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
		}
		// jobs run in cmd/worker; this process only publishes
		publisher = client
	} else {
		queue := inmemory.NewQueue(cfg.JobBufferSize, cfg.JobWorkers, jobStore, log)
		if err := queue.Start(workerCtx, jobs.NewIngestHandler(services.Ingest, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job worker")
		}
		publisher = queue
		consumer = queue
	}

	auth := middleware.NewAuthenticator(cfg.AuthSecret, cfg.TokenTTL, api.PublicPaths...)
	handler := api.NewHandler(api.Handlers{
		Convert:   handlers.NewConvertHandler(services.Normalizer, cfg.MaxUploadBytes, log),
		Uploads:   handlers.NewUploadsHandler(services.Ingest, publisher, cfg.MaxUploadBytes, log),
		Jobs:      handlers.NewJobsHandler(jobStore, log),
		Dashboard: handlers.NewDashboardHandler(services.Repo, cfg.Rules, log),
	}, log, auth)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("normalizer", cfg.Normalizer).
			Str("backend", cfg.DataBackend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()

	// Stop job queue and wait for in-flight jobs
	if consumer != nil {
		if err := consumer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job publisher")
	}

	log.Info().Msg("Server exited")
}
