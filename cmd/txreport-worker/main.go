package main

import (
	"context"
	"errors"
	"time"

	"txreport/internal/amqp"
	"txreport/internal/backend"
	"txreport/internal/cli"
	"txreport/internal/core"
	applog "txreport/internal/log"
	"txreport/internal/services"
	"txreport/internal/sources"
	"txreport/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	cli.Banner(logger, cfg)

	logger.Info("Starting txreport-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	// A memory store lives in one process; seeding it from here would be
	// invisible to the API.
	if !backendCfg.Type.Durable() {
		cli.Fatal(logger, "Worker needs a shared backend", errors.New("DATA_BACKEND must be sqlite, postgres or mongo"),
			applog.FieldBackend, cfg.DataBackend)
	}
	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker needs a broker", errors.New("AMQP_URL is required"))
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	store, err := backend.NewFactory(logger.Logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, applog.FieldBackend, cfg.DataBackend)
	}

	source, err := sources.FromConfig(startCtx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize seed source", err, applog.FieldSource, cfg.SeedSource)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	seeder := services.NewSeedService(source, store.Store, amqpClient, cfg.SeedTimeout)
	seedLog := applog.NewStructuredLogger(logger.WithComponent(applog.ComponentSeed))
	seeder.OnSeeded(func(ctx context.Context, r core.SeedResult) {
		seedLog.LogSeedCompleted(ctx, r.RunID, r.Source, r.Count, r.Duration.Milliseconds())
	})
	seedWorker := worker.NewSeedWorker(seeder, store.Store, cfg.SeedInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Performing startup seed check...")
	if err := seedWorker.StartupSeedCheck(ctx); err != nil {
		// The consumer and the next tick can still seed.
		logger.Error("Startup seed check failed", applog.FieldError, err)
	}

	go seedWorker.RunPeriodic(ctx)

	go func() {
		err := amqpClient.ConsumeSeedRequests(ctx, seedWorker.HandleSeedRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Seed request consumption failed", applog.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
