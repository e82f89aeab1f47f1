package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"txreport/internal/amqp"
	"txreport/internal/backend"
	"txreport/internal/cli"
	"txreport/internal/core"
	apphttp "txreport/internal/http"
	applog "txreport/internal/log"
	"txreport/internal/notify"
	"txreport/internal/ports"
	"txreport/internal/services"
	"txreport/internal/sources"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	cli.Banner(logger, cfg)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, applog.FieldBackend, cfg.DataBackend)
	}

	source, err := sources.FromConfig(startCtx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize seed source", err, applog.FieldSource, cfg.SeedSource)
	}

	// The broker is optional: without it async seeding is refused and no
	// dataset events are published.
	var (
		amqpClient   *amqp.Client
		publisher    ports.DatasetEventPublisher
		seedRequests ports.SeedRequestPublisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without broker", applog.FieldError, err)
		} else {
			publisher, seedRequests = amqpClient, amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	seeder := services.NewSeedService(source, store.Store, publisher, cfg.SeedTimeout)
	reports := services.NewReportService(store.Store)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := notify.NewHub(seeder.LastSeed)
	hub.Start(hubCtx)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Reports:      reports,
		Seeder:       seeder,
		SeedRequests: seedRequests,
		Events:       http.HandlerFunc(hub.ServeWS),
		Health:       store.Store,
		Logger:       logger,
	}, apphttp.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxPerPage:     cfg.MaxPerPage,
		RateLimit:      cfg.RateLimit,
		CacheSize:      cfg.CacheSize,
		CacheTTL:       cfg.CacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	seedLog := applog.NewStructuredLogger(logger.WithComponent(applog.ComponentSeed))
	seeder.OnSeeded(func(ctx context.Context, r core.SeedResult) {
		srv.InvalidateReports()
		hub.BroadcastSeeded(ctx, r)
		seedLog.LogSeedCompleted(ctx, r.RunID, r.Source, r.Count, r.Duration.Milliseconds())
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		hubCancel()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting txreport server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldSource, source.Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
