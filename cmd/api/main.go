package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/timetrack/internal/api"
	"example.com/timetrack/internal/app"
	"example.com/timetrack/internal/config"
	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/observability"
	"example.com/timetrack/internal/outbox"
	"example.com/timetrack/internal/recap"
	httptransport "example.com/timetrack/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := app.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	backend, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	var dispatcher *outbox.Dispatcher
	if cfg.KafkaEnabled && backend.Pool != nil {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithLogger(logger.With("component", "kafka")))
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(backend.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.With("component", "outbox")))
		go dispatcher.Start(ctx)
	} else if cfg.KafkaEnabled {
		logger.Warn("KAFKA_ENABLED requires the postgres store, track events are not published", "driver", cfg.StoreDriver)
	}

	service := domain.NewService(backend.Store)
	aggregator := recap.NewAggregator(backend.Store, recap.WithDefaultLocation(loc))

	mux := http.NewServeMux()
	api.NewHandler(service, aggregator, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		observability.RequestLogger(logger),
		httptransport.CORS(cfg.CORSOrigin),
		httptransport.StripTrailingSlash,
	))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", "address", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		logger.Info("timetrack api listening", "address", cfg.HTTPAddress, "store", cfg.StoreDriver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
