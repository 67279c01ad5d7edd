package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/city-locator/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/city-locator/internal/adapter/kafka"
	"github.com/couchcryptid/city-locator/internal/app"
	"github.com/couchcryptid/city-locator/internal/config"
	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/couchcryptid/city-locator/internal/locator"
	"github.com/couchcryptid/city-locator/internal/observability"
	"github.com/couchcryptid/city-locator/internal/pipeline"
)

const pipelineBuffer = 64

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geocoder, err := app.NewGeocoder(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to create geocoder", "error", err)
		os.Exit(1)
	}

	provider, err := app.NewProvider(cfg, logger)
	if err != nil {
		logger.Error("failed to create provider", "error", err)
		os.Exit(1)
	}

	l := app.NewLocator(cfg, provider, geocoder, metrics, logger)
	resolver := locator.NewResolver(geocoder, cfg.GeocodeTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolved cities are published only when KAFKA_BROKERS is set.
	var (
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
		onCity locator.FinishHandler
	)
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		p = pipeline.New(writer, logger, metrics, pipelineBuffer)
		onCity = func(city domain.ResolvedCity) { p.Submit(city) }
		logger.Info("publishing resolved cities", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka publishing disabled")
	}

	client := locator.NewClient(l, onCity)

	ready := httpadapter.ReadinessFunc(func(ctx context.Context) error {
		if !provider.Enabled() {
			return errors.New("location services disabled")
		}
		if p != nil {
			return p.CheckReadiness(ctx)
		}
		return nil
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:         ready,
		Resolver:      resolver,
		Locator:       client,
		AMap:          app.AMapOptions(cfg),
		LocateTimeout: cfg.LocateTimeout,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	l.Stop()
	l.Wait()
	if err := provider.Close(); err != nil {
		logger.Error("provider close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
