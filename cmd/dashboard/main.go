package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/pandora-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pandora-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/pandora-dashboard/internal/adapter/pandora"
	"github.com/couchcryptid/pandora-dashboard/internal/config"
	"github.com/couchcryptid/pandora-dashboard/internal/dashboard"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
	"github.com/couchcryptid/pandora-dashboard/internal/pipeline"
)

const (
	sweepInterval = time.Minute

	// Fetch events buffered per batch before new ones are dropped.
	queueBatches = 20
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := pandora.NewClient(cfg.PandoraAPIURL, cfg.PandoraAPITimeout, metrics, logger)
	logger.Info("measurement api configured", "url", cfg.PandoraAPIURL, "timeout", cfg.PandoraAPITimeout)

	// Fetch events are feature-flagged via FETCH_EVENTS_ENABLED.
	var (
		source domain.MeasurementSource = client
		events *pipeline.Pipeline
		writer *kafkaadapter.Writer
	)
	if cfg.FetchEventsEnabled {
		queue := pipeline.NewQueue(cfg.BatchSize*queueBatches, cfg.BatchFlushInterval, metrics)
		writer = kafkaadapter.NewWriter(cfg, logger)
		events = pipeline.New(queue, writer, logger, metrics, cfg.BatchSize)
		source = pipeline.NewRecorder(client, queue)
		logger.Info("fetch events enabled", "topic", cfg.FetchEventsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("fetch events disabled")
	}
	registry := dashboard.NewRegistry(dashboard.Deps{
		Source:      source,
		MarkerDelay: cfg.MarkerColorDelay,
		Metrics:     metrics,
		Logger:      logger,
	}, cfg.SessionIdleTimeout)

	srv := httpadapter.NewServer(cfg.HTTPAddr, client, registry, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return registry.Run(gctx, sweepInterval)
	})

	if events != nil {
		g.Go(func() error {
			return events.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	waitErr := g.Wait()
	if waitErr != nil {
		logger.Error("service stopped with error", "error", waitErr)
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if waitErr != nil {
		stop()
		os.Exit(1)
	}
}
