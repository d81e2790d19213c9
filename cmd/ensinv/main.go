// Command ensinv runs the GRIB2 ensemble inventory service: it consumes
// decoded GRIB record documents from Kafka, labels their ensemble metadata,
// and publishes wgrib2-style inventory lines to the sink topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/grib-ensemble-inventory/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grib-ensemble-inventory/internal/adapter/kafka"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/config"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/observability"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	decoder := domain.NewDecoder(cfg.LabelStyle, logger)
	logger.Info("ensemble decoder ready", "label_style", cfg.LabelStyle)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(decoder, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, decoder, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete", "ensemble_corrections", decoder.Corrections())
}
