// Command flashtrack interpolates a storm track, joins it to GLM scan files
// and counts the lightning flashes near the storm center at every scan.
// Configuration is read from the environment; see internal/config.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-flash-track/internal/adapter/export"
	"github.com/couchcryptid/storm-flash-track/internal/adapter/glm"
	httpadapter "github.com/couchcryptid/storm-flash-track/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-flash-track/internal/adapter/kafka"
	"github.com/couchcryptid/storm-flash-track/internal/adapter/plot"
	s3adapter "github.com/couchcryptid/storm-flash-track/internal/adapter/s3"
	"github.com/couchcryptid/storm-flash-track/internal/config"
	"github.com/couchcryptid/storm-flash-track/internal/observability"
	"github.com/couchcryptid/storm-flash-track/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("flashtrack failed", "error", err)
		os.Exit(1)
	}
}

// run executes one pipeline pass and, when SERVE is set, keeps serving
// health, metrics and rerun requests until a shutdown signal arrives.
func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scan files are fetched from object storage only when FETCH_ENABLED is set;
	// otherwise DATA_DIR must already hold them.
	var fetcher pipeline.ScanFetcher
	var s3Fetcher *s3adapter.Fetcher
	if cfg.FetchEnabled {
		client, err := s3adapter.NewClient(ctx, cfg.S3Region)
		if err != nil {
			return err
		}
		s3Fetcher = s3adapter.NewFetcher(client, s3adapter.FetcherConfig{
			Bucket:    cfg.S3Bucket,
			Product:   cfg.S3Product,
			DataDir:   cfg.DataDir,
			RateLimit: cfg.S3RateLimit,
		}, logger, metrics)
		fetcher = s3Fetcher
		logger.Info("scan fetch enabled", "bucket", cfg.S3Bucket, "product", cfg.S3Product)
	}

	catalog := glm.NewDirCatalog(cfg.DataDir, logger)
	reader := glm.NewCachedReader(glm.NewNetCDFReader(), cfg.ScanCacheSize, metrics)
	aggregator := pipeline.NewAggregator(reader, cfg.CountMode, cfg.AggregateWorkers, logger, metrics)

	var loaders []pipeline.SeriesLoader
	if cfg.ExportCSV != "" || cfg.ExportJSON != "" {
		loaders = append(loaders, export.NewFileLoader(cfg.ExportCSV, cfg.ExportJSON, logger))
	}
	if cfg.PlotDir != "" {
		loaders = append(loaders, plot.NewLoader(cfg.PlotDir, logger))
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger, metrics)
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(catalog, fetcher, aggregator, loaders, logger, metrics)

	defer func() {
		if writer != nil {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
		if s3Fetcher != nil && cfg.PurgeData {
			if err := s3Fetcher.Purge(); err != nil {
				logger.Error("purge scan files", "error", err)
			}
		}
		logger.Info("shutdown complete")
	}()

	_, runErr := p.Run(ctx, cfg.Track)
	if !cfg.Serve {
		return runErr
	}

	// A failed first run is already logged and can be retried through POST /runs.
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, cfg.Track, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	return nil
}
