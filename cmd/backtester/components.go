package main

import (
	"fmt"

	"github.com/newthinker/backtester/internal/client"
	"github.com/newthinker/backtester/internal/config"
	"github.com/newthinker/backtester/internal/metrics"
	"github.com/newthinker/backtester/internal/pipeline"
	"github.com/newthinker/backtester/internal/storage/archive"
	"go.uber.org/zap"
)

// newRunner wires the service client, optional report archive and
// optional metrics into a pipeline runner.
func newRunner(cfg *config.Config, baseURL string, reg *metrics.Registry, log *zap.Logger) (*pipeline.Runner, error) {
	clientOpts := []client.Option{client.WithLogger(log)}
	runnerOpts := []pipeline.Option{pipeline.WithLogger(log)}
	if reg != nil {
		clientOpts = append(clientOpts, client.WithRecorder(reg))
		runnerOpts = append(runnerOpts, pipeline.WithObserver(reg))
	}

	reports, err := openReports(cfg)
	if err != nil {
		return nil, err
	}
	if reports != nil {
		runnerOpts = append(runnerOpts, pipeline.WithReports(reports))
		log.Info("archiving reports", zap.String("type", cfg.Archive.Type))
	}

	c := client.New(baseURL, clientOpts...)
	log.Debug("backtest service", zap.String("endpoint", c.Endpoint()))

	return pipeline.NewRunner(c, runnerOpts...), nil
}

// openReports opens the configured report archive, or returns nil when
// archiving is off.
func openReports(cfg *config.Config) (*archive.Reports, error) {
	store, err := archive.Open(archive.Config{
		Type: cfg.Archive.Type,
		Path: cfg.Archive.Path,
		S3: archive.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if store == nil {
		return nil, nil
	}
	return archive.NewReports(store), nil
}
