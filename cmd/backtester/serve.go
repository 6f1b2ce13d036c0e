package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/backtester/internal/api"
	"github.com/newthinker/backtester/internal/logger"
	"github.com/newthinker/backtester/internal/metrics"
	"github.com/newthinker/backtester/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const pruneInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the backtester web UI",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log, err := logger.New(debug, logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	log.Info("starting backtester server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Service.BaseURL),
	)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	runner, err := newRunner(cfg, cfg.Service.BaseURL, reg, log)
	if err != nil {
		return err
	}

	sessions := session.NewStore(cfg.Session.MaxSessions, cfg.Session.TTL)

	srvCfg := api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TemplatesDir: cfg.Server.TemplatesDir,
	}
	if cfg.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Metrics.Path
	}

	server, err := api.NewServer(srvCfg, api.Dependencies{
		Runner:   runner,
		Sessions: sessions,
		Metrics:  reg,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go pruneSessions(ctx, sessions, reg, log)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down backtester server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	runner.Wait()
	return err
}

// pruneSessions drops expired sessions until ctx is done.
func pruneSessions(ctx context.Context, sessions *session.Store, reg *metrics.Registry, log *zap.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(); n > 0 {
				log.Debug("pruned sessions", zap.Int("count", n))
			}
			if reg != nil {
				reg.SetSessionsActive(sessions.Len())
			}
		}
	}
}
