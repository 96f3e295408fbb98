package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/btdesk/internal/api"
	"github.com/newthinker/btdesk/internal/client"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var templatesDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser UI server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&templatesDir, "templates", "", "load page templates from this directory instead of the embedded ones")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults and environment")
	}

	var reg *metrics.Registry
	var clientOpts []client.Option
	metricsPath := ""
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		clientOpts = append(clientOpts, client.WithRecorder(reg))
		metricsPath = cfg.Metrics.Path
	}

	backend, err := newClient(cfg, log, clientOpts...)
	if err != nil {
		return err
	}

	variant, err := layout.VariantByName(cfg.Layout.Variant)
	if err != nil {
		return err
	}

	log.Info("starting btdesk server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("backend", backend.BaseURL()),
		zap.String("layout", variant.Name),
	)

	// Create API server
	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TemplatesDir: templatesDir,
		APIKey:       cfg.Server.APIKey,
		Variant:      variant,
		SessionTTL:   cfg.Server.SessionTTL(),
		MaxSessions:  cfg.Server.MaxSessions,
		MetricsPath:  metricsPath,
	}, api.Dependencies{
		Backend: backend,
		Metrics: reg,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
		return err
	case <-quit:
	}

	log.Info("shutting down btdesk server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
