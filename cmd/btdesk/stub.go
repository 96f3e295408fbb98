package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/btdesk/internal/metrics"
	"github.com/newthinker/btdesk/internal/stub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var stubAddr string

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve a canned backtest backend for local development",
	Long: `Serve deterministic synthetic backtests on the backend's routes
(/health, /backtest/{symbol}, /prices/{symbol}) so the front ends can be
exercised without the real service.`,
	RunE: runStub,
}

func init() {
	stubCmd.Flags().StringVar(&stubAddr, "addr", "127.0.0.1:8000", "listen address")
	rootCmd.AddCommand(stubCmd)
}

func runStub(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	srv := &http.Server{
		Addr:        stubAddr,
		Handler:     metrics.LoggingMiddleware(log)(stub.New()),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting stub backend", zap.String("addr", stubAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("stub server: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down stub backend")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
