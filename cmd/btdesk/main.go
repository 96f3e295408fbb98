package main

import (
	"fmt"
	"os"

	"github.com/newthinker/btdesk/internal/client"
	"github.com/newthinker/btdesk/internal/config"
	"github.com/newthinker/btdesk/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "btdesk",
	Short: "btdesk - backtest desk",
	Long: `btdesk is a front end for a strategy backtest service.
It collects a strategy, symbol and date range, asks the backend to run
the backtest and shows the equity curve, performance summary and trades
in a browser, a terminal UI or on the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise defaults plus
// BTDESK_* environment overrides, and validates the result.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Development: cfg.Log.Development,
		Level:       cfg.Log.Level,
	})
}

func newClient(cfg *config.Config, log *zap.Logger, opts ...client.Option) (*client.Client, error) {
	opts = append([]client.Option{client.WithLogger(log)}, opts...)
	c, err := client.New(cfg.Backend.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	return c, nil
}
