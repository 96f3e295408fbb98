package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/logger"
	"github.com/newthinker/btdesk/internal/session"
	"github.com/newthinker/btdesk/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the terminal UI",
	Long: `Start the terminal UI. The screen belongs to the UI, so logs go to
log.file when it is set and are discarded otherwise.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if cfg.Log.File != "" {
		log, err = logger.New(logger.Options{
			Development: cfg.Log.Development,
			Level:       cfg.Log.Level,
			OutputPaths: []string{cfg.Log.File},
		})
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
	}
	defer log.Sync()

	backend, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	variant, err := layout.VariantByName(cfg.Layout.Variant)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting terminal UI", zap.String("backend", backend.BaseURL()))

	ctrl := session.NewController(backend, log)
	p := tea.NewProgram(
		tui.New(ctx, ctrl, variant),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
