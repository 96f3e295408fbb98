package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/form"
	"github.com/newthinker/btdesk/internal/present"
	"github.com/newthinker/btdesk/internal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	runOutput string
	runFields = map[string]*string{}
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest and print the result",
	Long: `Run validates the inputs exactly like the browser form, sends one
backtest request and prints the performance summary and trades.`,
	Example: `  btdesk run --strategy moving_average --symbol SPY \
    --start-date 2023-01-01 --end-date 2023-12-31 \
    --short-window 20 --long-window 50`,
	RunE: runBacktest,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runOutput, "output", "o", "table", "output format: table, json or yaml")

	bind := func(key, usage string) {
		v := new(string)
		runFields[key] = v
		flags.StringVar(v, strings.ReplaceAll(key, "_", "-"), "", usage)
	}
	bind(form.KeyStrategy, "strategy: "+strings.Join(strategyNames(), ", ")+" (default threshold_cross)")
	bind(form.KeySymbol, "ticker symbol")
	bind(form.KeyStartDate, "start date YYYY-MM-DD")
	bind(form.KeyEndDate, "end date YYYY-MM-DD")
	for _, spec := range form.Specs() {
		for _, f := range spec.Fields {
			bind(f.Key, fmt.Sprintf("%s (%s)", f.Label, spec.Name))
		}
	}

	rootCmd.AddCommand(runCmd)
}

func strategyNames() []string {
	names := make([]string, len(core.Strategies))
	for i, s := range core.Strategies {
		names[i] = string(s)
	}
	return names
}

func runBacktest(cmd *cobra.Command, args []string) error {
	switch runOutput {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", runOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	backend, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	f := form.New()
	for key, v := range runFields {
		if *v == "" {
			continue
		}
		if f, err = f.Set(key, *v); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := session.NewController(backend, log)
	view, err := ctrl.Run(ctx, session.NewView().WithForm(f))
	if err != nil {
		if view.Notice == nil {
			return err
		}
		if errors.Is(err, core.ErrValidation) {
			return errors.New(view.Notice.Message)
		}
		return fmt.Errorf("%s (%w)", view.Notice.Message, err)
	}

	return writeResult(cmd.OutOrStdout(), view.Result, runOutput)
}

func writeResult(w io.Writer, r *core.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(r)
	}
	return writeTable(w, r)
}

func writeTable(w io.Writer, r *core.Result) error {
	fmt.Fprintf(w, "=== %s Performance ===\n", r.Symbol)
	fmt.Fprintf(w, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(w, "Period:   %s\n", r.Period)
	if present.HasChart(r) {
		fmt.Fprintf(w, "Equity:   %s\n", present.Sparkline(present.Series(r.EquityCurve, true), 60))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Performance Summary")
	rows := present.SummaryRows(r)
	if len(rows) == 0 {
		fmt.Fprintln(tw, present.NoStats)
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.Label, row.Value)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Trade History")
	trades := present.TradeRows(r)
	if len(trades) == 0 {
		fmt.Fprintln(tw, present.NoTrades)
		return tw.Flush()
	}
	fmt.Fprintln(tw, "  Entry Date\tExit Date\tEntry Price\tExit Price\tPnL ($)")
	for _, t := range trades {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", t.EntryDate, t.ExitDate, t.EntryPrice, t.ExitPrice, t.PnL)
	}
	return tw.Flush()
}
