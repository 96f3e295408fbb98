// Package present turns a backtest result into display-ready rows and
// chart geometry shared by the browser and terminal front ends.
package present

import (
	"github.com/dustin/go-humanize"
	"github.com/newthinker/btdesk/internal/core"
)

// Placeholder is shown instead of the chart when there is nothing to plot.
const Placeholder = "Run a backtest to view the chart."

// Empty-section notes under a plotted result.
const (
	NoStats  = "No statistics yet."
	NoTrades = "No trades executed."
)

var tooltips = map[string][]string{
	"Total PnL": {
		"Total profit or loss over the entire backtest period",
		"Sum of all individual trade PnLs",
	},
	"Annualized Return": {
		"Compound annual growth rate based on total portfolio value.",
		"Formula: ((Final / Initial) ^ (252 / N)) − 1",
	},
	"Max Drawdown": {
		"Largest drop from a peak to a trough in cumulative PnL",
		"Maximum risk exposure or loss from the highest point",
	},
	"Win Probability": {
		"Percentage of profitable trades",
		"(Winning Trades / Total Trades) × 100%",
	},
}

var noTooltip = []string{"No description available."}

// HasChart reports whether the result carries an equity curve to plot.
func HasChart(r *core.Result) bool {
	return r != nil && len(r.EquityCurve) > 0
}

// SummaryRow is one performance figure with its explanation.
type SummaryRow struct {
	Label   string
	Value   string
	Tooltip []string
}

// SummaryRows lists the performance summary in backend order.
func SummaryRows(r *core.Result) []SummaryRow {
	if r == nil {
		return nil
	}
	rows := make([]SummaryRow, 0, len(r.Summary))
	for _, e := range r.Summary {
		tip, ok := tooltips[e.Label]
		if !ok {
			tip = noTooltip
		}
		rows = append(rows, SummaryRow{Label: e.Label, Value: e.Value, Tooltip: tip})
	}
	return rows
}

// TradeRow is a formatted trade log line.
type TradeRow struct {
	EntryDate  string
	ExitDate   string
	EntryPrice string
	ExitPrice  string
	PnL        string
	Gain       bool
}

// TradeRows formats the trade log with two decimals.
func TradeRows(r *core.Result) []TradeRow {
	if r == nil {
		return nil
	}
	rows := make([]TradeRow, 0, len(r.Trades))
	for _, t := range r.Trades {
		rows = append(rows, TradeRow{
			EntryDate:  t.EntryDate,
			ExitDate:   t.ExitDate,
			EntryPrice: t.EntryPrice.StringFixed(2),
			ExitPrice:  t.ExitPrice.StringFixed(2),
			PnL:        t.PnL.StringFixed(2),
			Gain:       t.PnL.Sign() >= 0,
		})
	}
	return rows
}

// Money formats a value with thousands separators and two decimals.
func Money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
