// internal/form/catalog.go
package form

import "github.com/newthinker/btdesk/internal/core"

// Field keys, as sent to the backend
const (
	KeyThreshold     = "threshold"
	KeyHoldingPeriod = "holding_period"
	KeyShortWindow   = "short_window"
	KeyLongWindow    = "long_window"
	KeyRSIWindow     = "rsi_window"
	KeyBuyThreshold  = "buy_threshold"
	KeySellThreshold = "sell_threshold"
)

// Shared field keys
const (
	KeySymbol    = "symbol"
	KeyStrategy  = "strategy"
	KeyStartDate = "start_date"
	KeyEndDate   = "end_date"
)

// MsgRequired is reported when symbol or dates are missing.
const MsgRequired = "Please fill out all required fields."

// FieldSpec describes one strategy parameter input.
type FieldSpec struct {
	Key         string
	Label       string
	Placeholder string
	Help        string
}

// StrategySpec describes a strategy as presented in the form.
type StrategySpec struct {
	Strategy    core.Strategy
	Name        string
	Description string
	Fields      []FieldSpec
	// Missing is the message shown when any of Fields is empty.
	Missing string
}

var catalog = map[core.Strategy]StrategySpec{
	core.StrategyThresholdCross: {
		Strategy:    core.StrategyThresholdCross,
		Name:        "Threshold Cross",
		Description: "Buys when the price exceeds a fixed threshold and holds the position for a set number of days.",
		Fields: []FieldSpec{
			{Key: KeyThreshold, Label: "Threshold", Placeholder: "e.g. 180", Help: "The price level that triggers a buy signal (e.g., 180)."},
			{Key: KeyHoldingPeriod, Label: "Hold Days", Placeholder: "e.g. 5", Help: "How long to hold the position before selling (e.g., 5)."},
		},
		Missing: "Please fill out Threshold Cross parameters.",
	},
	core.StrategyMovingAverage: {
		Strategy: core.StrategyMovingAverage,
		Name:     "Moving Average Crossover",
		Description: "Buys when a short-term moving average crosses above a long-term moving average " +
			"(\"Golden Cross\") and sells when it crosses below (\"Death Cross\").",
		Fields: []FieldSpec{
			{Key: KeyShortWindow, Label: "Short MA", Placeholder: "e.g. 20", Help: "Number of days for the short-term moving average (e.g., 20)."},
			{Key: KeyLongWindow, Label: "Long MA", Placeholder: "e.g. 50", Help: "Number of days for the long-term moving average (e.g., 50)."},
		},
		Missing: "Please fill out both moving average windows.",
	},
	core.StrategyRSIMeanReversion: {
		Strategy: core.StrategyRSIMeanReversion,
		Name:     "RSI Mean Reversion",
		Description: "Buys when the Relative Strength Index falls below an \"oversold\" level (e.g., 30) " +
			"and sells when it rises above an \"overbought\" level (e.g., 70).",
		Fields: []FieldSpec{
			{Key: KeyRSIWindow, Label: "RSI Window", Placeholder: "e.g. 14", Help: "The number of periods used to compute RSI (commonly 14)."},
			{Key: KeyBuyThreshold, Label: "Buy Threshold", Placeholder: "e.g. 30", Help: "RSI level that triggers a buy (typically below 30)."},
			{Key: KeySellThreshold, Label: "Sell Threshold", Placeholder: "e.g. 70", Help: "RSI level that triggers a sell (typically above 70)."},
		},
		Missing: "Please fill out all RSI parameters.",
	},
}

// Spec returns the presentation spec of a strategy.
func Spec(s core.Strategy) (StrategySpec, bool) {
	spec, ok := catalog[s]
	return spec, ok
}

// Specs returns every strategy spec in display order.
func Specs() []StrategySpec {
	specs := make([]StrategySpec, 0, len(core.Strategies))
	for _, s := range core.Strategies {
		specs = append(specs, catalog[s])
	}
	return specs
}

// ParamKeys lists every strategy-specific key across all strategies.
func ParamKeys() []string {
	var keys []string
	for _, spec := range Specs() {
		for _, f := range spec.Fields {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
