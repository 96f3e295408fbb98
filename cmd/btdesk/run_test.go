package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *core.Result {
	return &core.Result{
		Symbol:   "SPY",
		Strategy: "moving_average",
		Period:   "2023-01-02 → 2023-01-06",
		Summary: core.Summary{
			{Label: "Total PnL", Value: "-1.25"},
			{Label: "Max Drawdown", Value: "-0.5%"},
		},
		Trades: []core.Trade{{
			EntryDate:  "2023-01-02",
			ExitDate:   "2023-01-04",
			EntryPrice: decimal.RequireFromString("400.10"),
			ExitPrice:  decimal.RequireFromString("398.85"),
			PnL:        decimal.RequireFromString("-1.25"),
		}},
		EquityCurve: []core.EquityPoint{
			{Date: "2023-01-02", Price: 400.1, Equity: 10000},
			{Date: "2023-01-04", Price: 398.85, Equity: 9998.75},
		},
	}
}

func TestWriteResult_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), "table"))

	out := buf.String()
	assert.Contains(t, out, "=== SPY Performance ===")
	assert.Contains(t, out, "Total PnL")
	assert.Contains(t, out, "398.85")
	assert.Contains(t, out, "-1.25")
}

func TestWriteResult_TableEmpty(t *testing.T) {
	r := sampleResult()
	r.Summary, r.Trades, r.EquityCurve = nil, nil, nil

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, r, "table"))
	assert.Contains(t, buf.String(), "No statistics yet.")
	assert.Contains(t, buf.String(), "No trades executed.")
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), "json"))

	var back core.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "SPY", back.Symbol)
	assert.Equal(t, "Total PnL", back.Summary[0].Label)
	assert.True(t, back.Trades[0].PnL.Equal(decimal.RequireFromString("-1.25")))
	assert.Contains(t, buf.String(), `"pnl": -1.25`)
}

func TestWriteResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), "yaml"))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "SPY", back["symbol"])
	assert.Contains(t, buf.String(), "Max Drawdown")
}

func TestRunFlags_CoverEveryField(t *testing.T) {
	for _, key := range []string{"strategy", "symbol", "start_date", "end_date", "threshold", "holding_period", "short_window", "long_window", "rsi_window", "buy_threshold", "sell_threshold"} {
		assert.Contains(t, runFields, key)
	}
	assert.NotNil(t, runCmd.Flags().Lookup("start-date"))
	assert.NotNil(t, runCmd.Flags().Lookup("output"))
}
