package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Strategy identifies a backend trading strategy
type Strategy string

const (
	StrategyThresholdCross   Strategy = "threshold_cross"
	StrategyMovingAverage    Strategy = "moving_average"
	StrategyRSIMeanReversion Strategy = "rsi_mean_reversion"
)

// Strategies lists the selectable strategies in display order
var Strategies = []Strategy{StrategyThresholdCross, StrategyMovingAverage, StrategyRSIMeanReversion}

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy: %q", s)
}

// Request is a validated backtest request ready to send to the backend.
// Params holds exactly the parameter set of Strategy under snake_case keys.
type Request struct {
	Symbol    string
	Strategy  Strategy
	StartDate string
	EndDate   string
	Params    map[string]string
}

// Query flattens the request into backend query parameters
func (r Request) Query() url.Values {
	q := url.Values{}
	q.Set("strategy", string(r.Strategy))
	q.Set("start_date", r.StartDate)
	q.Set("end_date", r.EndDate)
	for k, v := range r.Params {
		q.Set(k, v)
	}
	return q
}

// EquityPoint is one sample of the equity curve
type EquityPoint struct {
	Date   string  `json:"date" yaml:"date"`
	Price  float64 `json:"price" yaml:"price"`
	Equity float64 `json:"equity" yaml:"equity"`
}

// Trade is a closed round trip reported by the backend.
// Money fields keep the backend's exact precision.
type Trade struct {
	EntryDate  string          `json:"entry_date" yaml:"entry_date"`
	ExitDate   string          `json:"exit_date" yaml:"exit_date"`
	EntryPrice decimal.Decimal `json:"entry_price" yaml:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price" yaml:"exit_price"`
	PnL        decimal.Decimal `json:"pnl" yaml:"pnl"`
}

// MarshalJSON writes money fields as JSON numbers, as the backend sends them.
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EntryDate  string      `json:"entry_date"`
		ExitDate   string      `json:"exit_date"`
		EntryPrice json.Number `json:"entry_price"`
		ExitPrice  json.Number `json:"exit_price"`
		PnL        json.Number `json:"pnl"`
	}{
		EntryDate:  t.EntryDate,
		ExitDate:   t.ExitDate,
		EntryPrice: json.Number(t.EntryPrice.String()),
		ExitPrice:  json.Number(t.ExitPrice.String()),
		PnL:        json.Number(t.PnL.String()),
	})
}

// SummaryEntry is one labelled performance figure
type SummaryEntry struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Summary is the performance summary in backend order
type Summary []SummaryEntry

// UnmarshalJSON decodes a JSON object keeping key order.
// String values are kept verbatim, other values as their JSON text.
func (s *Summary) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("performance_summary: expected object, got %v", tok)
	}

	var out Summary
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("performance_summary: unexpected key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("performance_summary[%s]: %w", label, err)
		}
		out = append(out, SummaryEntry{Label: label, Value: summaryValue(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// MarshalJSON encodes the summary as an ordered JSON object
func (s Summary) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value for a label
func (s Summary) Get(label string) (string, bool) {
	for _, e := range s {
		if e.Label == label {
			return e.Value, true
		}
	}
	return "", false
}

func summaryValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err == nil {
			return str
		}
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return strings.TrimSpace(string(trimmed))
}

// Result is the backtest response rendered by the front ends
type Result struct {
	Symbol      string        `json:"symbol" yaml:"symbol"`
	Strategy    string        `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Period      string        `json:"period,omitempty" yaml:"period,omitempty"`
	Summary     Summary       `json:"performance_summary" yaml:"performance_summary"`
	Trades      []Trade       `json:"trades" yaml:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve" yaml:"equity_curve"`
}

// PricePoint is a stored daily bar served by the backend
type PricePoint struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}
