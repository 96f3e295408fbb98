package stub

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/indicator"
)

// paramError is answered with 422, like a backend rejecting a query value.
type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s must be a number", e.name)
}

func floatParam(q url.Values, name string) (float64, error) {
	v, err := strconv.ParseFloat(q.Get(name), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &paramError{name: name}
	}
	return v, nil
}

func intParam(q url.Values, name string) (int, error) {
	v, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return 0, &paramError{name: name}
	}
	return v, nil
}

// simulate runs the strategy over bars using its query parameters.
func simulate(st core.Strategy, bars []bar, q url.Values) ([]trade, []core.EquityPoint, error) {
	switch st {
	case core.StrategyMovingAverage:
		short, err := intParam(q, "short_window")
		if err != nil {
			return nil, nil, err
		}
		long, err := intParam(q, "long_window")
		if err != nil {
			return nil, nil, err
		}
		trades, curve := movingAverage(bars, short, long)
		return trades, curve, nil

	case core.StrategyRSIMeanReversion:
		window, err := intParam(q, "rsi_window")
		if err != nil {
			return nil, nil, err
		}
		buy, err := floatParam(q, "buy_threshold")
		if err != nil {
			return nil, nil, err
		}
		sell, err := floatParam(q, "sell_threshold")
		if err != nil {
			return nil, nil, err
		}
		trades, curve := rsiMeanReversion(bars, window, buy, sell)
		return trades, curve, nil
	}

	threshold, err := floatParam(q, "threshold")
	if err != nil {
		return nil, nil, err
	}
	holding, err := intParam(q, "holding_period")
	if err != nil {
		return nil, nil, err
	}
	trades, curve := thresholdCross(bars, threshold, holding)
	return trades, curve, nil
}

// thresholdCross opens a position on every bar closing above threshold and
// exits holding bars later, or on the last bar. Equity books the PnL on entry.
func thresholdCross(bars []bar, threshold float64, holding int) ([]trade, []core.EquityPoint) {
	trades := []trade{}
	curve := make([]core.EquityPoint, 0, len(bars))
	var equity float64

	for i, b := range bars {
		if b.close > threshold {
			exit := bars[min(i+max(holding, 0), len(bars)-1)]
			t := roundTrip(b, exit)
			trades = append(trades, t)
			equity = round2(equity + t.PnL)
		}
		curve = append(curve, core.EquityPoint{Date: b.date, Price: b.close, Equity: equity})
	}
	return trades, curve
}

// movingAverage goes long on a golden cross and flat on a death cross.
// Bars before both averages exist are dropped from the curve.
func movingAverage(bars []bar, short, long int) ([]trade, []core.EquityPoint) {
	trades := []trade{}
	if short <= 0 || long <= 0 {
		return trades, nil
	}

	closes := closesOf(bars)
	shortMA := indicator.SMA(closes, short)
	longMA := indicator.SMA(closes, long)

	warmup := max(short, long) - 1
	if len(bars) <= warmup {
		return trades, nil
	}
	// align both averages to bars[warmup:]
	shortMA = shortMA[warmup-(short-1):]
	longMA = longMA[warmup-(long-1):]
	bars = bars[warmup:]

	curve := make([]core.EquityPoint, 0, len(bars))
	var equity float64
	var entry *bar

	for i := 1; i < len(bars); i++ {
		prevUp := shortMA[i-1] > longMA[i-1]
		b := bars[i]

		switch {
		case shortMA[i] > longMA[i] && !prevUp && entry == nil:
			entry = &bars[i]
		case shortMA[i] < longMA[i] && shortMA[i-1] >= longMA[i-1] && entry != nil:
			t := roundTrip(*entry, b)
			trades = append(trades, t)
			equity = round2(equity + t.PnL)
			entry = nil
		}
		curve = append(curve, core.EquityPoint{Date: b.date, Price: b.close, Equity: equity})
	}
	return trades, curve
}

// rsiMeanReversion buys below buy and sells above sell. Bars without an
// RSI value are dropped from the curve.
func rsiMeanReversion(bars []bar, window int, buy, sell float64) ([]trade, []core.EquityPoint) {
	trades := []trade{}
	rsi := indicator.RSI(closesOf(bars), window)
	if len(rsi) == 0 {
		return trades, nil
	}
	bars = bars[window:]

	curve := make([]core.EquityPoint, 0, len(bars))
	var equity float64
	var entry *bar

	for i, b := range bars {
		r := rsi[i]
		if math.IsNaN(r) {
			continue
		}
		switch {
		case r < buy && entry == nil:
			entry = &bars[i]
		case r > sell && entry != nil:
			t := roundTrip(*entry, b)
			trades = append(trades, t)
			equity = round2(equity + t.PnL)
			entry = nil
		}
		curve = append(curve, core.EquityPoint{Date: b.date, Price: b.close, Equity: equity})
	}
	return trades, curve
}

func roundTrip(entry, exit bar) trade {
	return trade{
		EntryDate:  entry.date,
		EntryPrice: entry.close,
		ExitDate:   exit.date,
		ExitPrice:  exit.close,
		PnL:        round2(exit.close - entry.close),
	}
}

func closesOf(bars []bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.close
	}
	return out
}
