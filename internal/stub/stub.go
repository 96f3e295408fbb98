// Package stub provides a canned stand-in for the backtest backend.
// It reproduces the backend's endpoints and response shapes, running the
// three strategies over a deterministic synthetic price series.
package stub

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/btdesk/internal/core"
)

const (
	dateLayout      = "2006-01-02"
	startingCapital = 10000.0
	// maxPoints caps the synthetic series length.
	maxPoints = 2000
)

// Handler serves /health, /backtest/{symbol} and /prices/{symbol}.
type Handler struct {
	mux *http.ServeMux

	mu         sync.Mutex
	calls      []*url.URL
	failStatus int
	failDetail string
	emptyCurve bool
}

// Option configures the stub.
type Option func(*Handler)

// FailWith makes every backtest call answer with status and detail.
func FailWith(status int, detail string) Option {
	return func(h *Handler) {
		h.failStatus = status
		h.failDetail = detail
	}
}

// EmptyCurve makes backtest responses carry no equity curve or trades.
func EmptyCurve() Option {
	return func(h *Handler) { h.emptyCurve = true }
}

// New creates a stub backend.
func New(opts ...Option) *Handler {
	h := &Handler{mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /backtest/{symbol}", h.backtest)
	h.mux.HandleFunc("GET /prices/{symbol}", h.prices)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Calls returns the URLs of every backtest request received, oldest first.
func (h *Handler) Calls() []*url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*url.URL, len(h.calls))
	copy(out, h.calls)
	return out
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type trade struct {
	EntryDate  string  `json:"entry_date"`
	EntryPrice float64 `json:"entry_price"`
	ExitDate   string  `json:"exit_date"`
	ExitPrice  float64 `json:"exit_price"`
	PnL        float64 `json:"pnl"`
}

// summary keeps the backend's label order.
type summary struct {
	TotalPnL         float64 `json:"Total PnL"`
	AnnualizedReturn string  `json:"Annualized Return"`
	MaxDrawdown      string  `json:"Max Drawdown"`
	WinProbability   string  `json:"Win Probability"`
}

type backtestResponse struct {
	Symbol      string             `json:"symbol"`
	Strategy    string             `json:"strategy"`
	Period      string             `json:"period"`
	Summary     summary            `json:"performance_summary"`
	Trades      []trade            `json:"trades"`
	EquityCurve []core.EquityPoint `json:"equity_curve"`
}

func (h *Handler) backtest(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	u := *r.URL
	h.calls = append(h.calls, &u)
	failStatus, failDetail, empty := h.failStatus, h.failDetail, h.emptyCurve
	h.mu.Unlock()

	if failStatus != 0 {
		writeDetail(w, failStatus, failDetail)
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	q := r.URL.Query()

	strategy := q.Get("strategy")
	if strategy == "" {
		strategy = string(core.StrategyThresholdCross)
	}
	st, err := core.ParseStrategy(strategy)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid strategy name")
		return
	}

	start, err := time.Parse(dateLayout, q.Get("start_date"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, q.Get("end_date"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "end_date must be YYYY-MM-DD")
		return
	}

	bars := series(symbol, start, end)
	if len(bars) == 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("No data available for %s in selected range.", symbol))
		return
	}

	trades, curve, err := simulate(st, bars, q)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := backtestResponse{
		Symbol:   symbol,
		Strategy: strategy,
		Period:   fmt.Sprintf("%s → %s", start.Format(dateLayout), end.Format(dateLayout)),
		Trades:   []trade{},
	}
	if !empty {
		resp.Trades, resp.EquityCurve = trades, curve
	}
	resp.Summary = summarize(resp.Trades, resp.EquityCurve, start, end)

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	bars := series(symbol, end.AddDate(0, 0, -30), end)

	out := make([]core.PricePoint, 0, len(bars))
	for i, b := range bars {
		out = append(out, core.PricePoint{
			Symbol: symbol,
			Date:   b.date,
			Open:   round2(b.close * 0.995),
			High:   round2(b.close * 1.01),
			Low:    round2(b.close * 0.99),
			Close:  b.close,
			Volume: int64(1_000_000 + 10_000*i),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type bar struct {
	date  string
	close float64
}

// series produces weekday closes between start and end inclusive.
// The price path depends only on the symbol and the bar index.
func series(symbol string, start, end time.Time) []bar {
	var seed float64
	for _, c := range symbol {
		seed += float64(c)
	}
	base := 50 + math.Mod(seed, 150)

	var bars []bar
	for d := start; !d.After(end) && len(bars) < maxPoints; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		i := float64(len(bars))
		price := base + 0.05*i + 5*math.Sin(i/7)
		bars = append(bars, bar{date: d.Format(dateLayout), close: round2(price)})
	}
	return bars
}

func summarize(trades []trade, curve []core.EquityPoint, start, end time.Time) summary {
	var total float64
	var wins int
	for _, t := range trades {
		total += t.PnL
		if t.PnL > 0 {
			wins++
		}
	}

	var winRate float64
	if len(trades) > 0 {
		winRate = float64(wins) / float64(len(trades)) * 100
	}

	days := math.Max(end.Sub(start).Hours()/24, 1)
	cagr := (math.Pow((startingCapital+total)/startingCapital, 252/days) - 1) * 100

	var peak, maxDD float64
	for i, p := range curve {
		capital := startingCapital + p.Equity
		if i == 0 || capital > peak {
			peak = capital
		}
		if dd := (capital - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}

	return summary{
		TotalPnL:         round2(total),
		AnnualizedReturn: fmt.Sprintf("%.2f%%", cagr),
		MaxDrawdown:      fmt.Sprintf("%.2f%%", maxDD*100),
		WinProbability:   fmt.Sprintf("%.1f%%", winRate),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
