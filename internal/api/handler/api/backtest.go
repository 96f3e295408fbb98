// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/newthinker/btdesk/internal/api/response"
	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/form"
	"go.uber.org/zap"
)

// Backend is the part of the backtest client the JSON API needs.
type Backend interface {
	Run(ctx context.Context, req core.Request) (*core.Result, error)
	Prices(ctx context.Context, symbol string) ([]core.PricePoint, error)
}

// ValidationRecorder counts rejected submissions.
type ValidationRecorder interface {
	RecordValidationFailure(strategy string)
}

// BacktestHandler proxies backtest and price requests to the backend after
// validating them the same way the form does.
type BacktestHandler struct {
	backend  Backend
	recorder ValidationRecorder
	logger   *zap.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(backend Backend, recorder ValidationRecorder, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{backend: backend, recorder: recorder, logger: logger}
}

// Get runs a backtest for the path symbol with the query's strategy,
// dates and parameters.
func (h *BacktestHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Set(form.KeySymbol, r.PathValue("symbol"))

	f, err := form.FromValues(q)
	if err != nil {
		h.reject(w, q.Get(form.KeyStrategy), core.WithMessage(core.ErrValidation, err.Error()))
		return
	}

	req, err := f.Submit()
	if err != nil {
		h.reject(w, string(f.Strategy()), err)
		return
	}

	result, err := h.backend.Run(r.Context(), req)
	if err != nil {
		h.logger.Warn("backtest proxy failed",
			zap.String("symbol", req.Symbol),
			zap.String("strategy", string(req.Strategy)),
			zap.Error(err),
		)
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Prices returns the backend's close series for the path symbol.
func (h *BacktestHandler) Prices(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		response.Error(w, http.StatusBadRequest, core.WithMessage(core.ErrValidation, form.MsgRequired))
		return
	}

	points, err := h.backend.Prices(r.Context(), symbol)
	if err != nil {
		h.logger.Warn("prices proxy failed", zap.String("symbol", symbol), zap.Error(err))
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"prices": points,
	})
}

func (h *BacktestHandler) reject(w http.ResponseWriter, strategy string, err error) {
	if h.recorder != nil {
		h.recorder.RecordValidationFailure(strategy)
	}
	if !errors.Is(err, core.ErrValidation) {
		err = core.WrapError(core.ErrValidation, err)
	}
	response.Error(w, http.StatusBadRequest, err)
}
