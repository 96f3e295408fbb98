// internal/client/client.go
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/metrics"
	"go.uber.org/zap"
)

// DefaultBaseURL is where the backtest backend listens by default.
const DefaultBaseURL = "http://127.0.0.1:8000"

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// Recorder receives one observation per backtest round trip.
type Recorder interface {
	RecordBacktest(strategy, outcome string, duration float64)
}

// Client talks to the backtest backend over HTTP.
// Every call is a single attempt: no retry and no backoff.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("parsing base url: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("base url must be http(s)://host, got %q", baseURL))
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No timeout: a request runs until the backend answers.
		http:   &http.Client{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Run sends a validated request.
func (c *Client) Run(ctx context.Context, req core.Request) (*core.Result, error) {
	return c.FetchBacktest(ctx, req.Symbol, req.Query())
}

// FetchBacktest issues GET {base}/backtest/{symbol}?{params} and decodes
// the result. Failures are logged and returned to the caller.
func (c *Client) FetchBacktest(ctx context.Context, symbol string, params url.Values) (*core.Result, error) {
	strategy := params.Get("strategy")
	start := time.Now()

	var result core.Result
	err := c.get(ctx, "/backtest/"+url.PathEscape(symbol), params, &result)
	c.record(strategy, err, time.Since(start))

	if err != nil {
		c.logger.Error("fetching backtest",
			zap.String("symbol", symbol),
			zap.String("strategy", strategy),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("backtest received",
		zap.String("symbol", symbol),
		zap.String("strategy", strategy),
		zap.Int("equity_points", len(result.EquityCurve)),
		zap.Int("trades", len(result.Trades)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &result, nil
}

// Health checks GET {base}/health.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return core.WrapError(core.ErrBackendUnavailable, fmt.Errorf("health status %q", body.Status))
	}
	return nil
}

// Prices fetches the stored daily bars for a symbol.
func (c *Client) Prices(ctx context.Context, symbol string) ([]core.PricePoint, error) {
	var prices []core.PricePoint
	if err := c.get(ctx, "/prices/"+url.PathEscape(symbol), nil, &prices); err != nil {
		c.logger.Error("fetching prices", zap.String("symbol", symbol), zap.Error(err))
		return nil, err
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.WrapError(core.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return core.WrapError(core.ErrBackendStatus, &core.StatusError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrDecode, err)
	}
	return nil
}

// errorDetail extracts the backend's {"detail": ...} message when present.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) record(strategy string, err error, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordBacktest(strategy, outcome(err), elapsed.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, core.ErrBackendStatus):
		return metrics.OutcomeStatus
	case errors.Is(err, core.ErrDecode):
		return metrics.OutcomeDecode
	default:
		return metrics.OutcomeUnavailable
	}
}
