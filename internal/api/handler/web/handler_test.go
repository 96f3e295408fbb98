// internal/api/handler/web/handler_test.go
package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/btdesk/internal/client"
	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/present"
	"github.com/newthinker/btdesk/internal/session"
	"github.com/newthinker/btdesk/internal/stub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type harness struct {
	t        *testing.T
	mux      *http.ServeMux
	handler  *Handler
	sessions *session.Store
	backend  *stub.Handler
	cookie   *http.Cookie
}

func newHarness(t *testing.T, opts ...stub.Option) *harness {
	t.Helper()
	backend := stub.New(opts...)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	sessions := session.NewStore(10, time.Hour)
	h, err := NewHandler("", sessions, session.NewController(c, nil))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /run", h.Run)

	return &harness{t: t, mux: mux, handler: h, sessions: sessions, backend: backend}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			h.cookie = c
		}
	}
	return w
}

func (h *harness) get() string {
	w := h.do(httptest.NewRequest("GET", "/", nil))
	require.Equal(h.t, http.StatusOK, w.Code)
	return w.Body.String()
}

func (h *harness) post(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/run", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := h.do(req)
	require.Equal(h.t, http.StatusSeeOther, w.Code)
	assert.Equal(h.t, "/", w.Header().Get("Location"))
	return w
}

func thresholdRun() url.Values {
	return url.Values{
		"op":             {"run"},
		"strategy":       {"threshold_cross"},
		"symbol":         {"aapl"},
		"start_date":     {"2023-01-02"},
		"end_date":       {"2023-06-30"},
		"threshold":      {"150"},
		"holding_period": {"5"},
	}
}

func TestIndex_InitialPage(t *testing.T) {
	h := newHarness(t)

	body := h.get()

	require.NotNil(t, h.cookie, "session cookie is set")
	assert.True(t, h.cookie.HttpOnly)
	assert.Contains(t, body, present.Placeholder)
	assert.Contains(t, body, "Threshold Cross")
	assert.Contains(t, body, "Moving Average Crossover")
	assert.Contains(t, body, `name="threshold"`)
	assert.NotContains(t, body, `name="rsi_window"`)
	assert.Contains(t, body, `data-min="30"`)
	assert.Contains(t, body, `data-max="70"`)
	assert.NotContains(t, body, "alert(")
}

func TestIndex_NarrowVariant(t *testing.T) {
	h := newHarness(t)
	h.handler.SetVariant(layout.Narrow)

	body := h.get()
	assert.Contains(t, body, `data-min="20"`)
	assert.Contains(t, body, `data-max="60"`)
}

func TestIndex_DragMeasuresFromGrabPoint(t *testing.T) {
	h := newHarness(t)

	body := h.get()
	assert.Contains(t, body, "startX = e.clientX")
	assert.Contains(t, body, "(startWidth + e.clientX - startX) / containerWidth")
	assert.NotContains(t, body, "e.clientX - rect.left")
}

func TestRun_SelectStrategy(t *testing.T) {
	h := newHarness(t)
	h.get()

	h.post(url.Values{"op": {"select"}, "strategy": {"rsi_mean_reversion"}, "symbol": {"msft"}})

	body := h.get()
	assert.Contains(t, body, `name="rsi_window"`)
	assert.NotContains(t, body, `name="threshold"`)
	assert.Contains(t, body, `value="MSFT"`)
	assert.Empty(t, h.backend.Calls(), "selecting a strategy sends nothing")
}

func TestRun_ValidationNotice(t *testing.T) {
	h := newHarness(t)
	h.get()

	values := thresholdRun()
	values.Set("holding_period", "")
	h.post(values)

	assert.Empty(t, h.backend.Calls())

	body := h.get()
	assert.Contains(t, body, "alert(")
	assert.Contains(t, body, "Please fill out Threshold Cross parameters.")

	body = h.get()
	assert.NotContains(t, body, "alert(", "notice is shown once")
}

func TestRun_Success(t *testing.T) {
	h := newHarness(t)
	h.get()

	h.post(thresholdRun())
	require.Len(t, h.backend.Calls(), 1)

	body := h.get()
	assert.Contains(t, body, "AAPL Performance")
	assert.Contains(t, body, "<polyline")
	assert.Contains(t, body, "Performance Summary")
	assert.Contains(t, body, "Win Probability")
	assert.Contains(t, body, "Trade History")
	assert.NotContains(t, body, present.Placeholder)
	assert.NotContains(t, body, "alert(")
}

func TestRun_EmptyCurveStillShowsSummary(t *testing.T) {
	h := newHarness(t, stub.EmptyCurve())
	h.get()

	h.post(thresholdRun())

	body := h.get()
	assert.Contains(t, body, "AAPL Performance")
	assert.Contains(t, body, present.Placeholder)
	assert.NotContains(t, body, "<polyline")
	assert.Contains(t, body, "Performance Summary")
	assert.Contains(t, body, "Total PnL")
	assert.Contains(t, body, present.NoTrades)
	assert.NotContains(t, body, "alert(")
}

type ctxRunner struct {
	ctxErr error
	called bool
}

func (c *ctxRunner) Run(ctx context.Context, req core.Request) (*core.Result, error) {
	c.called = true
	c.ctxErr = ctx.Err()
	return &core.Result{Symbol: req.Symbol, EquityCurve: []core.EquityPoint{{Date: "2023-01-02", Price: 1}}}, nil
}

func TestRun_BrowserCancelDoesNotAbortBackend(t *testing.T) {
	h := newHarness(t)
	h.get()

	runner := &ctxRunner{}
	h.handler.ctrl = session.NewController(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/run", strings.NewReader(thresholdRun().Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := h.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	require.True(t, runner.called)
	assert.NoError(t, runner.ctxErr)

	v, err := h.sessions.Get(h.cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, v.Result)
	assert.Nil(t, v.Notice)
	assert.False(t, v.Busy)
}

func TestRun_EvictedSessionLogsDroppedUpdate(t *testing.T) {
	h := newHarness(t)
	h.get()

	obs, logs := observer.New(zapcore.DebugLevel)
	h.handler.SetLogger(zap.New(obs))

	// The backend call outlives the session: enough new sessions arrive
	// meanwhile to evict it.
	evicting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			h.sessions.Create()
		}
		h.backend.ServeHTTP(w, r)
	}))
	defer evicting.Close()
	c, err := client.New(evicting.URL)
	require.NoError(t, err)
	h.handler.ctrl = session.NewController(c, nil)

	h.post(thresholdRun())

	entries := logs.FilterMessage("session update dropped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "storing backtest result", entries[0].ContextMap()["action"])
	_, err = h.sessions.Get(h.cookie.Value)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRun_FailureKeepsPreviousResult(t *testing.T) {
	h := newHarness(t)
	h.get()
	h.post(thresholdRun())

	id := h.cookie.Value
	prev, err := h.sessions.Get(id)
	require.NoError(t, err)
	require.NotNil(t, prev.Result)

	// Point the controller at a failing backend for the second run.
	failing := stub.New(stub.FailWith(http.StatusInternalServerError, "boom"))
	srv := httptest.NewServer(failing)
	defer srv.Close()
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	h.handler.ctrl = session.NewController(c, nil)

	values := thresholdRun()
	values.Set("symbol", "msft")
	h.post(values)

	body := h.get()
	assert.Contains(t, body, "alert(")
	assert.Contains(t, body, session.MsgFetchFailed)
	assert.Contains(t, body, "AAPL Performance", "previous result still shown")
	assert.Contains(t, body, `value="MSFT"`)
}

func TestRun_BusySessionSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.get()

	require.NoError(t, h.sessions.Update(h.cookie.Value, func(v session.View) (session.View, error) {
		v.Busy = true
		return v, nil
	}))

	h.post(thresholdRun())
	assert.Empty(t, h.backend.Calls())

	body := h.get()
	assert.Contains(t, body, `type="submit" disabled`)
}

func TestRun_UnknownStrategy(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest("POST", "/run", strings.NewReader("strategy=momentum"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := h.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_ExpiredCookieStartsNew(t *testing.T) {
	h := newHarness(t)
	h.cookie = &http.Cookie{Name: CookieName, Value: "stale"}

	h.get()
	assert.NotEqual(t, "stale", h.cookie.Value)
	assert.Equal(t, 1, h.sessions.Len())
}
