package session

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls  []core.Request
	result *core.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req core.Request) (*core.Result, error) {
	f.calls = append(f.calls, req)
	return f.result, f.err
}

type countingRecorder struct{ byStrategy map[string]int }

func (c *countingRecorder) RecordValidationFailure(strategy string) {
	if c.byStrategy == nil {
		c.byStrategy = map[string]int{}
	}
	c.byStrategy[strategy]++
}

func readyView() View {
	f := form.New().
		WithSymbol("AAPL").
		WithStartDate("2023-01-01").
		WithEndDate("2023-06-01").
		WithParam(form.KeyThreshold, "180").
		WithParam(form.KeyHoldingPeriod, "5")
	return NewView().WithForm(f)
}

func TestController_RunSuccess(t *testing.T) {
	want := &core.Result{Symbol: "AAPL", EquityCurve: []core.EquityPoint{{Date: "2023-01-03", Price: 181, Equity: 0}}}
	runner := &fakeRunner{result: want}
	c := NewController(runner, zap.NewNop())

	v, err := c.Run(context.Background(), readyView())
	require.NoError(t, err)

	assert.Same(t, want, v.Result)
	assert.False(t, v.Busy)
	assert.Nil(t, v.Notice)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "180", runner.calls[0].Params[form.KeyThreshold])
}

func TestController_ValidationSkipsNetwork(t *testing.T) {
	for _, spec := range form.Specs() {
		t.Run(string(spec.Strategy), func(t *testing.T) {
			runner := &fakeRunner{}
			rec := &countingRecorder{}
			c := NewController(runner, nil)
			c.SetValidationRecorder(rec)

			start := NewView().WithForm(form.New().
				WithStrategy(spec.Strategy).
				WithSymbol("AAPL").
				WithStartDate("2023-01-01").
				WithEndDate("2023-06-01"))

			v, err := c.Run(context.Background(), start)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrValidation))
			assert.Empty(t, runner.calls)

			require.NotNil(t, v.Notice)
			assert.Equal(t, NoticeValidation, v.Notice.Kind)
			assert.Equal(t, spec.Missing, v.Notice.Message)
			assert.False(t, v.Busy)
			assert.Equal(t, 1, rec.byStrategy[string(spec.Strategy)])
		})
	}
}

func TestController_FailureKeepsPriorResult(t *testing.T) {
	prior := &core.Result{Symbol: "AAPL"}
	runner := &fakeRunner{err: core.WrapError(core.ErrBackendUnavailable, errors.New("connection refused"))}
	c := NewController(runner, zap.NewNop())

	start := readyView()
	start.Result = prior

	v, err := c.Run(context.Background(), start)
	require.Error(t, err)

	assert.Same(t, prior, v.Result)
	assert.False(t, v.Busy)
	require.NotNil(t, v.Notice)
	assert.Equal(t, NoticeFailure, v.Notice.Kind)
	assert.Equal(t, MsgFetchFailed, v.Notice.Message)
}

func TestController_BusyRejects(t *testing.T) {
	runner := &fakeRunner{}
	c := NewController(runner, zap.NewNop())

	busy := readyView()
	busy.Busy = true

	v, err := c.Run(context.Background(), busy)
	assert.True(t, errors.Is(err, core.ErrBusy))
	assert.True(t, v.Busy)
	assert.Empty(t, runner.calls)
}

func TestController_BeginComplete(t *testing.T) {
	c := NewController(&fakeRunner{}, zap.NewNop())

	v, req, err := c.Begin(readyView())
	require.NoError(t, err)
	assert.True(t, v.Busy)
	assert.Equal(t, "AAPL", req.Symbol)

	_, _, err = c.Begin(v)
	assert.True(t, errors.Is(err, core.ErrBusy))

	done := c.Complete(v, &core.Result{Symbol: "AAPL"}, nil)
	assert.False(t, done.Busy)
	assert.Equal(t, "AAPL", done.Result.Symbol)
}

func TestController_SuccessClearsNotice(t *testing.T) {
	c := NewController(&fakeRunner{result: &core.Result{}}, zap.NewNop())

	start := readyView()
	start.Notice = &Notice{Kind: NoticeFailure, Message: MsgFetchFailed}

	v, err := c.Run(context.Background(), start)
	require.NoError(t, err)
	assert.Nil(t, v.Notice)
}

func TestView_DismissNotice(t *testing.T) {
	v := NewView()
	v.Notice = &Notice{Kind: NoticeValidation, Message: "x"}

	dismissed := v.DismissNotice()
	assert.Nil(t, dismissed.Notice)
	assert.NotNil(t, v.Notice)
}
