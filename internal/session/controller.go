package session

import (
	"context"
	"errors"

	"github.com/newthinker/btdesk/internal/core"
	"go.uber.org/zap"
)

// Runner executes a validated request against the backend.
type Runner interface {
	Run(ctx context.Context, req core.Request) (*core.Result, error)
}

// ValidationRecorder counts submissions rejected by the form.
type ValidationRecorder interface {
	RecordValidationFailure(strategy string)
}

// Controller applies submissions to views. It keeps no state of its own;
// whoever stores the returned View decides what wins when runs overlap.
type Controller struct {
	runner   Runner
	logger   *zap.Logger
	recorder ValidationRecorder
}

// NewController creates a controller.
func NewController(runner Runner, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{runner: runner, logger: logger}
}

// SetValidationRecorder sets the metrics sink for rejected submissions.
func (c *Controller) SetValidationRecorder(r ValidationRecorder) {
	c.recorder = r
}

// Begin validates the form. On success the returned view is busy and the
// request should be sent; on failure the view carries a validation notice
// and nothing must be sent.
func (c *Controller) Begin(v View) (View, core.Request, error) {
	if v.Busy {
		return v, core.Request{}, core.ErrBusy
	}

	req, err := v.Form.Submit()
	if err != nil {
		msg := err.Error()
		var ce *core.Error
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		if c.recorder != nil {
			c.recorder.RecordValidationFailure(string(v.Form.Strategy()))
		}
		v.Notice = &Notice{Kind: NoticeValidation, Message: msg}
		return v, core.Request{}, err
	}

	v.Busy = true
	v.Notice = nil
	return v, req, nil
}

// Complete applies the backend's answer. A failure keeps the previous
// result and raises the generic failure notice.
func (c *Controller) Complete(v View, result *core.Result, err error) View {
	v.Busy = false
	if err != nil {
		c.logger.Warn("backtest failed",
			zap.String("strategy", string(v.Form.Strategy())),
			zap.String("symbol", v.Form.Symbol()),
			zap.Error(err),
		)
		v.Notice = &Notice{Kind: NoticeFailure, Message: MsgFetchFailed}
		return v
	}

	v.Result = result
	v.Notice = nil
	return v
}

// Send forwards a request produced by Begin to the backend.
func (c *Controller) Send(ctx context.Context, req core.Request) (*core.Result, error) {
	return c.runner.Run(ctx, req)
}

// Run performs Begin, the backend call, and Complete in one step.
func (c *Controller) Run(ctx context.Context, v View) (View, error) {
	next, req, err := c.Begin(v)
	if err != nil {
		return next, err
	}

	result, err := c.Send(ctx, req)
	return c.Complete(next, result, err), err
}
