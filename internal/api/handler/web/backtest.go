// internal/api/handler/web/backtest.go
package web

import (
	"context"
	"net/http"

	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/form"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/present"
	"github.com/newthinker/btdesk/internal/session"
	"go.uber.org/zap"
)

// CookieName holds the browser's session id.
const CookieName = "btdesk_session"

// Chart box in SVG user units; the element itself scales to its container.
const (
	chartWidth  = 800
	chartHeight = 400
)

// Submit ops posted by the form.
const (
	opRun    = "run"
	opSelect = "select"
)

// FieldData is one strategy input with its current value.
type FieldData struct {
	form.FieldSpec
	Value string
}

// PageData is everything index.html renders.
type PageData struct {
	Title       string
	Specs       []form.StrategySpec
	Selected    form.StrategySpec
	Fields      []FieldData
	Symbol      string
	StartDate   string
	EndDate     string
	Busy        bool
	Notice      *session.Notice
	Result      *core.Result
	HasChart    bool
	Chart       present.Chart
	Placeholder string
	NoStats     string
	NoTrades    string
	Summary     []present.SummaryRow
	Trades      []present.TradeRow
	Variant     layout.Variant
}

// Index renders the form and the result pane. A pending notice is shown
// once and then dismissed.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	id, v := h.session(w, r)

	if v.Notice != nil {
		err := h.sessions.Update(id, func(cur session.View) (session.View, error) {
			return cur.DismissNotice(), nil
		})
		h.logDropped(id, "dismissing notice", err)
	}

	h.render(w, "index.html", h.pageData(v))
}

// Run applies the posted form. op=select only changes the selected
// strategy; anything else submits a backtest. Both redirect back to /.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id, v := h.session(w, r)

	f, err := v.Form.Merge(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("op") == opSelect {
		err := h.sessions.Update(id, func(cur session.View) (session.View, error) {
			return cur.WithForm(f), nil
		})
		h.logDropped(id, "selecting strategy", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var req core.Request
	err = h.sessions.Update(id, func(cur session.View) (session.View, error) {
		next, rq, err := h.ctrl.Begin(cur.WithForm(f))
		req = rq
		return next, err
	})
	if err != nil {
		h.logger.Debug("backtest not sent", zap.String("session", id), zap.Error(err))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// A sent request runs to completion even if the browser goes away.
	result, sendErr := h.ctrl.Send(context.WithoutCancel(r.Context()), req)
	err = h.sessions.Update(id, func(cur session.View) (session.View, error) {
		return h.ctrl.Complete(cur, result, sendErr), nil
	})
	h.logDropped(id, "storing backtest result", err)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logDropped records an update lost because the session expired or was
// evicted after it was read.
func (h *Handler) logDropped(id, action string, err error) {
	if err == nil {
		return
	}
	h.logger.Debug("session update dropped",
		zap.String("session", id),
		zap.String("action", action),
		zap.Error(err),
	)
}

// session returns the caller's session, starting one when the cookie is
// missing or its session has expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, session.View) {
	if c, err := r.Cookie(CookieName); err == nil {
		if v, err := h.sessions.Get(c.Value); err == nil {
			return c.Value, v
		}
	}

	id, v := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, v
}

func (h *Handler) pageData(v session.View) PageData {
	spec := v.Form.Spec()
	fields := make([]FieldData, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		fields = append(fields, FieldData{FieldSpec: f, Value: v.Form.Param(f.Key)})
	}

	data := PageData{
		Title:       "Backtester",
		Specs:       form.Specs(),
		Selected:    spec,
		Fields:      fields,
		Symbol:      v.Form.Symbol(),
		StartDate:   v.Form.StartDate(),
		EndDate:     v.Form.EndDate(),
		Busy:        v.Busy,
		Notice:      v.Notice,
		Result:      v.Result,
		Placeholder: present.Placeholder,
		NoStats:     present.NoStats,
		NoTrades:    present.NoTrades,
		Variant:     h.variant,
	}

	if v.Result != nil {
		data.Chart, data.HasChart = present.Project(v.Result.EquityCurve, chartWidth, chartHeight)
		data.Summary = present.SummaryRows(v.Result)
		data.Trades = present.TradeRows(v.Result)
	}
	return data
}
