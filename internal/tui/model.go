// Package tui is the terminal front end: a form pane and a result pane
// separated by a draggable column.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/form"
	"github.com/newthinker/btdesk/internal/layout"
	"github.com/newthinker/btdesk/internal/session"
)

const (
	gutterWidth = 1
	headerH     = 1
	footerH     = 1
	labelWidth  = 16
)

type resultMsg struct {
	result *core.Result
	err    error
}

type field struct {
	key   string
	label string
	input textinput.Model
}

// Model is the Bubble Tea model for the terminal UI.
type Model struct {
	ctx   context.Context
	ctrl  *session.Controller
	view  session.View
	split layout.Splitter

	// Focus 0 is the strategy selector, i > 0 is fields[i-1].
	fields []field
	focus  int

	spinner       spinner.Model
	results       viewport.Model
	width, height int
	ready         bool
}

// New creates the model. ctx bounds every backend call it makes.
func New(ctx context.Context, ctrl *session.Controller, variant layout.Variant) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		view:    session.NewView(),
		split:   layout.NewSplitter(variant),
		spinner: sp,
	}
	m.rebuildFields()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.split = m.split.Resize(float64(msg.Width))
		m.resize()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case spinner.TickMsg:
		if !m.view.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.view = m.ctrl.Complete(m.view, msg.result, msg.err)
		m.refreshResults()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// A pending notice swallows input until acknowledged.
	if m.view.Notice != nil {
		switch msg.String() {
		case "esc", "enter":
			m.view = m.view.DismissNotice()
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		m.moveFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil
	case "ctrl+s":
		m.cycleStrategy(1)
		return m, nil
	case "enter":
		return m.submit()
	case "left", "right":
		if m.focus == 0 {
			if msg.String() == "left" {
				m.cycleStrategy(-1)
			} else {
				m.cycleStrategy(1)
			}
			return m, nil
		}
	}

	if m.focus == 0 {
		return m, nil
	}

	f := &m.fields[m.focus-1]
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)

	next, err := m.view.Form.Set(f.key, f.input.Value())
	if err == nil {
		m.view = m.view.WithForm(next)
		if f.key == form.KeySymbol {
			f.input.SetValue(next.Symbol())
		}
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	next, req, err := m.ctrl.Begin(m.view)
	m.view = next
	if err != nil {
		return m, nil
	}
	return m, tea.Batch(m.spinner.Tick, m.send(req))
}

func (m Model) send(req core.Request) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		result, err := ctrl.Send(ctx, req)
		return resultMsg{result: result, err: err}
	}
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && m.onHandle(msg.X) {
			m.split = m.split.Down(float64(msg.X), float64(m.width))
			return m
		}
		if tea.MouseEvent(msg).IsWheel() {
			m.results, _ = m.results.Update(msg)
		}
		return m
	case tea.MouseActionMotion:
		if m.split.Phase() != layout.Dragging {
			return m
		}
		m.split = m.split.Move(float64(msg.X))
		m.resize()
	case tea.MouseActionRelease:
		m.split = m.split.Up()
	}
	return m
}

func (m Model) onHandle(x int) bool {
	left, _ := m.split.Split(m.width, gutterWidth)
	return x >= left && x < left+gutterWidth
}

func (m *Model) moveFocus(delta int) {
	n := len(m.fields) + 1
	m.focus = ((m.focus+delta)%n + n) % n
	m.applyFocus()
}

func (m *Model) applyFocus() {
	for i := range m.fields {
		if i+1 == m.focus {
			m.fields[i].input.Focus()
		} else {
			m.fields[i].input.Blur()
		}
	}
}

func (m *Model) cycleStrategy(delta int) {
	cur := 0
	for i, st := range core.Strategies {
		if st == m.view.Form.Strategy() {
			cur = i
			break
		}
	}
	n := len(core.Strategies)
	next := core.Strategies[((cur+delta)%n+n)%n]
	m.view = m.view.WithForm(m.view.Form.WithStrategy(next))
	m.rebuildFields()
}

// rebuildFields recreates the inputs for the selected strategy, filled
// from the form so values typed earlier come back.
func (m *Model) rebuildFields() {
	fields := []field{
		{key: form.KeySymbol, label: "Symbol", input: newInput("e.g. AAPL")},
		{key: form.KeyStartDate, label: "Start Date", input: newInput("YYYY-MM-DD")},
		{key: form.KeyEndDate, label: "End Date", input: newInput("YYYY-MM-DD")},
	}
	for _, f := range m.view.Form.Spec().Fields {
		fields = append(fields, field{key: f.Key, label: f.Label, input: newInput(f.Placeholder)})
	}
	for i := range fields {
		fields[i].input.SetValue(m.view.Form.Get(fields[i].key))
	}

	m.fields = fields
	if m.focus > len(fields) {
		m.focus = 0
	}
	m.applyFocus()
	m.resizeInputs()
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 32
	return ti
}

func (m *Model) resize() {
	_, right := m.split.Split(m.width, gutterWidth)
	bodyH := max(m.height-headerH-footerH, 1)
	if !m.ready {
		m.results = viewport.New(max(right-2, 1), bodyH)
		m.results.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.results.Width = max(right-2, 1)
		m.results.Height = bodyH
	}
	m.resizeInputs()
	m.refreshResults()
}

func (m *Model) resizeInputs() {
	left, _ := m.split.Split(m.width, gutterWidth)
	w := max(left-labelWidth-4, 4)
	for i := range m.fields {
		m.fields[i].input.Width = w
	}
}

func (m *Model) refreshResults() {
	if !m.ready {
		return
	}
	m.results.SetContent(renderResults(m.view.Result, m.results.Width))
}
