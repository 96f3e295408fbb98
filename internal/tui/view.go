package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/present"
	"github.com/newthinker/btdesk/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	noticeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	dimStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	priceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	equityStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	buttonStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("27")).Padding(0, 2)
	handleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dragStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

const footerHelp = " tab field  ←/→ strategy  enter run  drag │ resize  ctrl+c quit"

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	left, right := m.split.Split(m.width, gutterWidth)
	bodyH := max(m.height-headerH-footerH, 1)

	header := titleStyle.Render(padOrTrunc(" Backtester", m.width))

	formPane := lipgloss.NewStyle().
		Width(left).
		Height(bodyH).
		MaxHeight(bodyH).
		Padding(0, 1).
		Render(m.renderForm(left - 2))

	hs := handleStyle
	if m.split.SelectionSuppressed() {
		hs = dragStyle
	}
	gutter := hs.Render(strings.TrimSuffix(strings.Repeat("│\n", bodyH), "\n"))

	resultPane := lipgloss.NewStyle().
		Width(right).
		Height(bodyH).
		MaxHeight(bodyH).
		Padding(0, 1).
		Render(m.results.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, formPane, gutter, resultPane)

	return header + "\n" + body + "\n" + m.footer()
}

func (m Model) footer() string {
	n := m.view.Notice
	if n == nil {
		return footerStyle.Render(padOrTrunc(footerHelp, m.width))
	}
	style := noticeStyle
	if n.Kind == session.NoticeFailure {
		style = failureStyle
	}
	return style.Render(padOrTrunc(" ! "+n.Message+"  [enter/esc to dismiss]", m.width))
}

func (m Model) renderForm(width int) string {
	var b strings.Builder
	spec := m.view.Form.Spec()

	b.WriteString(headingStyle.Render("Select Strategy"))
	b.WriteString("\n")
	name := "‹ " + spec.Name + " ›"
	if m.focus == 0 {
		b.WriteString(focusStyle.Render(name))
	} else {
		b.WriteString(name)
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(max(width, 1)).Foreground(lipgloss.Color("250")).Render(spec.Description))
	b.WriteString("\n\n")

	b.WriteString(headingStyle.Render("Parameters"))
	b.WriteString("\n")
	for i, f := range m.fields {
		label := padOrTrunc(f.label+":", labelWidth)
		if m.focus == i+1 {
			b.WriteString(focusStyle.Render(label))
		} else {
			b.WriteString(labelStyle.Render(label))
		}
		b.WriteString(" ")
		b.WriteString(f.input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.view.Busy {
		b.WriteString(m.spinner.View())
		b.WriteString(" Running...")
	} else {
		b.WriteString(buttonStyle.Render("Run Backtest"))
	}
	b.WriteString("\n")

	return b.String()
}

func renderResults(r *core.Result, width int) string {
	if r == nil {
		return dimStyle.Render(present.Placeholder)
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render(r.Symbol + " Performance"))
	b.WriteString("\n")
	if r.Period != "" {
		b.WriteString(labelStyle.Render(r.Period))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if present.HasChart(r) {
		spark := max(width-8, 1)
		b.WriteString(labelStyle.Render("Price  "))
		b.WriteString(priceStyle.Render(present.Sparkline(present.Series(r.EquityCurve, false), spark)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Equity "))
		b.WriteString(equityStyle.Render(present.Sparkline(present.Series(r.EquityCurve, true), spark)))
		b.WriteString("\n")
		first, last := r.EquityCurve[0], r.EquityCurve[len(r.EquityCurve)-1]
		b.WriteString(labelStyle.Render(fmt.Sprintf("%s → %s   equity %s → %s",
			first.Date, last.Date, present.Money(first.Equity), present.Money(last.Equity))))
	} else {
		b.WriteString(dimStyle.Render(present.Placeholder))
	}
	b.WriteString("\n\n")

	b.WriteString(headingStyle.Render("Performance Summary"))
	b.WriteString("\n")
	rows := present.SummaryRows(r)
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render(present.NoStats))
		b.WriteString("\n")
	}
	for _, row := range rows {
		b.WriteString(labelStyle.Render(padOrTrunc(row.Label, 20)))
		b.WriteString(row.Value)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(headingStyle.Render("Trade History"))
	b.WriteString("\n")
	trades := present.TradeRows(r)
	if len(trades) == 0 {
		b.WriteString(dimStyle.Render(present.NoTrades))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-11s %-11s %10s %10s %10s", "Entry", "Exit", "Entry $", "Exit $", "PnL $")))
	b.WriteString("\n")
	for _, t := range trades {
		pnl := lossStyle
		if t.Gain {
			pnl = gainStyle
		}
		fmt.Fprintf(&b, "%-11s %-11s %10s %10s ", t.EntryDate, t.ExitDate, t.EntryPrice, t.ExitPrice)
		b.WriteString(pnl.Render(fmt.Sprintf("%10s", t.PnL)))
		b.WriteString("\n")
	}
	return b.String()
}

// padOrTrunc fits s to exactly width display cells.
func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
