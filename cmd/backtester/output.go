package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/newthinker/backtester/internal/backtest"
	"github.com/newthinker/backtester/internal/present"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(20)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	buyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	sellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	plainStyle  = lipgloss.NewStyle()
)

var columns = []struct {
	title string
	width int
}{
	{"Date", 17},
	{"Symbol", 8},
	{"Side", 6},
	{"Shares", 8},
	{"Price", 12},
	{"Total Value", 14},
}

// renderView formats a result for the terminal, one colour per trade side.
func renderView(v present.View) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Backtest Results"))
	b.WriteString("\n\n")

	for _, row := range []struct{ label, value string }{
		{"Profit/Loss:", v.Summary.ProfitLoss},
		{"Annualized Return:", v.Summary.AnnualizedReturn},
		{"Max Drawdown:", v.Summary.MaxDrawdown},
		{"Win Probability:", v.Summary.WinProbability},
	} {
		b.WriteString(labelStyle.Render(row.label))
		b.WriteString(valueStyle.Render(row.value))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(v.Trades) == 0 {
		b.WriteString("No trades.\n")
		return b.String()
	}

	for _, c := range columns {
		b.WriteString(headerStyle.Width(c.width).Render(c.title))
	}
	b.WriteString("\n")

	for _, t := range v.Trades {
		style := sideStyle(t.Class)
		for i, cell := range []string{t.Date, t.Symbol, t.Side, t.Shares, t.Price, t.Total} {
			b.WriteString(style.Width(columns[i].width).Render(cell))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func sideStyle(side string) lipgloss.Style {
	switch side {
	case backtest.SideBuy:
		return buyStyle
	case backtest.SideSell:
		return sellStyle
	default:
		return plainStyle
	}
}
