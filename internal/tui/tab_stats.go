package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/tui/components"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func newWorkerTable() table.Model {
	cols := []table.Column{
		{Title: "Worker", Width: 12},
		{Title: "Runs", Width: 6},
		{Title: "Income", Width: 12},
		{Title: "Avg", Width: 10},
		{Title: "Max", Width: 10},
		{Title: "Spending", Width: 12},
		{Title: "Avg", Width: 10},
		{Title: "Max", Width: 10},
		{Title: "Net", Width: 12},
	}
	tbl := table.New(
		table.WithColumns(cols),
		table.WithHeight(8),
		table.WithFocused(true),
	)
	tbl.SetStyles(tableStyles())
	return tbl
}

func tableStyles() table.Styles {
	t := theme.Active
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Foreground(t.Accent).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceBright).
		Bold(true)
	return s
}

func workerRows(ws []model.WorkerStats) []table.Row {
	rows := make([]table.Row, len(ws))
	for i, w := range ws {
		rows[i] = table.Row{
			w.Worker,
			strconv.Itoa(w.Records),
			cli.FormatGold(w.IncomeTotal),
			cli.FormatGold(w.IncomeAvg),
			cli.FormatGold(w.IncomeMax),
			cli.FormatGold(w.ConsumptionTotal),
			cli.FormatGold(w.ConsumptionAvg),
			cli.FormatGold(w.ConsumptionMax),
			cli.FormatGold(w.Net),
		}
	}
	return rows
}

func (a App) updateStats(msg tea.KeyMsg) (_ tea.Model, _ tea.Cmd, handled bool) {
	switch msg.String() {
	case "j", "k", "up", "down", "g", "G", "home", "end", "ctrl+d", "ctrl+u":
		var cmd tea.Cmd
		a.statsTable, cmd = a.statsTable.Update(msg)
		return a, cmd, true
	}
	return a, nil, false
}

func (a App) renderStatsTab(cw int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(a.committed) == 0 {
		return a.emptyCard("Stats", "Stats appear once runs are committed.", cw)
	}

	var b strings.Builder
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Workers [%d]", len(a.workers)),
		a.statsTable.View()+"\n"+mutedStyle.Render("[j/k] select"),
		cw,
	))
	b.WriteString("\n")
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Dungeons [%d]", len(a.dungeons)),
		a.renderDungeonBars(components.CardInnerWidth(cw)),
		cw,
	))
	return b.String()
}

// renderDungeonBars draws one bar per dungeon scaled by run count.
func (a App) renderDungeonBars(innerW int) string {
	t := theme.Active

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	maxRuns := 0
	for _, d := range a.dungeons {
		maxRuns = max(maxRuns, d.Runs)
	}

	const nameW = 14
	barW := max(innerW-nameW-48, 10)

	var b strings.Builder
	for i, d := range a.dungeons {
		n := 0
		if maxRuns > 0 {
			n = max(d.Runs*barW/maxRuns, 1)
		}
		b.WriteString(nameStyle.Render(padRight(truncWidth(d.Dungeon, nameW), nameW)))
		b.WriteString(barStyle.Render(" " + padRight(strings.Repeat("█", n), barW)))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" %4d runs  avg %s  team %s  special %s",
			d.Runs, cli.FormatGold(d.AvgPersonal), cli.FormatGold(d.TeamTotal), cli.FormatGold(d.SpecialTotal))))
		if i < len(a.dungeons)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
