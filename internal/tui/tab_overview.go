package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/tui/components"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	stats := a.stats
	week := a.week
	var b strings.Builder

	// Row 1: metric cards
	cards := []components.Metric{
		{Label: "Runs", Value: cli.FormatNumber(int64(stats.Records)),
			Delta: fmt.Sprintf("%d this week", week.Records)},
		{Label: "Team Total", Value: cli.FormatGold(stats.TeamTotal),
			Delta: "max " + cli.FormatGold(stats.TeamMax)},
		{Label: "Personal", Value: cli.FormatGold(stats.PersonalTotal), Color: t.GreenBright,
			Delta: cli.FormatGold(week.PersonalTotal) + " this week"},
		{Label: "Spending", Value: cli.FormatGold(stats.ConsumptionTotal), Color: t.Orange,
			Delta: "max " + cli.FormatGold(stats.ConsumptionMax)},
		{Label: "Net", Value: cli.FormatGold(stats.NetTotal), Color: t.Gain(stats.NetTotal),
			Delta: fmt.Sprintf("%d lie-downs", stats.LieDowns)},
		{Label: "Pending", Value: cli.FormatNumber(int64(len(a.pending))), Color: t.Yellow,
			Delta: cli.FormatGold(a.pendingStats.PersonalTotal) + " personal"},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(cards[:3], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(cards[3:], cw))
	} else {
		b.WriteString(components.MetricCardRow(cards, cw))
	}
	b.WriteString("\n")

	// Row 2: this week's personal income by day + the weekly run list
	weekTitle := fmt.Sprintf("This Week (%s)", a.weekStart.Format("01-02"))
	halves := components.LayoutRow(cw, 2)
	chartW := cw
	if !a.isCompactLayout() {
		chartW = halves[0]
	}
	chart := components.ContentCard(
		weekTitle+" · Personal Income",
		components.BarChart(dailyPersonal(a.weekRecords, a.weekStart, a.loc), weekdayLabels,
			t.Green, components.CardInnerWidth(chartW), 8),
		chartW,
	)
	if a.isCompactLayout() {
		b.WriteString(chart)
		b.WriteString("\n")
		b.WriteString(a.renderWeekList(cw, 8))
	} else {
		b.WriteString(components.CardRow([]string{chart, a.renderWeekList(halves[1], 10)}))
	}
	b.WriteString("\n")

	// Row 3: last analysis
	b.WriteString(a.renderAnalysisCard(cw))
	return b.String()
}

// dailyPersonal sums personal income per day of the week starting at start.
func dailyPersonal(recs []model.RunRecord, start time.Time, loc *time.Location) []float64 {
	vals := make([]float64, 7)
	for _, r := range recs {
		end := r.End.In(loc)
		day := int(end.Sub(start) / (24 * time.Hour))
		if day >= 0 && day < 7 {
			vals[day] += float64(r.PersonalSalary)
		}
	}
	return vals
}

func (a App) renderWeekList(w, limit int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(w)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	noteStyle := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface)

	var body strings.Builder
	if len(a.weekly) == 0 {
		body.WriteString(dimStyle.Render("No runs committed this week"))
	}
	for i, e := range a.weekly {
		if i == limit {
			body.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(a.weekly)-limit)))
			break
		}
		tm := e.Time.In(a.loc)
		line := cli.FormatWeekday(tm.Weekday()) + " " + tm.Format("15:04") + "  " +
			padRight(e.Dungeon, 14) + " " + e.Worker
		body.WriteString(rowStyle.Render(truncWidth(line, innerW-lipgloss.Width(e.Note)-1)))
		if e.Note != "" {
			body.WriteString(noteStyle.Render(" " + e.Note))
		}
		body.WriteString("\n")
	}
	return components.ContentCard(fmt.Sprintf("Runs This Week [%d]", len(a.weekly)),
		strings.TrimRight(body.String(), "\n"), w)
}

func (a App) renderAnalysisCard(cw int) string {
	t := theme.Active
	s := a.summary

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	field := func(label string, n int) string {
		return labelStyle.Render(label+" ") + valueStyle.Render(cli.FormatNumber(int64(n)))
	}

	var body strings.Builder
	body.WriteString(strings.Join([]string{
		field("files", s.Files),
		field("runs", s.Produced),
		field("duplicates", s.Duplicates),
		field("empty", s.Empty),
		field("skipped", s.Skipped),
		field("malformed", s.Malformed),
		field("discarded", s.Discarded),
	}, labelStyle.Render("  ")))
	body.WriteString("\n")
	body.WriteString(labelStyle.Render("took ") + valueStyle.Render(cli.FormatDuration(a.loadTime)))
	if !a.lastRun.IsZero() {
		body.WriteString(labelStyle.Render("  at ") + valueStyle.Render(a.lastRun.In(a.loc).Format("15:04:05")))
	}

	const maxShown = 3
	for i, fe := range s.FileErrors {
		if i == maxShown {
			body.WriteString("\n" + warnStyle.Render(fmt.Sprintf("… %d more errors", len(s.FileErrors)-maxShown)))
			break
		}
		body.WriteString("\n" + warnStyle.Render(truncWidth(fe.Error(), components.CardInnerWidth(cw))))
	}
	return components.ContentCard("Last Analysis", body.String(), cw)
}
