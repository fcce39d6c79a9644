package cli

import (
	"slices"
	"strings"

	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Styles follow theme.Active, so they are built per call.
func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// Gold renders an amount in the income color, or the spending color when
// negative.
func Gold(v int64) string {
	t := theme.Active
	if v < 0 {
		return fg(t.Red).Render(FormatGold(v))
	}
	return fg(t.Green).Render(FormatGold(v))
}

func Muted(s string) string { return fg(theme.Active.TextMuted).Render(s) }

func Warn(s string) string { return fg(theme.Active.Orange).Render(s) }

// Table is a bordered text table. A row holding the single cell "---"
// draws a separator.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string

	// LeftAlign lists the columns besides the first that are left-aligned;
	// the rest hold numbers and align right.
	LeftAlign []int
}

const titleWidth = 55

// RenderTitle renders title centered in a rounded box.
func RenderTitle(title string) string {
	t := theme.Active
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Width(titleWidth).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(fg(t.TextPrimary).Bold(true).Render(title))
}

// fit pads s to w display cells, so CJK text lines up.
func fit(s string, w int, right bool) string {
	gap := strings.Repeat(" ", max(w-lipgloss.Width(s), 0))
	if right {
		return gap + s
	}
	return s + gap
}

// RenderTable lays out t with column widths measured in display cells.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	if cols == 0 && len(t.Rows) > 0 {
		cols = len(t.Rows[0])
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row[:min(len(row), cols)] {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	th := theme.Active
	dim := fg(th.TextDim)
	head := fg(th.Accent).Bold(true)
	body := fg(th.TextPrimary)

	var b strings.Builder
	border := func(left, mid, right string) {
		segs := make([]string, cols)
		for i, w := range widths {
			segs[i] = strings.Repeat("─", w+2)
		}
		b.WriteString(dim.Render(left+strings.Join(segs, mid)+right) + "\n")
	}
	line := func(row []string, style lipgloss.Style, align func(int) bool) {
		bar := dim.Render("│")
		b.WriteString(bar)
		for i := range cols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(style.Render(" "+fit(cell, widths[i], align(i))+" ") + bar)
		}
		b.WriteString("\n")
	}

	if t.Title != "" {
		b.WriteString("  " + head.Render(t.Title) + "\n")
	}
	border("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, head, func(int) bool { return false })
		border("├", "┼", "┤")
	}
	numeric := func(i int) bool { return i != 0 && !slices.Contains(t.LeftAlign, i) }
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			border("├", "┼", "┤")
			continue
		}
		line(row, body, numeric)
	}
	border("╰", "┴", "╯")
	return b.String()
}

// RenderHorizontalBar renders a labelled bar scaled against maxValue.
func RenderHorizontalBar(label string, value, maxValue int64, maxWidth int) string {
	if maxValue <= 0 {
		return "  " + label
	}
	n := max(int(float64(value)/float64(maxValue)*float64(maxWidth)), 0)
	return "  " + label + " " + fg(theme.Active.Green).Render(strings.Repeat("█", n))
}
