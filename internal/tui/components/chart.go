package components

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one row of block characters.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := max(slices.Max(values), 1)

	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[min(max(idx, 0), len(sparkBlocks)-1)])
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// BarChart draws one vertical bar per value over a y axis in gold units,
// with each label centered under its bar. Areas too small for two-cell bars
// get a sparkline instead.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	n := len(values)
	if n == 0 {
		return ""
	}
	peak := max(slices.Max(values), 1)

	step, ticks := axisTicks(peak, max(height/2, 2))
	ceiling := step * float64(ticks)
	rowsPerTick := max(height/ticks, 2)
	chartH := rowsPerTick * ticks

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	barW := min((width-yLabelW-1-(n-1))/n, 6)
	if barW < 2 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)
	lowStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	highStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		label := ""
		if row%rowsPerTick == 0 {
			label = formatChartLabel(step * float64(row/rowsPerTick))
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", yLabelW, label)))

		top := ceiling * float64(row) / float64(chartH)
		bottom := ceiling * float64(row-1) / float64(chartH)
		style := lowStyle
		if float64(row) > 0.8*float64(chartH) {
			style = highStyle
		}
		for i, v := range values {
			if i > 0 {
				b.WriteString(blank.Render(" "))
			}
			cell := barCell(v, bottom, top)
			if cell == ' ' {
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
				continue
			}
			b.WriteString(style.Render(strings.Repeat(string(cell), barW)))
		}
		b.WriteString("\n")
	}

	axisLen := n*barW + n - 1
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└", yLabelW, "0") + strings.Repeat("─", axisLen)))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		var row strings.Builder
		for i, lbl := range labels {
			slot := barW
			if i < n-1 {
				slot++
			}
			row.WriteString(centerIn(truncate(lbl, slot), slot))
		}
		b.WriteString(axisStyle.Render(strings.TrimRight(row.String(), " ")))
	}
	return b.String()
}

// barCell picks the glyph for a value within the row spanning (bottom, top].
func barCell(v, bottom, top float64) rune {
	switch {
	case v >= top:
		return '█'
	case v > bottom:
		idx := int((v - bottom) / (top - bottom) * float64(len(sparkBlocks)))
		return sparkBlocks[min(max(idx, 0), len(sparkBlocks)-1)]
	default:
		return ' '
	}
}

func centerIn(s string, w int) string {
	pad := w - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// axisTicks picks a round tick step near peak/5, doubled until at most
// maxTicks intervals cover peak.
func axisTicks(peak float64, maxTicks int) (step float64, ticks int) {
	rough := peak / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		step = base
	case frac < 3.5:
		step = 2 * base
	default:
		step = 5 * base
	}
	for int(math.Ceil(peak/step)) > maxTicks {
		step *= 2
	}
	return step, max(int(math.Ceil(peak/step)), 1)
}

// formatChartLabel renders a y-axis tick in gold units, using the w suffix
// for 万 and y for 亿 so the axis stays single-width.
func formatChartLabel(v float64) string {
	switch {
	case v >= 1e8:
		return trimUnit(v/1e8, "y")
	case v >= 1e4:
		return trimUnit(v/1e4, "w")
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func trimUnit(v float64, unit string) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f%s", v, unit)
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}
