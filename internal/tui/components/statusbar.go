package components

import (
	"strings"

	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Status is what the bottom bar shows besides the key hints.
type Status struct {
	Message   string // transient notice, e.g. the result of a commit
	IsError   bool
	Analyzing bool
	Spinner   string // current spinner frame while analyzing
	Info      string // right-aligned summary
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st Status) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	msgStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	if st.IsError {
		msgStyle = msgStyle.Foreground(t.Red)
	}

	left := base.Render(" ") +
		keyStyle.Render("?") + base.Render(" help  ") +
		keyStyle.Render("r") + base.Render(" analyze  ") +
		keyStyle.Render("q") + base.Render(" quit")
	if st.Message != "" {
		left += base.Render("   ") + msgStyle.Render(st.Message)
	}

	right := st.Info
	if st.Analyzing {
		right = st.Spinner + " analyzing"
	}
	right = base.Render(right + " ")

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + base.Render(strings.Repeat(" ", padding)) + right
}
