package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/tui/components"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// listState is the cursor, scroll and search state of a record list.
type listState struct {
	cursor       int
	offset       int // first visible row
	detailScroll int
	searching    bool
	input        textinput.Model
	query        string
}

func newListState() listState {
	ti := textinput.New()
	ti.Placeholder = "dungeon, worker, leader, item, note"
	ti.CharLimit = 64
	ti.Width = 40
	return listState{input: ti}
}

func (ls *listState) move(delta, n int) {
	ls.cursor += delta
	ls.clamp(n)
	ls.detailScroll = 0
}

func (ls *listState) clamp(n int) {
	ls.cursor = max(min(ls.cursor, n-1), 0)
}

// activeList returns the list state of the current tab, or nil.
func (a *App) activeList() *listState {
	switch a.activeTab {
	case components.TabPending:
		return &a.pendState
	case components.TabHistory:
		return &a.histState
	}
	return nil
}

func (a App) activeListLen() int {
	if a.activeTab == components.TabHistory {
		return len(a.filteredHistory())
	}
	return len(a.filteredPending())
}

func (a App) filteredPending() []model.RunRecord {
	if a.pendState.query == "" {
		return a.pending
	}
	var out []model.RunRecord
	for _, r := range a.pending {
		if matchRecord(r, a.pendState.query) {
			out = append(out, r)
		}
	}
	return out
}

// matchRecord reports whether q appears in any of the record's text fields.
func matchRecord(r model.RunRecord, q string) bool {
	q = strings.ToLower(q)
	fields := []string{r.Dungeon, r.Worker, r.Leader, r.Note, r.File, string(r.Team)}
	for _, it := range r.SpecialItems {
		fields = append(fields, it.Item, it.Buyer)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// updateRecordList handles navigation keys shared by the pending and
// history tabs. handled is false when the key belongs to someone else.
func (a App) updateRecordList(key string) (_ tea.Model, _ tea.Cmd, handled bool) {
	ls := a.activeList()
	n := a.activeListLen()
	halfPage := max(minHalfPageScroll, (a.height-scrollOverhead)/2)

	switch key {
	case "j", "down":
		ls.move(1, n)
	case "k", "up":
		ls.move(-1, n)
	case "g", "home":
		ls.move(-n, n)
	case "G", "end":
		ls.move(n, n)
	case "ctrl+d":
		ls.move(halfPage, n)
	case "ctrl+u":
		ls.move(-halfPage, n)
	case "J":
		ls.detailScroll++
	case "K":
		ls.detailScroll = max(ls.detailScroll-1, 0)
	case "/":
		ls.searching = true
		ls.input.SetValue(ls.query)
		ls.input.CursorEnd()
		return a, ls.input.Focus(), true
	case "esc":
		ls.query = ""
		ls.cursor, ls.offset, ls.detailScroll = 0, 0, 0
	case "c":
		if a.activeTab != components.TabPending {
			return a, nil, false
		}
		return a.commitSelected()
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) commitSelected() (tea.Model, tea.Cmd, bool) {
	recs := a.filteredPending()
	if a.committing || a.analyzing || len(recs) == 0 || a.opts.Backend == nil {
		return a, nil, true
	}
	rec := recs[a.pendState.cursor]
	a.committing = true
	a.setNotice("committing "+rec.Dungeon+"...", false)
	return a, commitCmd(a.opts.Backend, rec, a.loc), true
}

// updateSearch handles key events while a list's search input is focused.
func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ls := a.activeList()

	switch msg.String() {
	case "enter":
		ls.query = strings.TrimSpace(ls.input.Value())
		ls.searching = false
		ls.input.Blur()
		ls.cursor, ls.offset, ls.detailScroll = 0, 0, 0
		return a, nil
	case "esc":
		ls.searching = false
		ls.input.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	ls.input, cmd = ls.input.Update(msg)
	return a, cmd
}

func (a App) renderPendingTab(cw, h int) string {
	recs := a.filteredPending()
	title := fmt.Sprintf("Pending [%d]", len(recs))
	if len(a.pending) == 0 {
		return a.emptyCard("Pending", "No pending runs. New chat log runs show up here after [r] analyze.", cw)
	}
	return a.renderRecordSplit(title, recs, nil, &a.pendState, cw, h,
		"[c] commit  [/] search  [j/k] navigate  [J/K] scroll")
}

func (a App) emptyCard(title, text string, cw int) string {
	t := theme.Active
	body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(text)
	if a.loadErr != nil {
		body += "\n\n" + lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render(a.loadErr.Error())
	}
	return components.ContentCard(title, body, cw)
}

// renderRecordSplit draws a record list on the left and the selected
// record's detail on the right. ids, when set, labels committed rows.
func (a App) renderRecordSplit(title string, recs []model.RunRecord, ids []int64, ls *listState, cw, h int, hint string) string {
	t := theme.Active

	leftW := max(cw*2/5, 40)
	rightW := cw - leftW
	leftInner := components.CardInnerWidth(leftW)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var left strings.Builder
	if ls.searching {
		left.WriteString(mutedStyle.Render("/ ") + ls.input.View() + "\n")
	} else if ls.query != "" {
		left.WriteString(mutedStyle.Render(fmt.Sprintf("filter: %s  [esc] clear", ls.query)) + "\n")
	}

	if len(recs) == 0 {
		left.WriteString(mutedStyle.Render("No matches"))
		return components.ContentCard(title, left.String(), cw)
	}

	visible := max(h-6, 5) // card border (2) + title (1) + hint (2) + filter (1)
	offset := ls.offset
	if ls.cursor < offset {
		offset = ls.cursor
	}
	if ls.cursor >= offset+visible {
		offset = ls.cursor - visible + 1
	}
	end := min(offset+visible, len(recs))

	for i := offset; i < end; i++ {
		r := recs[i]
		prefix := ""
		if ids != nil {
			prefix = fmt.Sprintf("#%-4d ", ids[i])
		}
		line := prefix + r.End.In(a.loc).Format("01-02 15:04") + " " +
			padRight(r.Dungeon, 12) + " " + padRight(r.Worker, 8) + " " + cli.FormatGold(r.PersonalSalary)
		line = padRight(truncWidth(line, leftInner), leftInner)
		if i == ls.cursor {
			left.WriteString(selectedStyle.Render(line))
		} else {
			left.WriteString(rowStyle.Render(line))
		}
		left.WriteString("\n")
	}
	left.WriteString("\n")
	left.WriteString(mutedStyle.Render(truncWidth(hint, leftInner)))

	sel := recs[ls.cursor]
	detail := a.renderRecordDetail(sel, rightW)
	detail = scrollLines(detail, ls.detailScroll)

	detailTitle := sel.Dungeon
	if ids != nil {
		detailTitle = fmt.Sprintf("#%d %s", ids[ls.cursor], sel.Dungeon)
	}

	return components.CardRow([]string{
		components.ContentCard(title, left.String(), leftW),
		components.ContentCard(detailTitle, detail, rightW),
	})
}

// renderRecordDetail lays out every field of one run.
func (a App) renderRecordDetail(r model.RunRecord, w int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	kv := func(label, value string) {
		b.WriteString(labelStyle.Render(padRight(label, 16)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	gold := func(label string, v int64) {
		b.WriteString(labelStyle.Render(padRight(label, 16)))
		b.WriteString(lipgloss.NewStyle().Foreground(t.Gain(v)).Background(t.Surface).Render(cli.FormatGold(v)))
		b.WriteString("\n")
	}
	section := func(name string) {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(name))
		b.WriteString("\n")
	}

	b.WriteString(valueStyle.Render(fmt.Sprintf("%s · %s · %s", r.Team, r.Worker, r.Source)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")

	kv("Start", cli.FormatTime(r.Start.In(a.loc)))
	kv("End", cli.FormatTime(r.End.In(a.loc)))
	if !r.Start.IsZero() && !r.End.IsZero() {
		kv("Duration", cli.FormatDuration(r.End.Sub(r.Start)))
	}
	kv("Leader", r.Leader)
	kv("File", r.File)

	section("TEAM")
	gold("Team total", r.TeamTotal)
	gold("Subsidy total", r.SubsidyTotal)
	gold("Distributable", r.Distributable)
	kv("Split", fmt.Sprintf("%d × %s", r.DistributionCount, cli.FormatGold(r.BaseSalary)))

	section("PAYOUT")
	gold("Personal", r.PersonalSalary)
	gold("Subsidy", r.Subsidy)
	gold("Penalty", r.PenaltyTotal)
	kv("Lie-downs", fmt.Sprintf("%d", r.LieDownCount))

	section("AUCTION")
	gold("Scattered", r.ScatteredTotal)
	gold("Iron", r.IronTotal)
	gold("Special", r.SpecialTotal)
	gold("Other", r.OtherTotal)

	section("SPENDING")
	gold("Scattered", r.ScatteredConsumption)
	gold("Iron", r.IronConsumption)
	gold("Special", r.SpecialConsumption)
	gold("Other", r.OtherConsumption)
	gold("Total", r.TotalConsumption)
	gold("Net", r.Net())

	if len(r.SpecialItems) > 0 {
		section("SPECIAL DROPS")
		for _, it := range r.SpecialItems {
			line := fmt.Sprintf("%s  %s", padRight(it.Item, 20), cli.FormatGold(it.Price))
			if it.Buyer != "" {
				line += "  " + it.Buyer
			}
			b.WriteString(valueStyle.Render(truncWidth(line, innerW)))
			b.WriteString("\n")
		}
	}
	if r.Note != "" {
		section("NOTE")
		b.WriteString(valueStyle.Render(r.Note))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// padRight pads s with spaces to display width w.
func padRight(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// truncWidth cuts s to display width w, marking the cut with an ellipsis.
func truncWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func scrollLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	n = min(n, len(lines)-1)
	return strings.Join(lines[n:], "\n")
}
