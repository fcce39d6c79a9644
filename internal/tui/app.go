// Package tui provides the interactive Bubble Tea dashboard for runledger.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/pipeline"
	"github.com/theirongolddev/runledger/internal/store"
	"github.com/theirongolddev/runledger/internal/tui/components"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Backend is the storage the dashboard reads history from and commits to.
// *store.Store satisfies it.
type Backend interface {
	Folders() ([]model.Folder, error)
	AddFolder(path, worker string) (model.Folder, error)
	ListRecords(f store.Filter, loc *time.Location) ([]model.StoredRecord, error)
	CommitRecord(rec model.RunRecord) (int64, error)
}

// Options configures the dashboard.
type Options struct {
	Backend  Backend
	Config   config.Config
	Location *time.Location
	// Pipeline carries the analyzer, ledger and tuning for each analysis.
	// Progress and Status are overwritten by the dashboard.
	Pipeline  pipeline.Options
	NeedSetup bool
	Logger    *slog.Logger
}

// ProgressMsg reports how many chat files the pipeline has finished.
type ProgressMsg struct {
	Current int
	Total   int
}

// FileStatusMsg reports the stage of the file being analyzed.
type FileStatusMsg struct {
	File    string
	Percent float64
	Status  string
}

// AnalysisDoneMsg is sent when a pipeline run and the history reload finish.
type AnalysisDoneMsg struct {
	Folders   []model.Folder
	Result    *pipeline.Result
	Committed []model.StoredRecord
	Elapsed   time.Duration
	Err       error
}

// CommitDoneMsg reports the outcome of committing a pending record.
type CommitDoneMsg struct {
	Record    model.RunRecord
	ID        int64
	Committed []model.StoredRecord
	Err       error
}

// App is the root Bubble Tea model.
type App struct {
	opts Options
	loc  *time.Location

	// Data
	folders   []model.Folder
	pending   []model.RunRecord
	committed []model.StoredRecord
	summary   pipeline.Summary
	loaded    bool
	loadTime  time.Duration
	lastRun   time.Time
	loadErr   error

	// Pre-computed from committed records
	stats        model.SummaryStats
	week         model.SummaryStats
	weekRecords  []model.RunRecord
	weekStart    time.Time
	workers      []model.WorkerStats
	dungeons     []model.DungeonStats
	weekly       []model.WeekEntry
	pendingStats model.SummaryStats

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	notice    string
	noticeErr bool

	// Per-tab state
	pendState  listState
	histState  listState
	statsTable table.Model
	settings   settingsState
	committing bool

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues // bound by setupForm
	needSetup bool

	// Analysis: channel-based progress subscription
	spinner     spinner.Model
	analyzing   bool
	progress    int
	progressMax int
	curFile     string
	curPct      float64
	curStatus   string
	loadSub     chan tea.Msg // progress + completion messages from the pipeline goroutine
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	scrollOverhead    = 10 // approximate header + status bar height for half-page calc
	minHalfPageScroll = 1
	minContentHeight  = 5
)

// NewApp creates the root model.
func NewApp(opts Options) App {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	theme.SetActive(opts.Config.Appearance.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		opts:       opts,
		loc:        opts.Location,
		needSetup:  opts.NeedSetup,
		spinner:    sp,
		pendState:  newListState(),
		histState:  newListState(),
		statsTable: newWorkerTable(),
		loadSub:    make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		analyzeCmd(a.opts, a.loadSub),
	)
}

func (a *App) recompute() {
	recs := pipeline.Unwrap(a.committed)
	now := time.Now().In(a.loc)

	a.stats = pipeline.Summarize(recs)
	start, end := pipeline.WeekBounds(now, a.loc)
	a.weekStart = start
	a.weekRecords = pipeline.FilterByTime(recs, start, end)
	a.week = pipeline.Summarize(a.weekRecords)
	a.workers = pipeline.ByWorker(recs)
	a.dungeons = pipeline.ByDungeon(recs)
	a.weekly = pipeline.Weekly(recs, "", now, a.loc)
	a.pendingStats = pipeline.Summarize(a.pending)
	a.statsTable.SetRows(workerRows(a.workers))

	a.pendState.clamp(len(a.filteredPending()))
	a.histState.clamp(len(a.filteredHistory()))
}

func (a *App) setNotice(msg string, isErr bool) {
	a.notice = msg
	a.noticeErr = isErr
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.statsTable.SetWidth(components.CardInnerWidth(a.contentWidth()))
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case ProgressMsg:
		a.progress = max(a.progress, msg.Current)
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case FileStatusMsg:
		a.curFile = msg.File
		a.curPct = msg.Percent
		a.curStatus = msg.Status
		return a, waitForLoadMsg(a.loadSub)

	case AnalysisDoneMsg:
		return a.finishAnalysis(msg)

	case CommitDoneMsg:
		a.committing = false
		if msg.Err != nil {
			a.setNotice("commit failed: "+msg.Err.Error(), true)
			return a, nil
		}
		a.pending = removeUID(a.pending, msg.Record.UID)
		if msg.Committed != nil {
			a.committed = msg.Committed
		}
		a.recompute()
		a.setNotice(fmt.Sprintf("committed %s #%d (%s)",
			msg.Record.Dungeon, msg.ID, cli.FormatGold(msg.Record.PersonalSalary)), false)
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.analyzing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) finishAnalysis(msg AnalysisDoneMsg) (tea.Model, tea.Cmd) {
	firstLoad := !a.loaded
	a.loaded = true
	a.analyzing = false
	a.loadTime = msg.Elapsed
	a.lastRun = time.Now()
	a.loadErr = msg.Err
	a.progress, a.progressMax = 0, 0
	a.curFile = ""

	a.folders = msg.Folders
	if msg.Result != nil {
		a.pending = msg.Result.Pending()
		a.summary = msg.Result.Summary
	}
	switch {
	case msg.Err != nil:
		a.setNotice("analysis failed: "+msg.Err.Error(), true)
	default:
		a.committed = msg.Committed
		if !firstLoad {
			a.setNotice(fmt.Sprintf("%d pending", len(a.pending)), false)
		}
	}
	a.recompute()

	if firstLoad && a.needSetup {
		a.setupVals = &setupValues{}
		a.setupForm = newSetupForm(a.opts.Config, a.setupVals)
		if a.width > 0 {
			a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
		}
		return a, a.setupForm.Init()
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup wizard intercepts all keys
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == components.TabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}
	if ls := a.activeList(); ls != nil && ls.searching {
		return a.updateSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	a.notice = ""

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		return a.startAnalysis()
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	var (
		handled bool
		next    tea.Model = a
		cmd     tea.Cmd
	)
	switch a.activeTab {
	case components.TabPending, components.TabHistory:
		next, cmd, handled = a.updateRecordList(key)
	case components.TabStats:
		next, cmd, handled = a.updateStats(msg)
	case components.TabSettings:
		next, cmd, handled = a.updateSettings(key)
	}
	if handled {
		return next, cmd
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		ls := a.activeList()
		if ls == nil || ls.searching {
			return a, nil
		}
		n := a.activeListLen()
		if msg.Button == tea.MouseButtonWheelUp {
			ls.move(-1, n)
		} else {
			ls.move(1, n)
		}
		return a, nil

	case tea.MouseButtonLeft:
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) startAnalysis() (tea.Model, tea.Cmd) {
	if a.analyzing {
		return a, nil
	}
	a.analyzing = true
	a.progress, a.progressMax = 0, 0
	return a, tea.Batch(a.spinner.Tick, analyzeCmd(a.opts, a.loadSub))
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.needSetup = false
		a.setupForm = nil
		cfg, err := a.saveSetup()
		if err != nil {
			a.setNotice("setup: "+err.Error(), true)
			return a, nil
		}
		a.opts.Config = cfg
		a.setNotice("folder added, analyzing", false)
		return a.startAnalysis()
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  runledger needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ runledger"))
	b.WriteString(subtitleStyle.Render(" · 副本记录"))
	b.WriteString("\n\n")
	b.WriteString(a.analysisProgress(subtitleStyle, countStyle))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

// analysisProgress renders the spinner, the overall file bar and the
// current file's stage.
func (a App) analysisProgress(textStyle, countStyle lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(a.spinner.View())
	if a.progressMax == 0 && a.curFile == "" {
		b.WriteString(textStyle.Render(" Scanning chat logs..."))
		return b.String()
	}

	barW := min(max(a.width-40, 20), 40)
	pct := 0.0
	if a.progressMax > 0 {
		pct = float64(a.progress) / float64(a.progressMax)
	}
	b.WriteString(textStyle.Render(" Analyzing chat logs\n\n"))
	b.WriteString(components.ProgressBar(pct, barW))
	b.WriteString("\n")
	b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
	b.WriteString(textStyle.Render(" / "))
	b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	b.WriteString(textStyle.Render(" files"))
	if a.curFile != "" {
		b.WriteString("\n\n")
		b.WriteString(components.FileProgress(a.curFile, a.curStatus, a.curPct/100, 16, barW-10))
	}
	return b.String()
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, title string, binds []struct{ key, desc string }) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", []struct{ key, desc string }{
		{"o p h s x", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Navigate lists"},
		{"g G", "First / Last record"},
		{"J K", "Scroll detail pane"},
		{"^d ^u", "Half-page scroll"},
	})
	b.WriteString("\n")
	section(&b, "Actions", []struct{ key, desc string }{
		{"c", "Commit selected pending run"},
		{"/", "Search records"},
		{"Enter", "Edit setting / Confirm"},
		{"Esc", "Clear search / Cancel"},
		{"r", "Re-analyze chat logs"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)
	statusBar := components.RenderStatusBar(w, components.Status{
		Message:   a.notice,
		IsError:   a.noticeErr,
		Analyzing: a.analyzing,
		Spinner:   a.spinner.View(),
		Info:      a.statusInfo(),
	})

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case components.TabOverview:
		content = a.renderOverviewTab(cw)
	case components.TabPending:
		content = a.renderPendingTab(cw, contentH)
	case components.TabHistory:
		content = a.renderHistoryTab(cw, contentH)
	case components.TabStats:
		content = a.renderStatsTab(cw)
	case components.TabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) statusInfo() string {
	if a.lastRun.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d pending · %d committed · %s",
		len(a.pending), len(a.committed), cli.FormatDuration(a.loadTime))
}

// ─── Commands ───────────────────────────────────────────────────

// analyzeCmd runs the pipeline in a background goroutine. It streams
// ProgressMsg and FileStatusMsg updates and a final AnalysisDoneMsg
// through sub.
func analyzeCmd(opts Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking sends so workers aren't stalled; the next
			// update catches up.
			popts := opts.Pipeline
			popts.Logger = opts.Logger
			popts.Progress = func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			popts.Status = func(file string, pct float64, status string) {
				select {
				case sub <- FileStatusMsg{File: file, Percent: pct, Status: status}:
				default:
				}
			}

			sub <- runAnalysis(context.Background(), opts, popts, start)
		}()
		return <-sub
	}
}

func runAnalysis(ctx context.Context, opts Options, popts pipeline.Options, start time.Time) AnalysisDoneMsg {
	if opts.Backend == nil {
		return AnalysisDoneMsg{Err: errors.New("no store configured"), Elapsed: time.Since(start)}
	}
	folders, err := opts.Backend.Folders()
	if err != nil {
		return AnalysisDoneMsg{Err: err, Elapsed: time.Since(start)}
	}
	res, err := pipeline.Run(ctx, folders, popts)
	if err != nil {
		return AnalysisDoneMsg{Folders: folders, Err: err, Elapsed: time.Since(start)}
	}
	committed, err := opts.Backend.ListRecords(store.Filter{}, opts.Location)
	return AnalysisDoneMsg{
		Folders:   folders,
		Result:    res,
		Committed: committed,
		Err:       err,
		Elapsed:   time.Since(start),
	}
}

// waitForLoadMsg blocks until the next message arrives from the pipeline goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// commitCmd stores rec and reloads the committed history.
func commitCmd(b Backend, rec model.RunRecord, loc *time.Location) tea.Cmd {
	return func() tea.Msg {
		id, err := b.CommitRecord(rec)
		if err != nil {
			return CommitDoneMsg{Record: rec, Err: err}
		}
		committed, err := b.ListRecords(store.Filter{}, loc)
		if err != nil {
			committed = nil
		}
		return CommitDoneMsg{Record: rec, ID: id, Committed: committed}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func removeUID(recs []model.RunRecord, uid string) []model.RunRecord {
	out := recs[:0:0]
	for _, r := range recs {
		if r.UID != uid {
			out = append(out, r)
		}
	}
	return out
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}
