package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/tui/components"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldTheme = iota
	settingsFieldBatchSize
	settingsFieldMaxFileMB
	settingsFieldWorkers
	settingsFieldDaemonInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

func (a App) updateSettings(key string) (_ tea.Model, _ tea.Cmd, handled bool) {
	switch key {
	case "j", "down":
		a.settings.cursor = min(a.settings.cursor+1, settingsFieldCount-1)
	case "k", "up":
		a.settings.cursor = max(a.settings.cursor-1, 0)
	case "enter":
		m, cmd := a.settingsStartEdit()
		return m, cmd, true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := a.opts.Config
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldBatchSize:
		ti.Placeholder = "5000"
		ti.SetValue(strconv.Itoa(cfg.Analysis.BatchSize))
	case settingsFieldMaxFileMB:
		ti.Placeholder = "100"
		ti.SetValue(strconv.Itoa(cfg.Analysis.MaxFileMB))
	case settingsFieldWorkers:
		ti.Placeholder = "0 = one per CPU"
		ti.SetValue(strconv.Itoa(cfg.Analysis.Workers))
	case settingsFieldDaemonInterval:
		ti.Placeholder = "2m"
		ti.SetValue(cfg.Daemon.Interval)
	}

	cmd := ti.Focus()
	a.settings.input = ti
	return a, cmd
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave applies the edited field, validates the whole config and
// writes it. Analysis settings take effect on the next [r].
func (a *App) settingsSave() {
	cfg := a.opts.Config
	val := strings.TrimSpace(a.settings.input.Value())

	atoi := func(field string) (int, bool) {
		n, err := strconv.Atoi(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("%s: %q is not a number", field, val)
			return 0, false
		}
		return n, true
	}

	switch a.settings.cursor {
	case settingsFieldTheme:
		if !theme.Valid(val) {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return
		}
		cfg.Appearance.Theme = val
	case settingsFieldBatchSize:
		n, ok := atoi("batch size")
		if !ok {
			return
		}
		cfg.Analysis.BatchSize = n
	case settingsFieldMaxFileMB:
		n, ok := atoi("max file size")
		if !ok {
			return
		}
		cfg.Analysis.MaxFileMB = n
	case settingsFieldWorkers:
		n, ok := atoi("workers")
		if !ok {
			return
		}
		cfg.Analysis.Workers = n
	case settingsFieldDaemonInterval:
		cfg.Daemon.Interval = val
	}

	if err := cfg.Validate(); err != nil {
		a.settings.saveErr = err
		return
	}
	if err := config.Save(cfg); err != nil {
		a.settings.saveErr = err
		return
	}
	a.settings.saveErr = nil
	a.opts.Config = cfg

	theme.SetActive(cfg.Appearance.Theme)
	a.statsTable.SetStyles(tableStyles())
	a.spinner.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)
	a.opts.Pipeline.BatchSize = cfg.Analysis.BatchSize
	a.opts.Pipeline.MaxFileBytes = cfg.Analysis.MaxFileBytes()
	a.opts.Pipeline.Workers = cfg.Analysis.Workers
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.opts.Config

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	workers := strconv.Itoa(cfg.Analysis.Workers)
	if cfg.Analysis.Workers == 0 {
		workers = "auto"
	}
	fields := []struct{ label, value string }{
		{"Theme", cfg.Appearance.Theme},
		{"Batch Size", cli.FormatNumber(int64(cfg.Analysis.BatchSize)) + " rows"},
		{"Max File Size", strconv.Itoa(cfg.Analysis.MaxFileMB) + " MB"},
		{"Workers", workers},
		{"Daemon Interval", cfg.Daemon.Interval},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		switch {
		case a.settings.editing && i == a.settings.cursor:
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			form.WriteString(a.settings.input.View())
		case i == a.settings.cursor:
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			form.WriteString(marker + label + value)
			if pad := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		default:
			form.WriteString(labelStyle.Render("  "))
			form.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			form.WriteString(valueStyle.Render(f.value))
		}
		form.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		form.WriteString("\n")
		form.WriteString(warnStyle.Render("Save failed: " + a.settings.saveErr.Error()))
		form.WriteString("\n")
	} else if a.settings.saved {
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved. Analysis settings apply on the next [r]."))
		form.WriteString("\n")
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	row := func(label, value string) {
		info.WriteString(labelStyle.Render(fmt.Sprintf("%-17s", label)) + valueStyle.Render(value) + "\n")
	}
	row("Config file:", config.ConfigPath())
	row("Database:", config.DBPath(cfg))
	row("Timezone:", a.loc.String())
	row("Committed runs:", cli.FormatNumber(int64(len(a.committed))))
	if len(a.folders) == 0 {
		row("Folders:", "(none, add one with runledger folders add)")
	}
	for i, f := range a.folders {
		label := ""
		if i == 0 {
			label = "Folders:"
		}
		row(label, truncWidth(fmt.Sprintf("%s  [%s]", f.Path, f.Worker), innerW-17))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", form.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", strings.TrimRight(info.String(), "\n"), cw))
	return b.String()
}
