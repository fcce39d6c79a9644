package tui

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/source"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues holds the first-run answers bound to the huh form.
type setupValues struct {
	folder string
	worker string
	theme  string
}

func newSetupForm(cfg config.Config, vals *setupValues) *huh.Form {
	vals.theme = cfg.Appearance.Theme
	if !theme.Valid(vals.theme) {
		vals.theme = theme.FlexokiDark.Name
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to runledger").
				Description("Point runledger at a game folder and it will pick up\nevery recorded run from its chat logs."),
			huh.NewInput().
				Title("Game folder").
				Description("The folder holding userdata/chat_log").
				Placeholder(`D:\JX3\bin\zhcn_hd\userdata\...`).
				Value(&vals.folder).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return errors.New("folder is required")
					}
					return source.ValidateFolder(s)
				}),
			huh.NewInput().
				Title("Worker name").
				Description("Leave blank to use the folder name").
				Value(&vals.worker),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.theme),
		),
	).WithTheme(huh.ThemeDracula())
}

// saveSetup registers the chosen folder and persists the theme.
func (a *App) saveSetup() (config.Config, error) {
	cfg := a.opts.Config
	folder := filepath.Clean(strings.TrimSpace(a.setupVals.folder))
	worker := strings.TrimSpace(a.setupVals.worker)
	if worker == "" {
		worker = source.DefaultWorker(folder)
	}

	if a.opts.Backend == nil {
		return cfg, errors.New("no store configured")
	}
	if _, err := a.opts.Backend.AddFolder(folder, worker); err != nil {
		return cfg, err
	}

	if theme.Valid(a.setupVals.theme) {
		cfg.Appearance.Theme = a.setupVals.theme
		theme.SetActive(cfg.Appearance.Theme)
	}
	return cfg, config.Save(cfg)
}
