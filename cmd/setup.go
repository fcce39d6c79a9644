package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/source"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	c := cfg
	var folder, worker string
	tz := c.General.Timezone
	level := c.General.LogLevel
	themeName := c.Appearance.Theme
	if !theme.Valid(themeName) {
		themeName = theme.FlexokiDark.Name
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to runledger").
				Description("Register a game folder and pick how runs are shown.\nEvery answer can be changed later."),
			huh.NewInput().
				Title("Game folder").
				Description("The folder holding userdata/chat_log. Leave blank to skip.").
				Value(&folder).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					return source.ValidateFolder(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Worker name").
				Description("Leave blank to use the folder name").
				Value(&worker),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Timezone").
				Description("IANA name such as Asia/Shanghai. Leave blank for the system zone.").
				Value(&tz).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := time.LoadLocation(strings.TrimSpace(s))
					return err
				}),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&level),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&themeName),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}

	c.General.Timezone = strings.TrimSpace(tz)
	c.General.LogLevel = level
	c.Appearance.Theme = themeName
	if err := c.Validate(); err != nil {
		return err
	}
	if err := config.Save(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())

	if folder = strings.TrimSpace(folder); folder != "" {
		path, err := filepath.Abs(folder)
		if err != nil {
			return err
		}
		if worker = strings.TrimSpace(worker); worker == "" {
			worker = source.DefaultWorker(path)
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		if _, err := s.AddFolder(path, worker); err != nil {
			return err
		}
		fmt.Printf("  Registered %s (worker %s)\n", path, worker)
	}
	fmt.Println("  Run `runledger setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
