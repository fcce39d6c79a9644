package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	popts, err := pipelineOptions(s)
	if err != nil {
		return err
	}
	folders, err := s.Folders()
	if err != nil {
		return err
	}

	// Log lines on stderr would tear the alt screen.
	if err := os.MkdirAll(config.DataDir(cfg), 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	logPath := filepath.Join(config.DataDir(cfg), "tui.log")
	logf, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // path under the data dir
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logf.Close() }()
	level, _ := cfg.LogLevel()
	tuiLogger := slog.New(slog.NewTextHandler(logf, &slog.HandlerOptions{Level: level}))
	popts.Logger = tuiLogger

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Backend:   s,
		Config:    cfg,
		Location:  loc,
		Pipeline:  popts,
		NeedSetup: !config.Exists() || len(folders) == 0,
		Logger:    tuiLogger,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
