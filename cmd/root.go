// Package cmd implements the runledger CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/observe"
	"github.com/theirongolddev/runledger/internal/pipeline"
	"github.com/theirongolddev/runledger/internal/store"
	"github.com/theirongolddev/runledger/internal/tui/theme"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	flagDB       string
	flagLogLevel string
	flagQuiet    bool
)

// Set once by PersistentPreRunE.
var (
	cfg    config.Config
	loc    *time.Location
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "runledger",
	Short: "JX3 dungeon run ledger",
	Long: "Reconstruct dungeon runs from JX3 chat logs, reconcile them against\n" +
		"the ledger of committed runs and report income and spending.",
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setupRuntime,
	RunE:              runStats,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Application database path (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// setupRuntime loads the config and installs the slog default logger.
func setupRuntime(_ *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ConfigPath(), err)
	}
	if flagLogLevel != "" {
		c.General.LogLevel = flagLogLevel
	}
	level, err := c.LogLevel()
	if err != nil {
		return err
	}
	cfg = c
	loc, _ = c.Location()
	theme.SetActive(c.Appearance.Theme)

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func dbPath() string {
	if flagDB != "" {
		return flagDB
	}
	return config.DBPath(cfg)
}

// openStore opens the application store, seeding the built-in dungeons the
// first time.
func openStore() (*store.Store, error) {
	s, err := store.Open(dbPath())
	if err != nil {
		return nil, err
	}
	if err := s.SeedDungeons(config.PresetDungeons()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("seeding dungeons: %w", err)
	}
	return s, nil
}

// buildAnalyzer wires the store's dungeon catalog and the configured
// keywords into an analyzer.
func buildAnalyzer(s *store.Store) (*analyzer.Analyzer, error) {
	dungeons, err := s.Dungeons()
	if err != nil {
		return nil, err
	}
	return analyzer.New(analyzer.NewResolver(dungeons), cfg.Analysis.Keywords(), loc), nil
}

// pipelineOptions returns batch options reading the store's ledger.
func pipelineOptions(s *store.Store) (pipeline.Options, error) {
	an, err := buildAnalyzer(s)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Analyzer:     an,
		Ledger:       s,
		BatchSize:    cfg.Analysis.BatchSize,
		MaxFileBytes: cfg.Analysis.MaxFileBytes(),
		Workers:      cfg.Analysis.Workers,
		Logger:       logger,
		Metrics:      observe.DefaultMetrics(),
	}, nil
}

func progressFunc() pipeline.ProgressFunc {
	if flagQuiet {
		return nil
	}
	return func(current, total int) {
		fmt.Fprintf(os.Stderr, "\r  Analyzing [%d/%d]", current, total)
	}
}

// analyze runs one batch over folders and reports the summary on stderr.
func analyze(s *store.Store, folders []model.Folder) (*pipeline.Result, error) {
	if len(folders) == 0 {
		return nil, errors.New("no folders to analyze; add one with `runledger folders add`")
	}
	opts, err := pipelineOptions(s)
	if err != nil {
		return nil, err
	}
	opts.Progress = progressFunc()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := pipeline.Run(ctx, folders, opts)
	if err != nil {
		return nil, err
	}
	if !flagQuiet {
		sum := res.Summary
		fmt.Fprintf(os.Stderr, "\r  Analyzed %d files in %s: %d new, %d duplicate, %d empty, %d skipped    \n",
			sum.Files, cli.FormatDuration(sum.Duration), sum.Produced, sum.Duplicates, sum.Empty, sum.Skipped)
		if sum.Malformed > 0 || sum.Discarded > 0 {
			fmt.Fprintf(os.Stderr, "  %s\n", cli.Muted(fmt.Sprintf(
				"%d malformed lines, %d purchases of other dungeons' special drops ignored", sum.Malformed, sum.Discarded)))
		}
		for _, fe := range sum.FileErrors {
			fmt.Fprintf(os.Stderr, "  %s\n", cli.Warn(fe.Error()))
		}
	}
	return res, nil
}

// resolveDungeon returns the catalog name matching name, with suggestions
// on a miss.
func resolveDungeon(s *store.Store, name string) (string, error) {
	catalog, err := s.Dungeons()
	if err != nil {
		return "", err
	}
	d, err := config.FindDungeon(catalog, strings.TrimSpace(name))
	if err != nil {
		return "", err
	}
	return d.Name, nil
}
