package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/runledger/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Database:    %s\n", dbPath())
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", config.DataDir(cfg))
	fmt.Printf("    Log level:      %s\n", cfg.General.LogLevel)
	fmt.Printf("    Timezone:       %s\n", loc)
	fmt.Println()

	fmt.Println("  [Analysis]")
	fmt.Printf("    Batch size:         %d rows\n", cfg.Analysis.BatchSize)
	fmt.Printf("    Max file size:      %d MB\n", cfg.Analysis.MaxFileMB)
	if cfg.Analysis.Workers == 0 {
		fmt.Println("    Workers:            auto")
	} else {
		fmt.Printf("    Workers:            %d\n", cfg.Analysis.Workers)
	}
	kw := cfg.Analysis.Keywords()
	fmt.Printf("    Scattered keywords: %s\n", strings.Join(kw.Scattered, ", "))
	fmt.Printf("    Iron keywords:      %s\n", strings.Join(kw.Iron, ", "))
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.Daemon.Interval)
	fmt.Printf("    Watch:    %v\n", cfg.Daemon.Watch)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `runledger setup` to reconfigure.")
	return nil
}
