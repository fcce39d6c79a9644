package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/theirongolddev/runledger/internal/export"
	"github.com/theirongolddev/runledger/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagExportFormat string
	flagExportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dungeon catalog and committed runs",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import dungeons and runs from a JSON export",
	Long: "Import a JSON export. New dungeons are added; a run is skipped when its\n" +
		"dungeon is unknown or a run with the same dungeon, end time and worker exists.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	addRecordFilterFlags(exportCmd)
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", "json", "Output format: json or csv")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "-", "Output file (- for stdout)")

	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	f, err := recordFilter(s)
	if err != nil {
		return err
	}
	stored, err := s.ListRecords(f, loc)
	if err != nil {
		return err
	}

	switch flagExportFormat {
	case "json":
		dungeons, err := s.Dungeons()
		if err != nil {
			return err
		}
		doc := export.Build(dungeons, stored, time.Now().In(loc))
		return writeOutput(flagExportOutput, func(w io.Writer) error {
			return export.WriteJSON(w, doc)
		})
	case "csv":
		return writeOutput(flagExportOutput, func(w io.Writer) error {
			return export.WriteCSV(w, pipeline.Unwrap(stored))
		})
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", flagExportFormat)
	}
}

func runImport(_ *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	doc, err := export.ReadJSON(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	st, err := export.Import(s, doc, loc)
	if err != nil {
		return err
	}
	fmt.Printf("  Dungeons: %d added, %d skipped\n", st.DungeonsAdded, st.DungeonsSkipped)
	fmt.Printf("  Runs:     %d added, %d skipped\n", st.RecordsAdded, st.RecordsSkipped)
	return nil
}
