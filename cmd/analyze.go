package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/export"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/source"
	"github.com/theirongolddev/runledger/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagAnalyzeFolders []string
	flagAnalyzeWorker  string
	flagAnalyzeCommit  bool
	flagAnalyzeJSON    string
	flagAnalyzeCSV     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find runs in chat logs that are not in the ledger yet",
	Long: "Analyze every registered folder (or the ones given with --folder) and\n" +
		"print the runs whose UID is not committed. --commit stores them all.",
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&flagAnalyzeFolders, "folder", nil, "Game folder to analyze instead of the registered ones (repeatable)")
	analyzeCmd.Flags().StringVar(&flagAnalyzeWorker, "worker", "", "Worker name for --folder (default: folder name)")
	analyzeCmd.Flags().BoolVar(&flagAnalyzeCommit, "commit", false, "Commit every pending run")
	analyzeCmd.Flags().StringVar(&flagAnalyzeJSON, "json", "", "Write pending runs as JSON to FILE (- for stdout)")
	analyzeCmd.Flags().StringVar(&flagAnalyzeCSV, "csv", "", "Write pending runs as CSV to FILE (- for stdout)")
	analyzeCmd.MarkFlagsMutuallyExclusive("json", "csv")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	folders, err := analyzeFolders(s)
	if err != nil {
		return err
	}
	res, err := analyze(s, folders)
	if err != nil {
		return err
	}
	pending := res.Pending()

	switch {
	case flagAnalyzeJSON != "":
		if err := writeOutput(flagAnalyzeJSON, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(pending)
		}); err != nil {
			return err
		}
	case flagAnalyzeCSV != "":
		if err := writeOutput(flagAnalyzeCSV, func(w io.Writer) error {
			return export.WriteCSV(w, pending)
		}); err != nil {
			return err
		}
	default:
		if len(pending) == 0 {
			fmt.Println("\n  No new runs found.")
			return nil
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(runTable(fmt.Sprintf("Pending Runs [%d]", len(pending)), pending, nil)))
	}

	if !flagAnalyzeCommit {
		if len(pending) > 0 && flagAnalyzeJSON == "" && flagAnalyzeCSV == "" {
			fmt.Println()
			fmt.Println(cli.Muted("  Commit with `runledger commit <uid>...` or `runledger analyze --commit`."))
		}
		return nil
	}
	return commitRecords(s, pending)
}

func analyzeFolders(s *store.Store) ([]model.Folder, error) {
	if len(flagAnalyzeFolders) == 0 {
		return s.Folders()
	}
	folders := make([]model.Folder, 0, len(flagAnalyzeFolders))
	for _, p := range flagAnalyzeFolders {
		p = filepath.Clean(p)
		if err := source.ValidateFolder(p); err != nil {
			return nil, err
		}
		worker := flagAnalyzeWorker
		if worker == "" {
			worker = source.DefaultWorker(p)
		}
		folders = append(folders, model.Folder{Path: p, Worker: worker})
	}
	return folders, nil
}

// commitRecords stores recs, reporting each on stdout. Runs already in the
// ledger are skipped.
func commitRecords(s *store.Store, recs []model.RunRecord) error {
	var committed, skipped int
	for _, r := range recs {
		id, err := s.CommitRecord(r)
		switch {
		case errors.Is(err, store.ErrAlreadyFilled):
			skipped++
			fmt.Printf("  %s %s already committed\n", r.UID, r.Dungeon)
		case err != nil:
			return fmt.Errorf("committing %s: %w", r.UID, err)
		default:
			committed++
			fmt.Printf("  #%d  %s  %s  %s  %s\n", id, r.UID, cli.FormatTime(r.End), r.Dungeon, cli.Gold(r.PersonalSalary))
		}
	}
	fmt.Printf("\n  Committed %d runs", committed)
	if skipped > 0 {
		fmt.Printf(", %d already in the ledger", skipped)
	}
	fmt.Println()
	return nil
}

// runTable renders recs. ids, when set, adds a leading ID column.
func runTable(title string, recs []model.RunRecord, ids []int64) cli.Table {
	headers := []string{"UID", "End", "Dungeon", "Team", "Worker", "Leader", "Personal", "Spending", "Net", "Note"}
	if ids != nil {
		headers = append([]string{"ID"}, headers...)
	}
	rows := make([][]string, 0, len(recs))
	for i, r := range recs {
		row := []string{
			r.UID,
			r.End.Format("01-02 15:04"),
			r.Dungeon,
			string(r.Team),
			r.Worker,
			r.Leader,
			cli.FormatGold(r.PersonalSalary),
			cli.FormatGold(r.TotalConsumption),
			cli.FormatGold(r.Net()),
			r.Note,
		}
		if ids != nil {
			row = append([]string{strconv.FormatInt(ids[i], 10)}, row...)
		}
		rows = append(rows, row)
	}
	left := []int{1, 2, 3, 4, 5, 9}
	if ids != nil {
		left = []int{1, 2, 3, 4, 5, 6, 10}
	}
	return cli.Table{Title: title, Headers: headers, Rows: rows, LeftAlign: left}
}

// writeOutput runs write against path, or stdout for "-".
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path) //nolint:gosec // user-chosen output path
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  Wrote %s\n", path)
	return nil
}
