package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/source"

	"github.com/spf13/cobra"
)

var flagFolderWorker string

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Manage the game folders to analyze",
	RunE:  runFoldersList,
}

var foldersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered folders",
	RunE:  runFoldersList,
}

var foldersAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a game folder (the one holding userdata/chat_log)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFoldersAdd,
}

var foldersRemoveCmd = &cobra.Command{
	Use:     "remove <path>",
	Aliases: []string{"rm"},
	Short:   "Unregister a folder",
	Args:    cobra.ExactArgs(1),
	RunE:    runFoldersRemove,
}

func init() {
	foldersAddCmd.Flags().StringVar(&flagFolderWorker, "worker", "", "Worker name (default: folder name)")

	foldersCmd.AddCommand(foldersListCmd, foldersAddCmd, foldersRemoveCmd)
	rootCmd.AddCommand(foldersCmd)
}

func runFoldersList(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	folders, err := s.Folders()
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Println("\n  No folders registered. Add one with `runledger folders add <path>`.")
		return nil
	}

	rows := make([][]string, 0, len(folders))
	for _, f := range folders {
		state := "ok"
		if err := source.ValidateFolder(f.Path); err != nil {
			state = cli.Warn("missing chat_log")
		}
		rows = append(rows, []string{strconv.FormatInt(f.ID, 10), f.Path, f.Worker, state})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Folders [%d]", len(folders)),
		Headers:   []string{"ID", "Path", "Worker", "State"},
		Rows:      rows,
		LeftAlign: []int{1, 2, 3},
	}))
	return nil
}

func runFoldersAdd(_ *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if err := source.ValidateFolder(path); err != nil {
		return err
	}
	worker := flagFolderWorker
	if worker == "" {
		worker = source.DefaultWorker(path)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	f, err := s.AddFolder(path, worker)
	if err != nil {
		return err
	}
	fmt.Printf("  Added folder #%d %s (worker %s)\n", f.ID, f.Path, f.Worker)
	return nil
}

func runFoldersRemove(_ *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	path := args[0]
	if abs, err := filepath.Abs(path); err == nil {
		if err := s.RemoveFolder(abs); err == nil {
			fmt.Printf("  Removed %s\n", abs)
			return nil
		}
	}
	if err := s.RemoveFolder(path); err != nil {
		return err
	}
	fmt.Printf("  Removed %s\n", path)
	return nil
}
