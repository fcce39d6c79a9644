package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/store"

	"github.com/spf13/cobra"
)

var flagDungeonDrops string

var dungeonsCmd = &cobra.Command{
	Use:   "dungeons",
	Short: "Manage the dungeon catalog and its special drops",
	RunE:  runDungeonsList,
}

var dungeonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dungeons",
	RunE:  runDungeonsList,
}

var dungeonsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a dungeon or replace its special drops",
	Args:  cobra.ExactArgs(1),
	RunE:  runDungeonsAdd,
}

var dungeonsRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a dungeon from the catalog",
	Args:    cobra.ExactArgs(1),
	RunE:    runDungeonsRemove,
}

var dungeonsImportCmd = &cobra.Command{
	Use:   "import <presets.yaml>",
	Short: "Add or update dungeons from a YAML presets file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDungeonsImport,
}

func init() {
	dungeonsAddCmd.Flags().StringVar(&flagDungeonDrops, "drops", "", "Special drops, comma separated")

	dungeonsCmd.AddCommand(dungeonsListCmd, dungeonsAddCmd, dungeonsRemoveCmd, dungeonsImportCmd)
	rootCmd.AddCommand(dungeonsCmd)
}

func runDungeonsList(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	dungeons, err := s.Dungeons()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(dungeons))
	for _, d := range dungeons {
		drops := strings.Join(d.SpecialDrops, ", ")
		if drops == "" {
			drops = "-"
		}
		rows = append(rows, []string{d.Name, drops})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Dungeons [%d]", len(dungeons)),
		Headers:   []string{"Name", "Special Drops"},
		Rows:      rows,
		LeftAlign: []int{1},
	}))
	return nil
}

func runDungeonsAdd(_ *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return errors.New("dungeon name is required")
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	d := model.Dungeon{Name: name, SpecialDrops: config.SplitDrops(flagDungeonDrops)}
	if err := s.UpsertDungeon(d); err != nil {
		return err
	}
	fmt.Printf("  Saved %s (%d special drops)\n", d.Name, len(d.SpecialDrops))
	return nil
}

func runDungeonsRemove(_ *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteDungeon(args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if _, ferr := resolveDungeon(s, args[0]); ferr != nil {
				return ferr
			}
		}
		return err
	}
	fmt.Printf("  Removed %s\n", args[0])
	return nil
}

func runDungeonsImport(_ *cobra.Command, args []string) error {
	presets, err := config.LoadPresetsFile(args[0])
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	for _, d := range presets {
		if err := s.UpsertDungeon(d); err != nil {
			return err
		}
	}
	fmt.Printf("  Imported %d dungeons from %s\n", len(presets), args[0])
	return nil
}
