package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/pipeline"
	"github.com/theirongolddev/runledger/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagRecDungeon string
	flagRecWorker  string
	flagRecLeader  string
	flagRecItem    string
	flagRecTeam    string
	flagRecSince   string
	flagRecUntil   string
	flagRecLimit   int
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List committed runs",
	RunE:  runRecords,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one committed run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a committed run (its UID stays in the ledger)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsDelete,
}

func init() {
	addRecordFilterFlags(recordsCmd)
	recordsCmd.Flags().IntVarP(&flagRecLimit, "limit", "l", 50, "Max runs to show (0 = all)")

	recordsCmd.AddCommand(recordsShowCmd, recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}

func addRecordFilterFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagRecDungeon, "dungeon", "", "Filter by dungeon")
	c.Flags().StringVar(&flagRecWorker, "worker", "", "Filter by worker")
	c.Flags().StringVar(&flagRecLeader, "leader", "", "Filter by team leader")
	c.Flags().StringVar(&flagRecItem, "item", "", "Filter by special item bought (substring)")
	c.Flags().StringVar(&flagRecTeam, "team", "", "Filter by team type: 10 or 25")
	c.Flags().StringVar(&flagRecSince, "since", "", "Runs ending on or after DATE (YYYY-MM-DD)")
	c.Flags().StringVar(&flagRecUntil, "until", "", "Runs ending on or before DATE (YYYY-MM-DD)")
}

// recordFilter builds a store filter from the shared filter flags.
func recordFilter(s *store.Store) (store.Filter, error) {
	f := store.Filter{
		Worker: flagRecWorker,
		Leader: flagRecLeader,
		Item:   flagRecItem,
	}
	if flagRecDungeon != "" {
		name, err := resolveDungeon(s, flagRecDungeon)
		if err != nil {
			return f, err
		}
		f.Dungeon = name
	}
	switch flagRecTeam {
	case "":
	case "10", string(model.TeamTen):
		f.Team = model.TeamTen
	case "25", string(model.TeamTwentyFive):
		f.Team = model.TeamTwentyFive
	default:
		return f, fmt.Errorf("--team must be 10 or 25, got %q", flagRecTeam)
	}

	var err error
	if flagRecSince != "" {
		if f.Since, err = time.ParseInLocation(time.DateOnly, flagRecSince, loc); err != nil {
			return f, fmt.Errorf("--since: %w", err)
		}
	}
	if flagRecUntil != "" {
		until, err := time.ParseInLocation(time.DateOnly, flagRecUntil, loc)
		if err != nil {
			return f, fmt.Errorf("--until: %w", err)
		}
		f.Until = until.AddDate(0, 0, 1).Add(-time.Second)
	}
	return f, nil
}

func runRecords(_ *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	f, err := recordFilter(s)
	if err != nil {
		return err
	}
	f.Limit = flagRecLimit

	stored, err := s.ListRecords(f, loc)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Println("\n  No committed runs match.")
		return nil
	}

	ids := make([]int64, len(stored))
	for i, r := range stored {
		ids[i] = r.ID
	}
	recs := pipeline.Unwrap(stored)
	sum := pipeline.Summarize(recs)

	fmt.Println()
	fmt.Print(cli.RenderTable(runTable(fmt.Sprintf("Committed Runs [%d]", len(stored)), recs, ids)))
	fmt.Printf("\n  Personal %s  Spending %s  Net %s\n",
		cli.Gold(sum.PersonalTotal), cli.Gold(sum.ConsumptionTotal), cli.Gold(sum.NetTotal))
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}

func runRecordsShow(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	r, err := s.GetRecord(id, loc)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"UID", r.UID},
		{"Dungeon", r.Dungeon},
		{"Team", string(r.Team)},
		{"Start", cli.FormatTime(r.Start)},
		{"End", cli.FormatTime(r.End)},
		{"Duration", cli.FormatDuration(r.End.Sub(r.Start))},
		{"Leader", r.Leader},
		{"Worker", r.Worker},
		{"---"},
		{"Team Total", cli.FormatGold(r.TeamTotal)},
		{"Subsidy Total", cli.FormatGold(r.SubsidyTotal)},
		{"Distributable", cli.FormatGold(r.Distributable)},
		{"Shares", strconv.Itoa(r.DistributionCount)},
		{"Base Salary", cli.FormatGold(r.BaseSalary)},
		{"Personal", cli.FormatGold(r.PersonalSalary)},
		{"Subsidy", cli.FormatGold(r.Subsidy)},
		{"Penalties", cli.FormatGold(r.PenaltyTotal)},
		{"---"},
		{"Scattered", cli.FormatGold(r.ScatteredTotal)},
		{"Iron", cli.FormatGold(r.IronTotal)},
		{"Special", cli.FormatGold(r.SpecialTotal)},
		{"Other", cli.FormatGold(r.OtherTotal)},
		{"---"},
		{"Spent: Scattered", cli.FormatGold(r.ScatteredConsumption)},
		{"Spent: Iron", cli.FormatGold(r.IronConsumption)},
		{"Spent: Special", cli.FormatGold(r.SpecialConsumption)},
		{"Spent: Other", cli.FormatGold(r.OtherConsumption)},
		{"Spent: Total", cli.FormatGold(r.TotalConsumption)},
		{"Net", cli.FormatGold(r.Net())},
		{"---"},
		{"Special Items", cli.FormatSpecials(r.SpecialItems)},
		{"Lie-downs", strconv.Itoa(r.LieDownCount)},
		{"Note", r.Note},
		{"Source", r.Source.String() + "  " + r.File},
		{"Committed", cli.FormatTime(r.CommittedAt.In(loc))},
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Run #%d", r.ID),
		Rows:      rows,
		LeftAlign: []int{1},
	}))
	return nil
}

func runRecordsDelete(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteRecord(id); err != nil {
		return err
	}
	fmt.Printf("  Deleted run #%d\n", id)
	return nil
}
