package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/pipeline"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	flagStatsWorkers bool
	flagStatsWeekly  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Income and spending across committed runs",
	RunE:  runStats,
}

func init() {
	addRecordFilterFlags(statsCmd)
	statsCmd.Flags().BoolVar(&flagStatsWorkers, "workers", false, "Break totals down per worker")
	statsCmd.Flags().BoolVar(&flagStatsWeekly, "weekly", false, "List this week's runs")
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
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
	if len(stored) == 0 {
		fmt.Println("\n  No committed runs yet.")
		fmt.Println("  Register a folder with `runledger folders add`, then run `runledger analyze`.")
		return nil
	}
	recs := pipeline.Unwrap(stored)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("RUN LEDGER  %d runs", len(recs))))
	fmt.Println()
	fmt.Print(cli.RenderTable(summaryTable(pipeline.Summarize(recs))))

	if flagStatsWorkers {
		fmt.Println()
		fmt.Print(cli.RenderTable(workerTable(pipeline.ByWorker(recs))))
	} else {
		fmt.Println()
		renderDungeonBars(pipeline.ByDungeon(recs))
	}

	if flagStatsWeekly {
		fmt.Println()
		renderWeekly(pipeline.Weekly(recs, flagRecWorker, time.Now(), loc))
	}
	return nil
}

func summaryTable(st model.SummaryStats) cli.Table {
	return cli.Table{
		Headers: []string{"", "Total", "Max"},
		Rows: [][]string{
			{"Runs", cli.FormatNumber(int64(st.Records)), ""},
			{"Team Total", cli.FormatGold(st.TeamTotal), cli.FormatGold(st.TeamMax)},
			{"Personal", cli.FormatGold(st.PersonalTotal), cli.FormatGold(st.PersonalMax)},
			{"Spending", cli.FormatGold(st.ConsumptionTotal), cli.FormatGold(st.ConsumptionMax)},
			{"---"},
			{"Net", cli.FormatGold(st.NetTotal), cli.FormatGold(st.NetMax)},
			{"Lie-downs", strconv.Itoa(st.LieDowns), ""},
		},
	}
}

func workerTable(ws []model.WorkerStats) cli.Table {
	rows := make([][]string, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, []string{
			w.Worker,
			strconv.Itoa(w.Records),
			cli.FormatGold(w.IncomeTotal),
			cli.FormatGold(w.IncomeAvg),
			cli.FormatGold(w.IncomeMax),
			cli.FormatGold(w.ConsumptionTotal),
			cli.FormatGold(w.ConsumptionAvg),
			cli.FormatGold(w.ConsumptionMax),
			cli.FormatGold(w.Net),
		})
	}
	return cli.Table{
		Title:   "By Worker",
		Headers: []string{"Worker", "Runs", "Income", "Avg", "Max", "Spending", "Avg", "Max", "Net"},
		Rows:    rows,
	}
}

func renderDungeonBars(ds []model.DungeonStats) {
	var maxRuns int64
	labelW := 0
	for _, d := range ds {
		maxRuns = max(maxRuns, int64(d.Runs))
		labelW = max(labelW, lipgloss.Width(d.Dungeon))
	}
	fmt.Println(cli.Muted("  By Dungeon"))
	for _, d := range ds {
		label := d.Dungeon + strings.Repeat(" ", labelW-lipgloss.Width(d.Dungeon))
		fmt.Printf("%s %s\n",
			cli.RenderHorizontalBar(label, int64(d.Runs), maxRuns, 30),
			cli.Muted(fmt.Sprintf("%d runs, avg %s", d.Runs, cli.FormatGold(d.AvgPersonal))))
	}
}

func renderWeekly(entries []model.WeekEntry) {
	start, _ := pipeline.WeekBounds(time.Now(), loc)
	fmt.Printf("  %s\n", cli.Muted(fmt.Sprintf("This week (from %s)", start.Format(time.DateOnly))))
	if len(entries) == 0 {
		fmt.Println("  No runs committed this week.")
		return
	}
	for _, e := range entries {
		t := e.Time.In(loc)
		line := fmt.Sprintf("  %s %s  %s  %s", cli.FormatWeekday(t.Weekday()), t.Format("15:04"), e.Dungeon, e.Worker)
		if e.Note != "" {
			line += "  " + cli.Warn(e.Note)
		}
		fmt.Println(line)
	}
}
