package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/theirongolddev/runledger/internal/model"
)

var csvHeader = []string{
	"uid", "dungeon", "team_type", "start_time", "end_time", "leader", "worker",
	"team_total", "subsidy_total", "distributable", "distribution_count", "base_salary",
	"personal_salary", "subsidy", "penalty_total",
	"scattered_total", "iron_total", "other_total", "special_total",
	"scattered_consumption", "iron_consumption", "special_consumption", "other_consumption", "total_consumption",
	"special_items", "lie_down_count", "note", "file",
}

// WriteCSV writes one row per record after a header row.
func WriteCSV(w io.Writer, records []model.RunRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	i64 := func(v int64) string { return strconv.FormatInt(v, 10) }
	for _, r := range records {
		row := []string{
			r.UID, r.Dungeon, string(r.Team), formatTime(r.Start), formatTime(r.End), r.Leader, r.Worker,
			i64(r.TeamTotal), i64(r.SubsidyTotal), i64(r.Distributable), strconv.Itoa(r.DistributionCount), i64(r.BaseSalary),
			i64(r.PersonalSalary), i64(r.Subsidy), i64(r.PenaltyTotal),
			i64(r.ScatteredTotal), i64(r.IronTotal), i64(r.OtherTotal), i64(r.SpecialTotal),
			i64(r.ScatteredConsumption), i64(r.IronConsumption), i64(r.SpecialConsumption), i64(r.OtherConsumption), i64(r.TotalConsumption),
			specials(r.SpecialItems), strconv.Itoa(r.LieDownCount), r.Note, r.File,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func specials(items []model.SpecialPurchase) string {
	s := ""
	for i, it := range items {
		if i > 0 {
			s += ";"
		}
		s += it.Item + ":" + strconv.FormatInt(it.Price, 10)
	}
	return s
}
