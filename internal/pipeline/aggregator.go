package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

// Unwrap returns the run records of stored rows.
func Unwrap(stored []model.StoredRecord) []model.RunRecord {
	out := make([]model.RunRecord, len(stored))
	for i, s := range stored {
		out[i] = s.RunRecord
	}
	return out
}

// Summarize computes the top-level totals. Sentinels are ignored.
func Summarize(records []model.RunRecord) model.SummaryStats {
	var s model.SummaryStats
	for _, r := range records {
		if r.IsEmpty() {
			continue
		}
		net := r.Net()
		if s.Records == 0 {
			s.TeamMax, s.PersonalMax, s.ConsumptionMax, s.NetMax =
				r.TeamTotal, r.PersonalSalary, r.TotalConsumption, net
		}
		s.Records++
		s.TeamTotal += r.TeamTotal
		s.PersonalTotal += r.PersonalSalary
		s.ConsumptionTotal += r.TotalConsumption
		s.NetTotal += net
		s.LieDowns += r.LieDownCount

		s.TeamMax = max(s.TeamMax, r.TeamTotal)
		s.PersonalMax = max(s.PersonalMax, r.PersonalSalary)
		s.ConsumptionMax = max(s.ConsumptionMax, r.TotalConsumption)
		s.NetMax = max(s.NetMax, net)
	}
	return s
}

// ByWorker groups records by worker, ordered by worker name. Records
// without a worker are left out.
func ByWorker(records []model.RunRecord) []model.WorkerStats {
	idx := make(map[string]*model.WorkerStats)
	for _, r := range records {
		if r.IsEmpty() || r.Worker == "" {
			continue
		}
		ws, ok := idx[r.Worker]
		if !ok {
			ws = &model.WorkerStats{Worker: r.Worker}
			idx[r.Worker] = ws
		}
		ws.Records++
		ws.IncomeTotal += r.PersonalSalary
		ws.IncomeMax = max(ws.IncomeMax, r.PersonalSalary)
		ws.ConsumptionTotal += r.TotalConsumption
		ws.ConsumptionMax = max(ws.ConsumptionMax, r.TotalConsumption)
	}

	out := make([]model.WorkerStats, 0, len(idx))
	for _, ws := range idx {
		ws.IncomeAvg = average(ws.IncomeTotal, ws.Records)
		ws.ConsumptionAvg = average(ws.ConsumptionTotal, ws.Records)
		ws.Net = ws.IncomeTotal - ws.ConsumptionTotal
		out = append(out, *ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Worker < out[j].Worker })
	return out
}

// ByDungeon groups records by dungeon, most-run first.
func ByDungeon(records []model.RunRecord) []model.DungeonStats {
	idx := make(map[string]*model.DungeonStats)
	personal := make(map[string]int64)
	for _, r := range records {
		if r.IsEmpty() {
			continue
		}
		ds, ok := idx[r.Dungeon]
		if !ok {
			ds = &model.DungeonStats{Dungeon: r.Dungeon}
			idx[r.Dungeon] = ds
		}
		ds.Runs++
		ds.TeamTotal += r.TeamTotal
		ds.SpecialTotal += r.SpecialTotal
		personal[r.Dungeon] += r.PersonalSalary
	}

	out := make([]model.DungeonStats, 0, len(idx))
	for name, ds := range idx {
		ds.AvgPersonal = average(personal[name], ds.Runs)
		out = append(out, *ds)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Runs != out[j].Runs {
			return out[i].Runs > out[j].Runs
		}
		return out[i].Dungeon < out[j].Dungeon
	})
	return out
}

func average(total int64, n int) int64 {
	if n == 0 {
		return 0
	}
	return int64(math.Round(float64(total) / float64(n)))
}

// FilterByTime returns records whose end falls in [since, until). A zero
// bound is open.
func FilterByTime(records []model.RunRecord, since, until time.Time) []model.RunRecord {
	var out []model.RunRecord
	for _, r := range records {
		if r.IsEmpty() {
			continue
		}
		if !since.IsZero() && r.End.Before(since) {
			continue
		}
		if !until.IsZero() && !r.End.Before(until) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// WeekBounds returns midnight of the Monday starting now's week and the
// following Monday, in loc.
func WeekBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	offset := (int(now.Weekday()) + 6) % 7
	start = time.Date(now.Year(), now.Month(), now.Day()-offset, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}

// Weekly lists this week's runs, newest first. An empty worker keeps all.
func Weekly(records []model.RunRecord, worker string, now time.Time, loc *time.Location) []model.WeekEntry {
	start, end := WeekBounds(now, loc)
	var out []model.WeekEntry
	for _, r := range FilterByTime(records, start, end) {
		if worker != "" && r.Worker != worker {
			continue
		}
		out = append(out, model.WeekEntry{
			Time:    r.End,
			Worker:  r.Worker,
			Dungeon: r.Dungeon,
			Note:    r.Note,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out
}
