package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/model"
)

func rec(worker, dungeon string, end time.Time, team, personal, consumption int64) model.RunRecord {
	return model.RunRecord{
		UID:              worker + dungeon + end.String(),
		Worker:           worker,
		Dungeon:          dungeon,
		End:              end,
		TeamTotal:        team,
		PersonalSalary:   personal,
		TotalConsumption: consumption,
	}
}

var t0 = time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC) // a Wednesday

func TestSummarize(t *testing.T) {
	t.Parallel()
	records := []model.RunRecord{
		rec("a", "西津渡", t0, 1000, 100, 50),
		rec("b", "西津渡", t0, 3000, 300, 400),
		analyzer.EmptyRecord("x.db", "a"),
	}
	records[0].LieDownCount = 2

	s := Summarize(records)
	checks := []struct {
		field     string
		got, want int64
	}{
		{"Records", int64(s.Records), 2},
		{"TeamTotal", s.TeamTotal, 4000},
		{"TeamMax", s.TeamMax, 3000},
		{"PersonalTotal", s.PersonalTotal, 400},
		{"PersonalMax", s.PersonalMax, 300},
		{"ConsumptionTotal", s.ConsumptionTotal, 450},
		{"ConsumptionMax", s.ConsumptionMax, 400},
		{"NetTotal", s.NetTotal, -50},
		{"NetMax", s.NetMax, 50},
		{"LieDowns", int64(s.LieDowns), 2},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.field, c.got, c.want)
		}
	}
}

func TestSummarize_AllNegativeNet(t *testing.T) {
	t.Parallel()
	s := Summarize([]model.RunRecord{
		rec("a", "d", t0, 0, 0, 100),
		rec("a", "d", t0.Add(time.Hour), 0, 0, 300),
	})
	if s.NetMax != -100 {
		t.Errorf("NetMax = %d, want -100", s.NetMax)
	}
	if z := Summarize(nil); z != (model.SummaryStats{}) {
		t.Errorf("empty summary = %+v", z)
	}
}

func TestByWorker(t *testing.T) {
	t.Parallel()
	got := ByWorker([]model.RunRecord{
		rec("乙", "d", t0, 0, 100, 0),
		rec("甲", "d", t0, 0, 100, 30),
		rec("甲", "d", t0, 0, 201, 0),
		rec("", "d", t0, 0, 999, 0),
	})
	if len(got) != 2 {
		t.Fatalf("got %d workers, want 2", len(got))
	}
	if got[0].Worker != "乙" || got[1].Worker != "甲" {
		t.Errorf("order = %s, %s", got[0].Worker, got[1].Worker)
	}
	w := got[1]
	if w.Records != 2 || w.IncomeTotal != 301 || w.IncomeAvg != 151 || w.IncomeMax != 201 {
		t.Errorf("income = %+v", w)
	}
	if w.ConsumptionTotal != 30 || w.ConsumptionAvg != 15 || w.ConsumptionMax != 30 {
		t.Errorf("consumption = %+v", w)
	}
	if w.Net != 271 {
		t.Errorf("Net = %d, want 271", w.Net)
	}
}

func TestByDungeon(t *testing.T) {
	t.Parallel()
	r1 := rec("a", "冷龙峰", t0, 1000, 100, 0)
	r1.SpecialTotal = 500
	got := ByDungeon([]model.RunRecord{
		r1,
		rec("a", "西津渡", t0, 2000, 200, 0),
		rec("a", "西津渡", t0, 2000, 300, 0),
	})
	if len(got) != 2 || got[0].Dungeon != "西津渡" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Runs != 2 || got[0].TeamTotal != 4000 || got[0].AvgPersonal != 250 {
		t.Errorf("西津渡 = %+v", got[0])
	}
	if got[1].SpecialTotal != 500 {
		t.Errorf("冷龙峰 = %+v", got[1])
	}
}

func TestWeekBounds(t *testing.T) {
	t.Parallel()
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
	}{
		{"monday midnight", monday},
		{"wednesday", t0},
		{"sunday night", time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekBounds(tt.now, time.UTC)
			if !start.Equal(monday) {
				t.Errorf("start = %v, want %v", start, monday)
			}
			if !end.Equal(monday.AddDate(0, 0, 7)) {
				t.Errorf("end = %v", end)
			}
		})
	}
}

func TestWeekly(t *testing.T) {
	t.Parallel()
	r1 := rec("甲", "西津渡", t0, 0, 0, 0)
	r1.Note = "躺拍"
	records := []model.RunRecord{
		r1,
		rec("乙", "冷龙峰", t0.Add(24*time.Hour), 0, 0, 0),
		rec("甲", "冷龙峰", t0.AddDate(0, 0, -7), 0, 0, 0),
		rec("甲", "冷龙峰", t0.AddDate(0, 0, 5), 0, 0, 0),
	}

	all := Weekly(records, "", t0, time.UTC)
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}
	if all[0].Worker != "乙" || all[1].Note != "躺拍" {
		t.Errorf("entries = %+v", all)
	}

	mine := Weekly(records, "甲", t0, time.UTC)
	if len(mine) != 1 || mine[0].Dungeon != "西津渡" {
		t.Errorf("filtered = %+v", mine)
	}
}

func TestFilterByTime(t *testing.T) {
	t.Parallel()
	records := []model.RunRecord{
		rec("a", "d", t0.Add(-time.Hour), 0, 0, 0),
		rec("a", "d", t0, 0, 0, 0),
		rec("a", "d", t0.Add(time.Hour), 0, 0, 0),
	}
	if got := FilterByTime(records, t0, time.Time{}); len(got) != 2 {
		t.Errorf("since only = %d, want 2", len(got))
	}
	if got := FilterByTime(records, time.Time{}, t0); len(got) != 1 {
		t.Errorf("until only = %d, want 1", len(got))
	}
	if got := FilterByTime(records, time.Time{}, time.Time{}); len(got) != 3 {
		t.Errorf("open = %d, want 3", len(got))
	}
}

func TestUnwrap(t *testing.T) {
	t.Parallel()
	got := Unwrap([]model.StoredRecord{{ID: 1, RunRecord: model.RunRecord{UID: "u"}}})
	if len(got) != 1 || got[0].UID != "u" {
		t.Errorf("Unwrap = %+v", got)
	}
}
