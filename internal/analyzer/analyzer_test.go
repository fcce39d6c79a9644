package analyzer

import (
	"testing"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

func simpleRun(base int64) []model.ChatLine {
	return []model.ChatLine{
		startLine(base, "10人西津渡"),
		incomeLine(base+10, "团长", 1000, 100, 900, 9, 100),
		purchaseLine(base+20, "团长", testWorker, "50金", "破旧的布料"),
		payoutLine(base+30, 100, "Gold"),
		endLine(base+40, "10人西津渡"),
	}
}

func TestAnalyzeFile_SingleRun(t *testing.T) {
	t.Parallel()
	res := testAnalyzer().AnalyzeFile(FileInput{Name: "chat.db", Worker: testWorker, Lines: simpleRun(1700000000)})
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]

	checks := []struct {
		field     string
		got, want int64
	}{
		{"TeamTotal", rec.TeamTotal, 1000},
		{"PersonalSalary", rec.PersonalSalary, 100},
		{"OtherTotal", rec.OtherTotal, 50},
		{"OtherConsumption", rec.OtherConsumption, 50},
		{"TotalConsumption", rec.TotalConsumption, 50},
		{"Subsidy", rec.Subsidy, 0},
		{"PenaltyTotal", rec.PenaltyTotal, 0},
		{"LieDownCount", int64(rec.LieDownCount), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.field, c.got, c.want)
		}
	}
	if rec.Leader != "团长" {
		t.Errorf("Leader = %q, want 团长", rec.Leader)
	}
	if rec.Dungeon != "西津渡" || rec.Team != model.TeamTen {
		t.Errorf("placement = %s/%s", rec.Dungeon, rec.Team)
	}
	if rec.Note != "" {
		t.Errorf("Note = %q, want empty", rec.Note)
	}
	if want := time.Unix(1700000040, 0).UTC(); !rec.End.Equal(want) {
		t.Errorf("End = %v, want %v", rec.End, want)
	}
	if rec.Source != model.SourceMarkers || rec.File != "chat.db" {
		t.Errorf("Source/File = %v/%s", rec.Source, rec.File)
	}
	if !res.Found() || res.MarkerRanges != 1 {
		t.Errorf("Found=%v MarkerRanges=%d", res.Found(), res.MarkerRanges)
	}
}

func TestAnalyzeFile_Deterministic(t *testing.T) {
	t.Parallel()
	a := testAnalyzer()
	in := FileInput{Name: "chat.db", Worker: testWorker, Lines: simpleRun(1700000000)}
	first := a.AnalyzeFile(in).Records[0].UID
	second := a.AnalyzeFile(in).Records[0].UID
	if first != second {
		t.Errorf("UID changed between runs: %s vs %s", first, second)
	}
}

func TestAnalyzeFile_SidecarDuplicateOfMarkers(t *testing.T) {
	t.Parallel()
	base := int64(1700000000)
	sc := Sidecar{
		Name:    "s",
		Start:   time.Unix(base, 0),
		End:     time.Unix(base+40, 0),
		Dungeon: "西津渡",
	}
	res := testAnalyzer().AnalyzeFile(FileInput{
		Name: "chat.db", Worker: testWorker, Lines: simpleRun(base), Sidecars: []Sidecar{sc},
	})
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want marker range collapsed into sidecar: %+v", len(res.Records), res.Records)
	}
	if res.Records[0].Source != model.SourceSidecar {
		t.Errorf("surviving record came from %v, want sidecar", res.Records[0].Source)
	}
	if res.SidecarRanges != 1 || res.MarkerRanges != 1 {
		t.Errorf("ranges sidecar=%d marker=%d", res.SidecarRanges, res.MarkerRanges)
	}
}

func TestAnalyzeFile_SidecarDifferentPlacement(t *testing.T) {
	t.Parallel()
	base := int64(1700000000)
	sc := Sidecar{
		Name:       "s",
		Start:      time.Unix(base, 0),
		End:        time.Unix(base+40, 0),
		TeamToken:  "25人",
		Difficulty: "英雄",
		Dungeon:    "西津渡",
	}
	res := testAnalyzer().AnalyzeFile(FileInput{
		Name: "chat.db", Worker: testWorker, Lines: simpleRun(base), Sidecars: []Sidecar{sc},
	})
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if res.Records[0].Source != model.SourceSidecar || res.Records[1].Source != model.SourceMarkers {
		t.Errorf("sidecar ranges must come first")
	}
	if res.Records[0].Team != model.TeamTwentyFive || res.Records[0].Note != "英雄" {
		t.Errorf("sidecar placement not authoritative: %s %q", res.Records[0].Team, res.Records[0].Note)
	}
}

func TestAnalyzeFile_EmptySentinel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		lines []model.ChatLine
	}{
		{"no lines", nil},
		{"no markers", []model.ChatLine{line(1, "闲聊"), line(2, "闲聊")}},
		{"unterminated", []model.ChatLine{startLine(1, "10人西津渡"), line(2, "闲聊")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testAnalyzer().AnalyzeFile(FileInput{Name: "chat.db", Worker: testWorker, Lines: tt.lines})
			if len(res.Records) != 1 || !res.Records[0].IsEmpty() {
				t.Fatalf("Records = %+v, want one sentinel", res.Records)
			}
			if res.Found() {
				t.Error("Found() true for sentinel-only result")
			}
			if res.Records[0].File != "chat.db" || res.Records[0].Worker != testWorker {
				t.Errorf("sentinel lost file/worker: %+v", res.Records[0])
			}
		})
	}
}

func TestAnalyzeFile_CountsMalformedAndDiscarded(t *testing.T) {
	t.Parallel()
	lines := []model.ChatLine{
		startLine(1, "10人西津渡"),
		purchaseLine(2, "团长", testWorker, "99999999999999999999金", "五行石"),
		purchaseLine(3, "团长", testWorker, "1金砖", "透骨香"),
		endLine(4, "10人西津渡"),
	}
	res := testAnalyzer().AnalyzeFile(FileInput{Name: "chat.db", Worker: testWorker, Lines: lines})
	if res.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", res.Malformed)
	}
	if res.Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", res.Discarded)
	}
	if rec := res.Records[0]; rec.ScatteredTotal != 0 || rec.SpecialTotal != 0 {
		t.Errorf("malformed or discarded purchase counted: %+v", rec)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	a := New(nil, DefaultKeywords(), nil)
	if a.Location() != time.Local {
		t.Error("nil location should default to time.Local")
	}
	if got := a.Resolver().Resolve("10人西津渡").Dungeon; got != model.UnknownDungeon {
		t.Errorf("empty resolver matched %q", got)
	}
}
