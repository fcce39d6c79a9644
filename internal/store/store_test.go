package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "runledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(uid string, end time.Time) model.RunRecord {
	return model.RunRecord{
		UID:            uid,
		File:           "chat.db",
		Source:         model.SourceSidecar,
		Start:          end.Add(-time.Hour),
		End:            end,
		Dungeon:        "西津渡",
		Team:           model.TeamTen,
		Leader:         "团长",
		Worker:         "小明",
		TeamTotal:      1000,
		PersonalSalary: 100,
		OtherTotal:     50,
		SpecialItems: []model.SpecialPurchase{
			{Item: "静子（宠物）", Price: 50000, OriginalName: "静子", Buyer: "路人"},
		},
		LieDownCount: 1,
		Note:         "英雄",
	}
}

func TestLedger_ContainsAdd(t *testing.T) {
	s := openTest(t)
	ok, err := s.Contains("abc")
	if err != nil || ok {
		t.Fatalf("Contains before add = %v, %v", ok, err)
	}
	if err := s.Add("abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("abc"); err != nil {
		t.Fatalf("second Add: %v", err)
	}
	ok, err = s.Contains("abc")
	if err != nil || !ok {
		t.Errorf("Contains after add = %v, %v", ok, err)
	}
	uids, err := s.FilledUIDs()
	if err != nil || len(uids) != 1 {
		t.Errorf("FilledUIDs = %v, %v", uids, err)
	}
	if _, err := s.FilledAt("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FilledAt(missing) err = %v", err)
	}
}

func TestCommitRecord_RoundTrip(t *testing.T) {
	s := openTest(t)
	end := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	rec := sampleRecord("deadbeef", end)

	id, err := s.CommitRecord(rec)
	if err != nil {
		t.Fatalf("CommitRecord: %v", err)
	}
	if ok, _ := s.Contains("deadbeef"); !ok {
		t.Error("commit did not fill the ledger")
	}

	got, err := s.GetRecord(id, time.UTC)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.UID != rec.UID || got.Dungeon != rec.Dungeon || got.Team != rec.Team || got.Source != rec.Source {
		t.Errorf("identity fields = %+v", got.RunRecord)
	}
	if !got.End.Equal(end) || !got.Start.Equal(rec.Start) {
		t.Errorf("times = %v..%v", got.Start, got.End)
	}
	if len(got.SpecialItems) != 1 || got.SpecialItems[0] != rec.SpecialItems[0] {
		t.Errorf("SpecialItems = %+v", got.SpecialItems)
	}
	if got.Note != "英雄" || got.LieDownCount != 1 || got.TeamTotal != 1000 {
		t.Errorf("values = %+v", got.RunRecord)
	}
	if got.CommittedAt.IsZero() {
		t.Error("CommittedAt not set")
	}
}

func TestCommitRecord_Rejects(t *testing.T) {
	s := openTest(t)
	end := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	if _, err := s.CommitRecord(sampleRecord("u1", end)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CommitRecord(sampleRecord("u1", end)); !errors.Is(err, ErrAlreadyFilled) {
		t.Errorf("duplicate commit err = %v, want ErrAlreadyFilled", err)
	}
	if _, err := s.CommitRecord(model.RunRecord{UID: model.EmptyUID}); !errors.Is(err, ErrSentinel) {
		t.Errorf("sentinel commit err = %v, want ErrSentinel", err)
	}
	if n, _ := s.RecordCount(); n != 1 {
		t.Errorf("RecordCount = %d, want 1", n)
	}
}

func TestListRecords_Filters(t *testing.T) {
	s := openTest(t)
	day := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)

	a := sampleRecord("a", day)
	b := sampleRecord("b", day.AddDate(0, 0, 1))
	b.Worker = "小红"
	b.Team = model.TeamTwentyFive
	b.SpecialItems = nil
	c := sampleRecord("c", day.AddDate(0, 0, 2))
	c.Dungeon = "冷龙峰"
	for _, r := range []model.RunRecord{a, b, c} {
		if _, err := s.CommitRecord(r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"all newest first", Filter{}, []string{"c", "b", "a"}},
		{"worker", Filter{Worker: "小红"}, []string{"b"}},
		{"dungeon", Filter{Dungeon: "冷龙峰"}, []string{"c"}},
		{"team", Filter{Team: model.TeamTen}, []string{"c", "a"}},
		{"item", Filter{Item: "静子"}, []string{"c", "a"}},
		{"since", Filter{Since: day.AddDate(0, 0, 1)}, []string{"c", "b"}},
		{"until", Filter{Until: day}, []string{"a"}},
		{"limit", Filter{Limit: 1}, []string{"c"}},
		{"no match", Filter{Leader: "别人"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRecords(tt.f, time.UTC)
			if err != nil {
				t.Fatal(err)
			}
			var uids []string
			for _, r := range got {
				uids = append(uids, r.UID)
			}
			if len(uids) != len(tt.want) {
				t.Fatalf("uids = %v, want %v", uids, tt.want)
			}
			for i := range uids {
				if uids[i] != tt.want[i] {
					t.Errorf("uids = %v, want %v", uids, tt.want)
					break
				}
			}
		})
	}
}

func TestDeleteRecord_KeepsLedger(t *testing.T) {
	s := openTest(t)
	id, err := s.CommitRecord(sampleRecord("keep", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRecord(id); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRecord(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if ok, _ := s.Contains("keep"); !ok {
		t.Error("deleting a record must not unfill its uid")
	}
	if _, err := s.GetRecord(id, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecord err = %v", err)
	}
}

func TestImportRecords_HasRecord(t *testing.T) {
	s := openTest(t)
	end := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	noUID := sampleRecord("", end)
	withUID := sampleRecord("imp", end.Add(time.Hour))
	if err := s.ImportRecords([]model.RunRecord{noUID, withUID}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.HasRecord("西津渡", end, "小明"); !ok {
		t.Error("HasRecord missed imported record")
	}
	if ok, _ := s.HasRecord("西津渡", end, "小红"); ok {
		t.Error("HasRecord matched another worker")
	}
	if ok, _ := s.Contains("imp"); !ok {
		t.Error("imported uid not filled")
	}
	uids, _ := s.FilledUIDs()
	if len(uids) != 1 {
		t.Errorf("FilledUIDs = %v, want only imp", uids)
	}
}

func TestSeedDungeons_OnlyOnce(t *testing.T) {
	s := openTest(t)
	presets := []model.Dungeon{
		{Name: "西津渡", SpecialDrops: []string{"静子（宠物）"}},
		{Name: "冷龙峰"},
	}
	if err := s.SeedDungeons(presets); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDungeon("冷龙峰"); err != nil {
		t.Fatal(err)
	}
	if err := s.SeedDungeons(presets); err != nil {
		t.Fatal(err)
	}
	got, err := s.Dungeons()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "西津渡" || len(got[0].SpecialDrops) != 1 {
		t.Errorf("Dungeons = %+v, want deleted preset to stay deleted", got)
	}
}

func TestUpsertDungeon_KeepsOrder(t *testing.T) {
	s := openTest(t)
	for _, n := range []string{"甲", "乙", "丙"} {
		if err := s.UpsertDungeon(model.Dungeon{Name: n}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.UpsertDungeon(model.Dungeon{Name: "甲", SpecialDrops: []string{"x"}}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Dungeons()
	if len(got) != 3 || got[0].Name != "甲" || got[0].SpecialDrops[0] != "x" {
		t.Errorf("Dungeons = %+v", got)
	}
	d, err := s.Dungeon("乙")
	if err != nil || d.SpecialDrops == nil {
		t.Errorf("Dungeon(乙) = %+v, %v", d, err)
	}
	if _, err := s.Dungeon("丁"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing dungeon err = %v", err)
	}
	if err := s.DeleteDungeon("丁"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
}

func TestFolders(t *testing.T) {
	s := openTest(t)
	f, err := s.AddFolder("/games/a", "小明")
	if err != nil || f.ID == 0 {
		t.Fatalf("AddFolder = %+v, %v", f, err)
	}
	again, err := s.AddFolder("/games/a", "小红")
	if err != nil || again.ID != f.ID {
		t.Fatalf("re-add = %+v, %v", again, err)
	}
	if _, err := s.AddFolder("/games/b", ""); err != nil {
		t.Fatal(err)
	}
	list, _ := s.Folders()
	if len(list) != 2 || list[0].Worker != "小红" {
		t.Errorf("Folders = %+v", list)
	}
	if err := s.RemoveFolder("/games/a"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFolder("/games/a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add("persist"); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	if ok, _ := s.Contains("persist"); !ok {
		t.Error("ledger not persisted across reopen")
	}
}
