package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/source"
)

func testAnalyzer() *analyzer.Analyzer {
	dungeons := []model.Dungeon{{Name: "西津渡", SpecialDrops: []string{"静子（宠物）"}}}
	return analyzer.New(analyzer.NewResolver(dungeons), analyzer.DefaultKeywords(), time.UTC)
}

func runLines(base int64, total int) []model.ChatLine {
	return []model.ChatLine{
		{Time: base, Text: "你悄悄地对[记录助手]说：开始自动记录[10人西津渡]"},
		{Time: base + 10, Text: fmt.Sprintf(
			"[房间][团长]：拍团目前总收入为：%d金，补贴总费用：0金，实际可用分配金额：%d金，分配人数：10，每人底薪：%d金",
			total, total, total/10)},
		{Time: base + 20, Text: "你悄悄地对[记录助手]说：结束自动记录[10人西津渡]"},
	}
}

func writeChatLog(t testing.TB, path string, lines ...model.ChatLine) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(`CREATE TABLE chatlog (time INTEGER, text TEXT, msg TEXT)`); err != nil {
		t.Fatal(err)
	}
	for _, l := range lines {
		if _, err := db.Exec(`INSERT INTO chatlog (time, text, msg) VALUES (?, ?, ?)`, l.Time, l.Text, l.Msg); err != nil {
			t.Fatal(err)
		}
	}
}

// folderWith builds a game folder whose chat_log holds one database per
// entry of files, keyed by file name.
func folderWith(t testing.TB, worker string, files map[string][]model.ChatLine) model.Folder {
	t.Helper()
	root := filepath.Join(t.TempDir(), worker)
	if err := os.MkdirAll(source.ChatLogDir(root), 0o750); err != nil {
		t.Fatal(err)
	}
	for name, lines := range files {
		writeChatLog(t, filepath.Join(source.ChatLogDir(root), name), lines...)
	}
	return model.Folder{Path: root, Worker: worker}
}

func TestRun_DedupAcrossFiles(t *testing.T) {
	run := runLines(1700000000, 1000)
	f := folderWith(t, "小明", map[string][]model.ChatLine{
		"a.db": run,
		"b.db": run,
	})

	res, err := Run(context.Background(), []model.Folder{f}, Options{Analyzer: testAnalyzer(), Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Files != 2 {
		t.Errorf("Files = %d, want 2", res.Summary.Files)
	}
	if res.Summary.Produced != 1 || res.Summary.Duplicates != 1 {
		t.Errorf("produced/duplicates = %d/%d, want 1/1", res.Summary.Produced, res.Summary.Duplicates)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if res.Records[0].File != "a.db" {
		t.Errorf("kept record from %s, want a.db", res.Records[0].File)
	}
	if res.Records[0].Worker != "小明" {
		t.Errorf("Worker = %q", res.Records[0].Worker)
	}
}

func TestRun_LedgerFiltersFilled(t *testing.T) {
	f := folderWith(t, "小明", map[string][]model.ChatLine{
		"a.db": append(runLines(1700000000, 1000), runLines(1700001000, 2000)...),
	})
	opts := Options{Analyzer: testAnalyzer()}

	first, err := Run(context.Background(), []model.Folder{f}, opts)
	if err != nil {
		t.Fatal(err)
	}
	pending := first.Pending()
	if len(pending) != 2 {
		t.Fatalf("first run pending = %d, want 2", len(pending))
	}

	opts.Ledger = NewMemoryLedger(pending[0].UID)
	second, err := Run(context.Background(), []model.Folder{f}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := second.Pending(); len(got) != 1 || got[0].UID != pending[1].UID {
		t.Errorf("second run pending = %v, want only %s", got, pending[1].UID)
	}
	if second.Summary.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", second.Summary.Duplicates)
	}

	opts.Ledger = NewMemoryLedger(pending[0].UID, pending[1].UID)
	third, err := Run(context.Background(), []model.Folder{f}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(third.Records) != 0 {
		t.Errorf("fully filled file produced %d records", len(third.Records))
	}
}

func TestRun_SentinelPerBadFile(t *testing.T) {
	f := folderWith(t, "小明", map[string][]model.ChatLine{
		"a.db":     runLines(1700000000, 1000),
		"empty.db": nil,
		"quiet.db": {{Time: 1, Text: "[世界][路人]：收徒"}},
	})
	if err := os.WriteFile(filepath.Join(source.ChatLogDir(f.Path), "corrupt.db"), []byte("not sqlite"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), []model.Folder{f}, Options{Analyzer: testAnalyzer(), Workers: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sentinels := map[string]bool{}
	for _, r := range res.Records {
		if r.IsEmpty() {
			sentinels[r.File] = true
			if r.Worker != "小明" || r.Dungeon != model.UnknownDungeon {
				t.Errorf("sentinel %s = %+v", r.File, r)
			}
		}
	}
	for _, name := range []string{"corrupt.db", "empty.db", "quiet.db"} {
		if !sentinels[name] {
			t.Errorf("missing sentinel for %s", name)
		}
	}
	if sentinels["a.db"] {
		t.Error("a.db produced a sentinel")
	}
	if res.Summary.Empty != 2 {
		t.Errorf("Empty = %d, want 2", res.Summary.Empty)
	}
	if len(res.Summary.FileErrors) != 1 {
		t.Fatalf("FileErrors = %v, want one", res.Summary.FileErrors)
	}
	if filepath.Base(res.Summary.FileErrors[0].File) != "corrupt.db" {
		t.Errorf("FileErrors[0] = %v", res.Summary.FileErrors[0])
	}
	if len(res.Pending()) != 1 {
		t.Errorf("Pending = %d, want 1", len(res.Pending()))
	}
}

func TestRun_OversizedSkipped(t *testing.T) {
	f := folderWith(t, "小明", map[string][]model.ChatLine{"a.db": runLines(1700000000, 1000)})

	res, err := Run(context.Background(), []model.Folder{f}, Options{Analyzer: testAnalyzer(), MaxFileBytes: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Summary.Skipped)
	}
	if len(res.Records) != 1 || !res.Records[0].IsEmpty() {
		t.Errorf("records = %+v, want one sentinel", res.Records)
	}
}

func TestRun_Progress(t *testing.T) {
	f := folderWith(t, "小明", map[string][]model.ChatLine{
		"a.db": runLines(1700000000, 1000),
		"b.db": runLines(1700005000, 3000),
		"c.db": runLines(1700009000, 5000),
	})

	var mu sync.Mutex
	var currents []int
	percents := map[string][]float64{}
	opts := Options{
		Analyzer:  testAnalyzer(),
		BatchSize: 1,
		Workers:   2,
		Progress: func(current, total int) {
			mu.Lock()
			defer mu.Unlock()
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
			currents = append(currents, current)
		},
		Status: func(file string, pct float64, _ string) {
			mu.Lock()
			defer mu.Unlock()
			percents[file] = append(percents[file], pct)
		},
	}
	if _, err := Run(context.Background(), []model.Folder{f}, opts); err != nil {
		t.Fatal(err)
	}

	if len(currents) != 3 {
		t.Fatalf("progress calls = %v", currents)
	}
	for i, c := range currents {
		if c != i+1 {
			t.Errorf("progress call %d = %d", i, c)
		}
	}
	for file, ps := range percents {
		for i := 1; i < len(ps); i++ {
			if ps[i] < ps[i-1] {
				t.Errorf("%s percent went back: %v", file, ps)
			}
		}
		if ps[len(ps)-1] != 100 {
			t.Errorf("%s ended at %v", file, ps[len(ps)-1])
		}
		for _, p := range ps {
			if p > 50 && p != 60 && p != 100 {
				t.Errorf("%s reported %v outside the read/analyze steps", file, p)
			}
		}
	}
}

func TestRun_ProgressIsSerialAndOrdered(t *testing.T) {
	f := folderWith(t, "小明", map[string][]model.ChatLine{
		"a.db": runLines(1700000000, 1000),
		"b.db": runLines(1700005000, 3000),
	})

	var (
		inside, peak atomic.Int32
		order        []int
	)
	opts := Options{
		Analyzer: testAnalyzer(),
		Workers:  2,
		Progress: func(current, _ int) {
			n := inside.Add(1)
			defer inside.Add(-1)
			if n > peak.Load() {
				peak.Store(n)
			}
			// A slow first report must not let the second overtake it.
			if current == 1 {
				time.Sleep(50 * time.Millisecond)
			}
			order = append(order, current)
		},
	}
	if _, err := Run(context.Background(), []model.Folder{f}, opts); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("progress order = %v, want [1 2]", order)
	}
	if p := peak.Load(); p != 1 {
		t.Errorf("%d progress callbacks ran at once", p)
	}
}

func TestRun_Errors(t *testing.T) {
	if _, err := Run(context.Background(), nil, Options{}); err == nil {
		t.Error("missing analyzer accepted")
	}

	f := folderWith(t, "小明", map[string][]model.ChatLine{"a.db": runLines(1700000000, 1000)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, []model.Folder{f}, Options{Analyzer: testAnalyzer()}); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled run err = %v", err)
	}
}

func TestRun_NoFolders(t *testing.T) {
	missing := model.Folder{Path: filepath.Join(t.TempDir(), "nope")}
	res, err := Run(context.Background(), []model.Folder{missing}, Options{Analyzer: testAnalyzer()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Files != 0 || len(res.Records) != 0 {
		t.Errorf("result = %+v", res)
	}
}

type failingLedger struct{}

func (failingLedger) Contains(string) (bool, error) { return false, errors.New("db locked") }
func (failingLedger) Add(string) error              { return nil }

func TestRun_LedgerErrorAborts(t *testing.T) {
	f := folderWith(t, "小明", map[string][]model.ChatLine{"a.db": runLines(1700000000, 1000)})
	_, err := Run(context.Background(), []model.Folder{f}, Options{Analyzer: testAnalyzer(), Ledger: failingLedger{}})
	if err == nil {
		t.Error("ledger failure ignored")
	}
}

func TestMemoryLedger(t *testing.T) {
	t.Parallel()
	l := NewMemoryLedger("a")
	if ok, _ := l.Contains("a"); !ok {
		t.Error("seeded uid missing")
	}
	if ok, _ := l.Contains("b"); ok {
		t.Error("unknown uid present")
	}
	_ = l.Add("b")
	_ = l.Add("b")
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
}
