package daemon

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/pipeline"
	"github.com/theirongolddev/runledger/internal/source"
)

type staticFolders []model.Folder

func (s staticFolders) Folders() ([]model.Folder, error) { return s, nil }

func writeRuns(t *testing.T, path string, totals ...int) {
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
	for i, total := range totals {
		base := int64(1700000000 + i*1000)
		lines := []string{
			"你悄悄地对[记录助手]说：开始自动记录[10人西津渡]",
			fmt.Sprintf("[房间][团长]：拍团目前总收入为：%d金，补贴总费用：0金，实际可用分配金额：%d金，分配人数：10，每人底薪：%d金",
				total, total, total/10),
			"你悄悄地对[记录助手]说：结束自动记录[10人西津渡]",
		}
		for j, text := range lines {
			if _, err := db.Exec(`INSERT INTO chatlog (time, text, msg) VALUES (?, ?, '')`, base+int64(j*10), text); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func testService(t *testing.T, ledger pipeline.Ledger, totals ...int) (*Service, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "小明")
	chat := filepath.Join(source.ChatLogDir(root), "chat.db")
	writeRuns(t, chat, totals...)

	an := analyzer.New(analyzer.NewResolver([]model.Dungeon{{Name: "西津渡"}}), analyzer.DefaultKeywords(), time.UTC)
	s := New(Config{
		Interval:     10 * time.Second,
		EventsBuffer: 10,
		Folders:      staticFolders{{Path: root, Worker: "小明"}},
		Pipeline:     pipeline.Options{Analyzer: an, Ledger: ledger},
	})
	return s, chat
}

func TestDiffPending(t *testing.T) {
	prev := []model.RunRecord{{UID: "a"}, {UID: "b"}}
	curr := []model.RunRecord{{UID: "b"}, {UID: "c", Dungeon: "西津渡", PersonalSalary: 100}}

	delta := diffPending(prev, curr)
	if len(delta.Added) != 1 || delta.Added[0].UID != "c" || delta.Added[0].Personal != 100 {
		t.Fatalf("Added = %+v", delta.Added)
	}
	if len(delta.Removed) != 1 || delta.Removed[0] != "a" {
		t.Fatalf("Removed = %v", delta.Removed)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffPending(curr, curr).isZero() {
		t.Fatal("identical sets produced a delta")
	}
}

func TestHub_RingAndCursor(t *testing.T) {
	h := newHub(2)
	for range 3 {
		h.publish(Event{Type: eventPendingDelta})
	}

	got := h.since(0)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("ring = %+v, want IDs 2 and 3", got)
	}
	if got := h.since(2); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("since(2) = %+v", got)
	}
	if got := h.since(3); len(got) != 0 {
		t.Errorf("since(3) = %+v, want none", got)
	}
}

func TestHub_SubscribeReplaysBacklog(t *testing.T) {
	h := newHub(10)
	h.publish(Event{Type: eventSnapshot})
	h.publish(Event{Type: eventPendingDelta})

	ch, backlog, cancel := h.subscribe(1)
	if len(backlog) != 1 || backlog[0].ID != 2 {
		t.Fatalf("backlog = %+v", backlog)
	}
	if _, subs := h.counts(); subs != 1 {
		t.Fatalf("subscribers = %d", subs)
	}

	h.publish(Event{Type: eventPendingDelta})
	if ev := <-ch; ev.ID != 3 {
		t.Errorf("live event id = %d, want 3", ev.ID)
	}

	cancel()
	if _, subs := h.counts(); subs != 0 {
		t.Errorf("subscribers after cancel = %d", subs)
	}
}

func TestWriteSSE(t *testing.T) {
	var b strings.Builder
	if err := writeSSE(&b, Event{ID: 7, Type: eventPendingDelta}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(b.String(), "id: 7\nevent: pending_delta\ndata: {") || !strings.HasSuffix(b.String(), "}\n\n") {
		t.Errorf("frame = %q", b.String())
	}

	b.Reset()
	_ = writeSSE(&b, Event{Type: eventSnapshot})
	if strings.Contains(b.String(), "id:") {
		t.Errorf("greeting frame carries an id: %q", b.String())
	}
}

func TestPollOnce_TracksPending(t *testing.T) {
	ledger := pipeline.NewMemoryLedger()
	s, _ := testService(t, ledger, 1000, 2000)
	ctx := context.Background()

	s.pollOnce(ctx, nil)
	st := s.snapshotStatus()
	if st.Summary.Pending != 2 || st.Summary.Files != 1 {
		t.Fatalf("summary = %+v", st.Summary)
	}
	if st.Summary.PendingPersonal != 0 {
		t.Errorf("PendingPersonal = %d, want 0 without payouts", st.Summary.PendingPersonal)
	}
	events := s.events.since(0)
	if st.EventCount != 1 || events[0].Type != eventSnapshot || len(events[0].Delta.Added) != 2 {
		t.Fatalf("first events = %+v", events)
	}

	// No change: no new event.
	s.pollOnce(ctx, nil)
	if got := s.snapshotStatus(); got.EventCount != 1 || got.PollCount != 2 {
		t.Fatalf("status after idle poll = %+v", got)
	}

	// Committing one record removes it from the pending set.
	_ = ledger.Add(s.pending[0].UID)
	committed := s.pending[0].UID
	s.pollOnce(ctx, nil)
	events = s.events.since(1)
	if len(events) != 1 {
		t.Fatalf("events after commit = %+v, want one", events)
	}
	ev := events[0]
	if ev.Type != eventPendingDelta || len(ev.Delta.Removed) != 1 || ev.Delta.Removed[0] != committed {
		t.Errorf("delta event = %+v", ev)
	}
	if ev.Snapshot.Pending != 1 || ev.Snapshot.Duplicates != 1 {
		t.Errorf("snapshot = %+v", ev.Snapshot)
	}
}

type failingFolders struct{}

func (failingFolders) Folders() ([]model.Folder, error) { return nil, fmt.Errorf("store closed") }

func TestPollOnce_RecordsError(t *testing.T) {
	s := New(Config{
		Folders:  failingFolders{},
		Pipeline: pipeline.Options{Analyzer: analyzer.New(nil, analyzer.DefaultKeywords(), time.UTC)},
	})
	s.pollOnce(context.Background(), nil)
	st := s.snapshotStatus()
	if st.LastError != "store closed" || st.PollCount != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestHandler(t *testing.T) {
	s, _ := testService(t, nil, 1000)
	s.cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	s.pollOnce(context.Background(), nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) *http.Response {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = resp.Body.Close() })
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
		return resp
	}

	get("/healthz")
	get("/metrics")

	var pending []model.RunRecord
	if err := json.NewDecoder(get("/v1/pending").Body).Decode(&pending); err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Dungeon != "西津渡" {
		t.Errorf("pending = %+v", pending)
	}

	var st Status
	if err := json.NewDecoder(get("/v1/status").Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Summary.Pending != 1 || len(st.Folders) != 1 {
		t.Errorf("status = %+v", st)
	}

	var events []Event
	if err := json.NewDecoder(get("/v1/events").Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("events = %+v", events)
	}
	if err := json.NewDecoder(get("/v1/events?after=1").Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("events after 1 = %+v", events)
	}

	resp, err := http.Get(srv.URL + "/v1/events?after=x")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad cursor status = %d", resp.StatusCode)
	}
}

func TestWatcher_TriggersPoll(t *testing.T) {
	s, chat := testService(t, nil, 1000)
	fired := make(chan struct{}, 1)
	w, err := newWatcher(50*time.Millisecond, s.logger, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	folders, _ := s.cfg.Folders.Folders()
	w.sync(folders)
	go w.loop(ctx)

	if err := os.WriteFile(filepath.Join(filepath.Dir(chat), "new.db"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire")
	}
}
