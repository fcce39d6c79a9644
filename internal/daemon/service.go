// Package daemon provides the long-running background analysis service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/observe"
	"github.com/theirongolddev/runledger/internal/pipeline"
)

// FolderSource lists the folders to analyze. It is consulted on every poll
// so folders added while the daemon runs are picked up.
type FolderSource interface {
	Folders() ([]model.Folder, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	Watch        bool
	Debounce     time.Duration
	EventsBuffer int

	Folders  FolderSource
	Pipeline pipeline.Options

	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// Snapshot is a compact analysis state for status/event payloads.
type Snapshot struct {
	At              time.Time `json:"at"`
	Files           int       `json:"files"`
	Pending         int       `json:"pending"`
	PendingPersonal int64     `json:"pending_personal"`
	Empty           int       `json:"empty"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	Duplicates      int       `json:"duplicates"`
}

// Brief identifies a pending record in events.
type Brief struct {
	UID      string    `json:"uid"`
	Dungeon  string    `json:"dungeon"`
	Worker   string    `json:"worker"`
	End      time.Time `json:"end_time"`
	Personal int64     `json:"personal_salary"`
}

// Delta captures pending-set changes between polls.
type Delta struct {
	Added   []Brief  `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

func (d Delta) isZero() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Event is emitted whenever the pending set changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Folders         []string  `json:"folders"`
	Watching        bool      `json:"watching"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	logger *slog.Logger
	kick   chan struct{}

	events    *hub
	startedAt time.Time

	// Guarded by mu; written only by the poll loop.
	mu         sync.RWMutex
	lastPollAt time.Time
	pollCount  int64
	lastError  string
	folders    []string
	watching   bool
	polled     bool
	snapshot   Snapshot
	pending    []model.RunRecord
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < time.Second {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 3 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8797"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pipeline.Logger == nil {
		cfg.Pipeline.Logger = logger
	}

	return &Service{
		cfg:       cfg,
		logger:    logger,
		kick:      make(chan struct{}, 1),
		events:    newHub(cfg.EventsBuffer),
		startedAt: time.Now(),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/pending", s.handlePending)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	if s.cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.cfg.MetricsHandler)
	}
	if m := s.cfg.Pipeline.Metrics; m != nil {
		return observe.Middleware(m, s.logger)(mux)
	}
	return mux
}

// Run starts HTTP endpoints, the folder watcher and polling until ctx is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("daemon listening", "addr", s.cfg.Addr, "interval", s.cfg.Interval)

	var w *watcher
	if s.cfg.Watch {
		var err error
		w, err = newWatcher(s.cfg.Debounce, s.logger, s.Trigger)
		if err != nil {
			s.logger.Warn("folder watching disabled", "err", err)
		} else {
			defer func() { _ = w.Close() }()
			go w.loop(ctx)
		}
	}

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx, w)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.logger.Info("daemon stopping")
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx, w)
		case <-s.kick:
			s.pollOnce(ctx, w)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// Trigger requests a poll as soon as the current one finishes.
func (s *Service) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Service) pollOnce(ctx context.Context, w *watcher) {
	now := time.Now()
	folders, err := s.cfg.Folders.Folders()
	if err == nil && w != nil {
		w.sync(folders)
	}
	var res *pipeline.Result
	if err == nil {
		res, err = pipeline.Run(ctx, folders, s.cfg.Pipeline)
	}
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		if ctx.Err() == nil {
			s.logger.Error("daemon poll failed", "err", err)
		}
		return
	}

	pending := res.Pending()
	snap := snapshotFromResult(res, pending, now)
	paths := make([]string, len(folders))
	for i, f := range folders {
		paths[i] = f.Path
	}

	s.mu.Lock()
	prev, first := s.pending, !s.polled
	s.polled = true
	s.snapshot = snap
	s.pending = pending
	s.folders = paths
	s.watching = w != nil
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	s.mu.Unlock()

	if m := s.cfg.Pipeline.Metrics; m != nil {
		m.PendingRecords.Add(ctx, int64(len(pending)-len(prev)))
	}

	delta := diffPending(prev, pending)
	typ := eventPendingDelta
	if first {
		typ = eventSnapshot
	} else if delta.isZero() {
		return
	}
	ev := s.events.publish(newEvent(typ, now, snap, delta))
	s.logger.Info("pending records changed",
		"event", ev.ID, "pending", len(pending), "added", len(delta.Added), "removed", len(delta.Removed))
}

func snapshotFromResult(res *pipeline.Result, pending []model.RunRecord, at time.Time) Snapshot {
	snap := Snapshot{
		At:         at,
		Files:      res.Summary.Files,
		Pending:    len(pending),
		Empty:      res.Summary.Empty,
		Skipped:    res.Summary.Skipped,
		Failed:     len(res.Summary.FileErrors),
		Duplicates: res.Summary.Duplicates,
	}
	for _, r := range pending {
		snap.PendingPersonal += r.PersonalSalary
	}
	return snap
}

func brief(r model.RunRecord) Brief {
	return Brief{UID: r.UID, Dungeon: r.Dungeon, Worker: r.Worker, End: r.End, Personal: r.PersonalSalary}
}

func diffPending(prev, curr []model.RunRecord) Delta {
	before := make(map[string]bool, len(prev))
	for _, r := range prev {
		before[r.UID] = true
	}
	after := make(map[string]bool, len(curr))
	var d Delta
	for _, r := range curr {
		after[r.UID] = true
		if !before[r.UID] {
			d.Added = append(d.Added, brief(r))
		}
	}
	for _, r := range prev {
		if !after[r.UID] {
			d.Removed = append(d.Removed, r.UID)
		}
	}
	return d
}

func (s *Service) snapshotStatus() Status {
	events, subs := s.events.counts()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Folders:         s.folders,
		Watching:        s.watching,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      events,
		SubscriberCount: subs,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// eventCursor parses an event ID from the after query parameter or the
// Last-Event-ID header.
func eventCursor(r *http.Request) (int64, error) {
	v := r.URL.Query().Get("after")
	if v == "" {
		v = r.Header.Get("Last-Event-ID")
	}
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid event id %q", v)
	}
	return id, nil
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handlePending(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	pending := slices.Clone(s.pending)
	s.mu.RUnlock()
	if pending == nil {
		pending = []model.RunRecord{}
	}
	writeJSON(w, pending)
}

// handleEvents lists retained events, optionally only those after ?after=ID.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	after, err := eventCursor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.events.since(after))
}

// handleStream serves events as SSE. A fresh client first gets the current
// snapshot; a reconnecting one gets the retained events it missed.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	after, err := eventCursor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ch, backlog, cancel := s.events.subscribe(after)
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	if after == 0 {
		backlog = []Event{newEvent(eventSnapshot, time.Now(), s.snapshotStatus().Summary, Delta{})}
	}
	for _, ev := range backlog {
		if writeSSE(w, ev) != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if ev.ID <= after {
				continue
			}
			if writeSSE(w, ev) != nil {
				return
			}
			flusher.Flush()
		}
	}
}
