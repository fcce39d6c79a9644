package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/observe"
	"github.com/theirongolddev/runledger/internal/source"
)

// ProgressFunc is called as files finish.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// StatusFunc reports per-file progress: reading fills 0-50, analysis
// reports 60, completion 100.
type StatusFunc func(file string, percent float64, status string)

// Status strings passed to StatusFunc.
const (
	StatusReading   = "reading"
	StatusAnalyzing = "analyzing"
	StatusDone      = "done"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Options configures a batch run. Analyzer is required.
type Options struct {
	Analyzer     *analyzer.Analyzer
	Ledger       Ledger
	BatchSize    int
	MaxFileBytes int64
	Workers      int

	Logger   *slog.Logger
	Metrics  *observe.Metrics
	Progress ProgressFunc
	Status   StatusFunc
}

// FileError is one file the batch could not analyze.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }

// Summary counts what a batch did.
type Summary struct {
	Files      int
	Produced   int
	Duplicates int
	Empty      int
	Skipped    int
	Malformed  int
	Discarded  int
	FileErrors []FileError
	Duration   time.Duration
}

// Result is the output of one batch: new records and per-file sentinels in
// file order.
type Result struct {
	Records []model.RunRecord
	Summary Summary
}

// Pending returns the records that are not sentinels.
func (r *Result) Pending() []model.RunRecord {
	var out []model.RunRecord
	for _, rec := range r.Records {
		if !rec.IsEmpty() {
			out = append(out, rec)
		}
	}
	return out
}

type task struct {
	file     source.ChatFile
	sidecars []analyzer.Sidecar
}

type fileOutcome struct {
	res     analyzer.FileResult
	outcome string
	err     error
}

// Run analyzes every chat log of folders and deduplicates the produced
// records against the ledger and each other. Files are analyzed in
// parallel; dedup runs in file order afterwards, so the first file to
// produce a UID keeps it. Unreadable, corrupt or oversized files become
// sentinels and never abort the batch. The ledger is only read.
func Run(ctx context.Context, folders []model.Folder, opts Options) (*Result, error) {
	if opts.Analyzer == nil {
		return nil, errors.New("pipeline: analyzer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	result := &Result{}
	var tasks []task
	for _, f := range folders {
		files, err := source.ScanFolder(f.Path, f.Worker, opts.MaxFileBytes)
		if err != nil {
			logger.Warn("scanning folder", "folder", f.Path, "err", err)
			result.Summary.FileErrors = append(result.Summary.FileErrors, FileError{File: f.Path, Err: err})
			continue
		}
		if len(files) == 0 {
			continue
		}
		sidecars, err := source.ScanSidecars(f.Path, opts.Analyzer.Location())
		if err != nil {
			logger.Warn("scanning sidecars", "folder", f.Path, "err", err)
		}
		for _, cf := range files {
			tasks = append(tasks, task{file: cf, sidecars: sidecars})
		}
	}
	result.Summary.Files = len(tasks)
	if len(tasks) == 0 {
		return result, nil
	}

	numWorkers := opts.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	outcomes := make([]fileOutcome, len(tasks))

	// Counting and reporting share one lock so callbacks never overlap and
	// current only grows.
	var (
		progressMu sync.Mutex
		processed  int
	)
	done := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		processed++
		if opts.Progress != nil {
			opts.Progress(processed, len(tasks))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = analyzeTask(gctx, tasks[i], opts)
			done()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for i, out := range outcomes {
		name := tasks[i].file.Name
		sum := &result.Summary
		sum.Malformed += out.res.Malformed
		sum.Discarded += out.res.Discarded
		switch out.outcome {
		case "skipped":
			sum.Skipped++
		case "failed":
			sum.FileErrors = append(sum.FileErrors, FileError{File: tasks[i].file.Path, Err: out.err})
		case "empty":
			sum.Empty++
		}

		for _, rec := range out.res.Records {
			if rec.IsEmpty() {
				result.Records = append(result.Records, rec)
				continue
			}
			if _, dup := seen[rec.UID]; dup {
				sum.Duplicates++
				continue
			}
			if opts.Ledger != nil {
				filled, err := opts.Ledger.Contains(rec.UID)
				if err != nil {
					return nil, fmt.Errorf("checking ledger for %s: %w", name, err)
				}
				if filled {
					sum.Duplicates++
					continue
				}
			}
			seen[rec.UID] = struct{}{}
			result.Records = append(result.Records, rec)
			sum.Produced++
		}
	}
	result.Summary.Duration = time.Since(start)

	if m := opts.Metrics; m != nil {
		m.RecordsProduced.Add(ctx, int64(result.Summary.Produced))
		m.Duplicates.Add(ctx, int64(result.Summary.Duplicates))
		m.MalformedLines.Add(ctx, int64(result.Summary.Malformed))
		m.BatchDuration.Record(ctx, result.Summary.Duration.Seconds())
	}
	logger.Info("analysis finished",
		"files", result.Summary.Files,
		"produced", result.Summary.Produced,
		"duplicates", result.Summary.Duplicates,
		"empty", result.Summary.Empty,
		"skipped", result.Summary.Skipped,
		"failed", len(result.Summary.FileErrors),
		"duration", result.Summary.Duration,
	)
	return result, nil
}

// analyzeTask reads and analyzes one file. Every failure, panics included,
// comes back as the file's sentinel.
func analyzeTask(ctx context.Context, t task, opts Options) (out fileOutcome) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := t.file
	start := time.Now()
	status := func(pct float64, s string) {
		if opts.Status != nil {
			opts.Status(f.Name, pct, s)
		}
	}
	sentinel := analyzer.FileResult{Records: []model.RunRecord{analyzer.EmptyRecord(f.Name, f.Worker)}}

	defer func() {
		if r := recover(); r != nil {
			out = fileOutcome{res: sentinel, outcome: "failed", err: fmt.Errorf("panic: %v", r)}
		}
		if out.err != nil {
			logger.Warn("analyzing file", "file", f.Path, "err", out.err)
			status(100, StatusFailed)
		}
		if opts.Metrics != nil {
			opts.Metrics.RecordFile(ctx, out.outcome, time.Since(start).Seconds())
		}
	}()

	if f.Oversized {
		logger.Info("skipping oversized file", "file", f.Path, "size", f.Size)
		status(100, StatusSkipped)
		return fileOutcome{res: sentinel, outcome: "skipped"}
	}

	status(0, StatusReading)
	lines, err := source.ReadFile(ctx, f.Path, opts.BatchSize, func(read, total int) {
		pct := 50.0
		if total > 0 {
			pct = min(50, float64(read)/float64(total)*50)
		}
		status(pct, StatusReading)
	})
	if err != nil {
		return fileOutcome{res: sentinel, outcome: "failed", err: err}
	}

	status(60, StatusAnalyzing)
	res := opts.Analyzer.AnalyzeFile(analyzer.FileInput{
		Name:     f.Name,
		Worker:   f.Worker,
		Lines:    lines,
		Sidecars: t.sidecars,
	})
	status(100, StatusDone)

	outcome := "found"
	if !res.Found() {
		outcome = "empty"
	}
	logger.Debug("analyzed file", "file", f.Name, "records", len(res.Records),
		"sidecar_ranges", res.SidecarRanges, "marker_ranges", res.MarkerRanges)
	return fileOutcome{res: res, outcome: outcome}
}
