package analyzer

import (
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

// Analyzer runs the segment → accumulate → finalize pipeline over one file
// at a time. It holds no mutable state and may be shared across goroutines.
type Analyzer struct {
	resolver *Resolver
	keywords Keywords
	loc      *time.Location
}

// New returns an Analyzer. A nil loc renders times in time.Local.
func New(r *Resolver, kw Keywords, loc *time.Location) *Analyzer {
	if r == nil {
		r = NewResolver(nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Analyzer{resolver: r, keywords: kw, loc: loc}
}

// Location is the zone run boundaries are rendered in.
func (a *Analyzer) Location() *time.Location { return a.loc }

// Resolver returns the dungeon resolver in use.
func (a *Analyzer) Resolver() *Resolver { return a.resolver }

// FileInput is one chat log ready for analysis.
type FileInput struct {
	Name     string
	Worker   string
	Lines    []model.ChatLine
	Sidecars []Sidecar
}

// FileResult is what one file produced.
type FileResult struct {
	Records []model.RunRecord

	SidecarRanges int
	MarkerRanges  int
	Malformed     int
	Discarded     int
}

// Found reports whether the file held at least one run.
func (r FileResult) Found() bool {
	return len(r.Records) > 0 && !r.Records[0].IsEmpty()
}

// AnalyzeFile finalizes every sidecar range first, then every marker range
// whose UID a sidecar range has not already produced. A file with no runs
// yields the single empty sentinel.
func (a *Analyzer) AnalyzeFile(in FileInput) FileResult {
	var res FileResult
	if len(in.Lines) == 0 {
		res.Records = []model.RunRecord{EmptyRecord(in.Name, in.Worker)}
		return res
	}

	seen := make(map[string]struct{})
	sidecarRanges := Correlate(in.Lines, in.Sidecars, a.resolver)
	res.SidecarRanges = len(sidecarRanges)
	for _, rng := range sidecarRanges {
		rec := a.analyzeRange(in, rng, &res)
		seen[rec.UID] = struct{}{}
		res.Records = append(res.Records, rec)
	}

	markerRanges := Segment(in.Lines)
	res.MarkerRanges = len(markerRanges)
	for _, rng := range markerRanges {
		rec := a.analyzeRange(in, rng, &res)
		if _, dup := seen[rec.UID]; dup {
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 {
		res.Records = []model.RunRecord{EmptyRecord(in.Name, in.Worker)}
	}
	return res
}

func (a *Analyzer) analyzeRange(in FileInput, rng SessionRange, res *FileResult) model.RunRecord {
	acc := a.Accumulate(in.Lines, rng, in.Worker)
	res.Malformed += acc.Malformed
	res.Discarded += acc.Discarded
	return acc.Finalize(rng, in.Name, a.loc)
}

// Accumulate folds the lines of rng. Marker ranges are placed through the
// resolver; sidecar ranges bring their own placement.
func (a *Analyzer) Accumulate(lines []model.ChatLine, rng SessionRange, worker string) *Accumulator {
	var p Placement
	if rng.Placement != nil {
		p = *rng.Placement
	} else {
		p = a.resolver.Resolve(rng.Descriptor)
	}
	acc := NewAccumulator(p, worker, a.keywords, a.resolver)
	for i := rng.StartIndex; i <= rng.EndIndex && i < len(lines); i++ {
		acc.Apply(lines[i])
	}
	return acc
}
