package analyzer

import (
	"sort"

	"github.com/theirongolddev/runledger/internal/model"
)

// Marker is a start or end marker found in the line stream.
type Marker struct {
	Index      int
	Time       int64
	Descriptor string
}

// SessionRange is an inclusive slice of the line stream believed to hold
// one run. Sidecar ranges carry their own Placement.
type SessionRange struct {
	StartIndex int
	EndIndex   int
	StartTime  int64
	EndTime    int64
	Descriptor string
	Source     model.RangeSource
	Placement  *Placement
}

// FindMarkers collects start and end markers, each stably sorted by time.
func FindMarkers(lines []model.ChatLine) (starts, ends []Marker) {
	for i, l := range lines {
		if d, ok := MatchStart(l.Text); ok {
			starts = append(starts, Marker{Index: i, Time: l.Time, Descriptor: d})
		}
		if d, ok := MatchEnd(l.Text); ok {
			ends = append(ends, Marker{Index: i, Time: l.Time, Descriptor: d})
		}
	}
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].Time < starts[j].Time })
	sort.SliceStable(ends, func(i, j int) bool { return ends[i].Time < ends[j].Time })
	return starts, ends
}

// Segment pairs start and end markers into session ranges. Each start, in
// time order, claims the lowest-index unclaimed end after it whose
// descriptor is identical. Unpaired markers yield nothing.
func Segment(lines []model.ChatLine) []SessionRange {
	starts, ends := FindMarkers(lines)
	if len(starts) == 0 || len(ends) == 0 {
		return nil
	}

	claimed := make([]bool, len(ends))
	var ranges []SessionRange
	for _, s := range starts {
		best := -1
		for j, e := range ends {
			if claimed[j] || e.Index <= s.Index || e.Descriptor != s.Descriptor {
				continue
			}
			if best < 0 || e.Index < ends[best].Index {
				best = j
			}
		}
		if best < 0 {
			continue
		}
		claimed[best] = true
		e := ends[best]
		ranges = append(ranges, SessionRange{
			StartIndex: s.Index,
			EndIndex:   e.Index,
			StartTime:  s.Time,
			EndTime:    e.Time,
			Descriptor: s.Descriptor,
			Source:     model.SourceMarkers,
		})
	}
	return ranges
}
