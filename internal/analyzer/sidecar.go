package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

// SidecarExt is the file suffix of GKP session metadata files.
const SidecarExt = ".gkp.jx3dat"

const sidecarTimeLayout = "2006-01-02-15-04-05"

var (
	sidecarFullName  = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2})_(\d+人)(普通|英雄|挑战)?(.*?)\.gkp\.jx3dat`)
	sidecarShortName = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2})_(.*?)\.gkp\.jx3dat`)
)

// Sidecar is the session metadata encoded in one GKP file name.
type Sidecar struct {
	Name       string
	Start      time.Time
	End        time.Time
	TeamToken  string
	Difficulty string
	Dungeon    string
}

// ParseSidecar decodes a sidecar file name. modTime becomes the session end.
func ParseSidecar(name string, modTime time.Time, loc *time.Location) (Sidecar, bool) {
	if loc == nil {
		loc = time.Local
	}
	sc := Sidecar{Name: name, End: modTime}
	var stamp string
	if m := sidecarFullName.FindStringSubmatch(name); m != nil {
		stamp = m[1]
		sc.TeamToken = m[2]
		sc.Difficulty = m[3]
		if sc.Difficulty == "" {
			sc.Difficulty = "普通"
		}
		sc.Dungeon = strings.TrimSpace(m[4])
	} else if m := sidecarShortName.FindStringSubmatch(name); m != nil {
		stamp = m[1]
		sc.TeamToken = tenToken
		sc.Dungeon = strings.TrimSpace(m[2])
	} else {
		return Sidecar{}, false
	}

	start, err := time.ParseInLocation(sidecarTimeLayout, stamp, loc)
	if err != nil {
		return Sidecar{}, false
	}
	sc.Start = start
	return sc, true
}

// SortSidecars orders sidecars by session start.
func SortSidecars(s []Sidecar) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Start.Before(s[j].Start) })
}

// Team maps the sidecar's size token onto a team class.
func (s Sidecar) Team() model.TeamType {
	switch {
	case strings.Contains(s.TeamToken, "25"):
		return model.TeamTwentyFive
	case s.TeamToken == "" || strings.Contains(s.TeamToken, "10"):
		return model.TeamTen
	default:
		return model.TeamUnknown
	}
}

// Correlate selects, for each sidecar, the lines whose time falls inside
// [Start, End] and returns one sidecar range per non-empty selection. The
// sidecar's own dungeon, team and difficulty are authoritative.
func Correlate(lines []model.ChatLine, sidecars []Sidecar, r *Resolver) []SessionRange {
	var ranges []SessionRange
	for _, sc := range sidecars {
		lo, hi := sc.Start.Unix(), sc.End.Unix()
		first, last := -1, -1
		for i, l := range lines {
			if l.Time < lo || l.Time > hi {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
		}
		if first < 0 {
			continue
		}
		p := &Placement{
			Dungeon:        sc.Dungeon,
			Team:           sc.Team(),
			DifficultyNote: sc.Difficulty,
			SpecialItems:   r.SpecialItems(sc.Dungeon),
		}
		ranges = append(ranges, SessionRange{
			StartIndex: first,
			EndIndex:   last,
			StartTime:  lines[first].Time,
			EndTime:    lines[last].Time,
			Descriptor: sc.Name,
			Source:     model.SourceSidecar,
			Placement:  p,
		})
	}
	return ranges
}
