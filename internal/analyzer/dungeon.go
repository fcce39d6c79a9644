package analyzer

import (
	"regexp"
	"strings"

	"github.com/theirongolddev/runledger/internal/model"
)

const (
	tenToken        = "10人"
	twentyFiveToken = "25人"
)

// difficulties are tried in order; the first one present is stripped.
var difficulties = []string{"普通", "英雄", "挑战", "简单", "困难"}

var annotationPattern = regexp.MustCompile(`（.*?）`)

// Placement is where a run took place: dungeon, team size and the
// difficulty annotation carried into the record note.
type Placement struct {
	Dungeon        string
	Team           model.TeamType
	DifficultyNote string
	SpecialItems   []string
}

// Resolver maps noisy marker descriptors onto the configured dungeons.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	names   []string
	special map[string][]string
	global  []string
}

// NewResolver builds a Resolver over dungeons, keeping their order.
func NewResolver(dungeons []model.Dungeon) *Resolver {
	r := &Resolver{
		names:   make([]string, 0, len(dungeons)),
		special: make(map[string][]string, len(dungeons)),
	}
	for _, d := range dungeons {
		if _, dup := r.special[d.Name]; dup {
			continue
		}
		drops := make([]string, 0, len(d.SpecialDrops))
		for _, item := range d.SpecialDrops {
			if item = strings.TrimSpace(item); item != "" {
				drops = append(drops, item)
			}
		}
		r.names = append(r.names, d.Name)
		r.special[d.Name] = drops
		r.global = append(r.global, drops...)
	}
	return r
}

// Dungeons returns the configured dungeon names in order.
func (r *Resolver) Dungeons() []string {
	return append([]string(nil), r.names...)
}

// Resolve parses a start/end marker descriptor such as "25人英雄西津渡".
// Unrecognized descriptors resolve to model.UnknownDungeon.
func (r *Resolver) Resolve(descriptor string) Placement {
	p := Placement{Team: model.TeamUnknown}
	rest := descriptor
	switch {
	case strings.Contains(rest, tenToken):
		p.Team = model.TeamTen
		rest = strings.ReplaceAll(rest, tenToken, "")
	case strings.Contains(rest, twentyFiveToken):
		p.Team = model.TeamTwentyFive
		rest = strings.ReplaceAll(rest, twentyFiveToken, "")
	}

	for _, d := range difficulties {
		if strings.Contains(rest, d) {
			rest = strings.ReplaceAll(rest, d, "")
			if p.Team == model.TeamTwentyFive && (d == "普通" || d == "英雄") {
				p.DifficultyNote = d
			}
			break
		}
	}

	p.Dungeon = r.match(strings.TrimSpace(rest))
	p.SpecialItems = r.SpecialItems(p.Dungeon)
	return p
}

func (r *Resolver) match(rest string) string {
	for _, name := range r.names {
		if name != "" && strings.Contains(rest, name) {
			return name
		}
	}
	if rest == "" {
		return model.UnknownDungeon
	}
	for _, name := range r.names {
		if strings.Contains(name, rest) {
			return name
		}
	}
	return model.UnknownDungeon
}

// SpecialItems returns the special drops configured for an exact dungeon name.
func (r *Resolver) SpecialItems(dungeon string) []string {
	return r.special[dungeon]
}

// IsGlobalSpecial reports whether item matches a special drop of any dungeon.
func (r *Resolver) IsGlobalSpecial(item string) bool {
	_, ok := FindSpecial(item, r.global)
	return ok
}

// FindSpecial returns the first configured drop that item matches.
func FindSpecial(item string, drops []string) (string, bool) {
	for _, drop := range drops {
		if MatchSpecial(item, drop) {
			return drop, true
		}
	}
	return "", false
}

// MatchSpecial reports whether a purchased item name is the configured drop,
// ignoring the drop's full-width parenthetical annotation.
func MatchSpecial(item, drop string) bool {
	clean := strings.TrimSpace(annotationPattern.ReplaceAllString(drop, ""))
	return clean != "" && strings.Contains(item, clean)
}
