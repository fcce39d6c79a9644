package analyzer

// Resolve picks the leader: the earliest candidate of the highest non-empty
// tier, or "" when nobody announced anything. Equal indices break on name.
func (c LeaderCandidates) Resolve() string {
	for _, tier := range []map[string]int{c.Tier3, c.Tier2, c.Tier1} {
		if name, ok := earliest(tier); ok {
			return name
		}
	}
	return ""
}

func earliest(tier map[string]int) (string, bool) {
	best, bestIdx, found := "", 0, false
	for name, idx := range tier {
		if !found || idx < bestIdx || (idx == bestIdx && name < best) {
			best, bestIdx, found = name, idx, true
		}
	}
	return best, found
}
