package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	brickValue = 10000

	payoutMarker = "你获得："
	payoutTag    = "Text_Gold"
)

var (
	goldPattern   = regexp.MustCompile(`(\d+)金(砖)?`)
	payoutPattern = regexp.MustCompile(`text="(\d+)"[^>]*name="Text_(GoldB|Gold|Silver|Copper)"`)
)

// denominationCopper is the copper value of one unit of each payout tag.
var denominationCopper = map[string]int64{
	"GoldB":  100000000,
	"Gold":   10000,
	"Silver": 100,
	"Copper": 1,
}

// ParseGold converts brick/plain text such as "3金砖500金" into gold.
// Only the first brick amount and the first plain amount count.
// ok is false when a matched number could not be represented; that
// amount contributes zero.
func ParseGold(text string) (gold int64, ok bool) {
	ok = true
	var seenBrick, seenPlain bool
	for _, m := range goldPattern.FindAllStringSubmatch(text, -1) {
		brick := m[2] != ""
		if (brick && seenBrick) || (!brick && seenPlain) {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if brick {
			seenBrick = true
			if err != nil || n > math.MaxInt64/brickValue {
				ok = false
				continue
			}
			n *= brickValue
		} else {
			seenPlain = true
			if err != nil {
				ok = false
				continue
			}
		}
		if gold > math.MaxInt64-n {
			ok = false
			continue
		}
		gold += n
	}
	return gold, ok
}

// HasPayout reports whether a raw payload announces a personal payout.
func HasPayout(msg string) bool {
	return strings.Contains(msg, payoutMarker) && strings.Contains(msg, payoutTag)
}

// ParsePayout sums the denomination pairs in a payout payload and returns
// the amount in gold, rounded half to even. A zero result means the payload
// carried no payout.
func ParsePayout(msg string) (gold int64, ok bool) {
	ok = true
	cleaned := strings.Join(strings.Fields(msg), "")

	var copper int64
	for _, m := range payoutPattern.FindAllStringSubmatch(cleaned, -1) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		weight := denominationCopper[m[2]]
		if err != nil || n > math.MaxInt64/weight {
			ok = false
			continue
		}
		v := n * weight
		if copper > math.MaxInt64-v {
			ok = false
			continue
		}
		copper += v
	}
	if copper <= 0 {
		return 0, ok
	}
	return int64(math.RoundToEven(float64(copper) / 10000)), ok
}
