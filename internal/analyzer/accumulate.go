package analyzer

import (
	"strconv"
	"strings"

	"github.com/theirongolddev/runledger/internal/model"
)

// Outcome is the result of testing one line against one event category.
type Outcome int

const (
	NoMatch Outcome = iota
	Applied
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Malformed:
		return "malformed"
	default:
		return "no-match"
	}
}

// Category is an event shape recognized inside a session.
type Category int

const (
	CombatStart Category = iota
	TeamIncome
	Award
	Purchase
	Penalty
	Payout
	numCategories
)

var categoryNames = [numCategories]string{
	CombatStart: "combat-start",
	TeamIncome:  "team-income",
	Award:       "award",
	Purchase:    "purchase",
	Penalty:     "penalty",
	Payout:      "payout",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Classification holds the per-category outcome for one line. Categories
// are checked independently, so more than one may apply.
type Classification [numCategories]Outcome

// Matched reports whether any category applied or was malformed.
func (c Classification) Matched() bool {
	for _, o := range c {
		if o != NoMatch {
			return true
		}
	}
	return false
}

// Malformed reports whether any category matched with unparseable numbers.
func (c Classification) Malformed() bool {
	for _, o := range c {
		if o == Malformed {
			return true
		}
	}
	return false
}

// Tally is a category total plus the designated worker's share of it.
type Tally struct {
	Total       int64
	Consumption int64
}

func (t *Tally) add(amount int64, byWorker bool) {
	t.Total += amount
	if byWorker {
		t.Consumption += amount
	}
}

// LeaderCandidates maps candidate names to the line index of their first
// announcement, one map per priority tier. Tier3 outranks Tier2 outranks Tier1.
type LeaderCandidates struct {
	Tier1 map[string]int
	Tier2 map[string]int
	Tier3 map[string]int
}

func newLeaderCandidates() LeaderCandidates {
	return LeaderCandidates{
		Tier1: make(map[string]int),
		Tier2: make(map[string]int),
		Tier3: make(map[string]int),
	}
}

func register(tier map[string]int, name string, idx int) {
	if _, seen := tier[name]; !seen {
		tier[name] = idx
	}
}

// Accumulator folds the lines of one session range into running totals.
type Accumulator struct {
	Placement
	Worker string

	Salaries []int64

	TeamTotal         int64
	SubsidyTotal      int64
	Distributable     int64
	DistributionCount int
	BaseSalary        int64

	PenaltyTotal int64

	Scattered Tally
	Iron      Tally
	Special   Tally
	Other     Tally

	Purchases []model.SpecialPurchase
	Leaders   LeaderCandidates

	// Discarded counts purchases dropped because they named another
	// dungeon's special drop.
	Discarded int
	Malformed int

	keywords Keywords
	resolver *Resolver
	index    int
}

// NewAccumulator starts an empty accumulator for a run at p.
func NewAccumulator(p Placement, worker string, kw Keywords, r *Resolver) *Accumulator {
	return &Accumulator{
		Placement: p,
		Worker:    worker,
		Leaders:   newLeaderCandidates(),
		keywords:  kw,
		resolver:  r,
	}
}

// Apply classifies one line and folds whatever it carries into a.
func (a *Accumulator) Apply(l model.ChatLine) Classification {
	var c Classification
	idx := a.index
	a.index++

	text := l.Text
	if strings.HasPrefix(text, teamChannel) && strings.Contains(text, combatStartPhrase) {
		if m := teamSpeakerPattern.FindStringSubmatch(text); m != nil {
			register(a.Leaders.Tier3, m[1], idx)
			c[CombatStart] = Applied
		}
	}

	if strings.HasPrefix(text, roomChannel) {
		if strings.Contains(text, incomePhrase) {
			if m := roomSpeakerPattern.FindStringSubmatch(text); m != nil {
				register(a.Leaders.Tier2, m[1], idx)
				c[TeamIncome] = a.applyTeamIncome(text)
			}
		} else if containsAll(text, awardFragments) {
			if m := roomSpeakerPattern.FindStringSubmatch(text); m != nil {
				register(a.Leaders.Tier1, m[1], idx)
				c[Award] = Applied
			}
		}
	}

	if m := purchasePattern.FindStringSubmatch(text); m != nil {
		c[Purchase] = a.applyPurchase(m[2], m[3], m[4])
	}

	if l.Msg != "" && HasPayout(l.Msg) {
		gold, ok := ParsePayout(l.Msg)
		switch {
		case !ok:
			c[Payout] = Malformed
		case gold > 0:
			c[Payout] = Applied
		}
		if gold > 0 {
			a.Salaries = append(a.Salaries, gold)
		}
	}

	if m := penaltyPattern.FindStringSubmatch(text); m != nil {
		amount, ok := ParseGold(m[2])
		a.Other.Total += amount
		if m[1] == a.Worker {
			a.PenaltyTotal += amount
		}
		c[Penalty] = outcome(ok)
	}

	if c.Malformed() {
		a.Malformed++
	}
	return c
}

// applyTeamIncome records the distribution header. Fields that fail to
// parse are left at zero; a line carrying the income phrase without the
// rest of the header records nothing and is malformed.
func (a *Accumulator) applyTeamIncome(text string) Outcome {
	m := teamIncomePattern.FindStringSubmatch(text)
	if m == nil {
		return Malformed
	}
	ok := true
	num := func(s string) int64 {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			ok = false
			return 0
		}
		return n
	}
	a.TeamTotal = num(m[2])
	a.SubsidyTotal = num(m[3])
	a.Distributable = num(m[4])
	a.DistributionCount = int(num(m[5]))
	a.BaseSalary = num(m[6])
	return outcome(ok)
}

func (a *Accumulator) applyPurchase(buyer, priceText, item string) Outcome {
	price, ok := ParseGold(priceText)
	byWorker := buyer == a.Worker

	if drop, found := FindSpecial(item, a.Placement.SpecialItems); found {
		a.Special.add(price, byWorker)
		a.Purchases = append(a.Purchases, model.SpecialPurchase{
			Item:         drop,
			Price:        price,
			OriginalName: item,
			Buyer:        buyer,
		})
		return outcome(ok)
	}
	// TODO: confirm whether another dungeon's special drop bought here should
	// count as other instead of being dropped; Discarded keeps it visible.
	if a.resolver != nil && a.resolver.IsGlobalSpecial(item) {
		a.Discarded++
		return outcome(ok)
	}

	switch {
	case containsAny(item, a.keywords.Scattered):
		a.Scattered.add(price, byWorker)
	case containsAny(item, a.keywords.Iron):
		a.Iron.add(price, byWorker)
	default:
		a.Other.add(price, byWorker)
	}
	return outcome(ok)
}

func outcome(ok bool) Outcome {
	if ok {
		return Applied
	}
	return Malformed
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
