package analyzer

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

// TimeLayout is how run boundaries are rendered in UIDs and output.
const TimeLayout = "2006-01-02 15:04:05"

// lieDownSalary is the token payout handed to players who did not play.
const lieDownSalary = 10

// Finalize turns the accumulated totals of rng into a RunRecord.
// Start and End are the boundary line times in loc.
func (a *Accumulator) Finalize(rng SessionRange, file string, loc *time.Location) model.RunRecord {
	if loc == nil {
		loc = time.Local
	}

	personal := int64(0)
	for _, s := range a.Salaries {
		if s > personal {
			personal = s
		}
	}

	var notes []string
	if a.DifficultyNote != "" {
		notes = append(notes, a.DifficultyNote)
	}
	if personal == lieDownSalary {
		personal = 0
		notes = append(notes, lieDownToken)
		if a.PenaltyTotal > 0 {
			notes = append(notes, fmt.Sprintf("抵消%d金", a.PenaltyTotal))
		}
	}

	var subsidy int64
	if personal > 0 && personal > a.BaseSalary {
		subsidy = a.PenaltyTotal + (personal - a.BaseSalary)
	}

	rec := model.RunRecord{
		File:    file,
		Source:  rng.Source,
		Start:   time.Unix(rng.StartTime, 0).In(loc),
		End:     time.Unix(rng.EndTime, 0).In(loc),
		Dungeon: a.Dungeon,
		Team:    a.Team,
		Leader:  a.Leaders.Resolve(),
		Worker:  a.Worker,

		TeamTotal:         a.TeamTotal,
		SubsidyTotal:      a.SubsidyTotal,
		Distributable:     a.Distributable,
		DistributionCount: a.DistributionCount,
		BaseSalary:        a.BaseSalary,

		PersonalSalary: personal,
		Subsidy:        subsidy,
		PenaltyTotal:   a.PenaltyTotal,

		ScatteredTotal: a.Scattered.Total,
		IronTotal:      a.Iron.Total,
		OtherTotal:     a.Other.Total,
		SpecialTotal:   a.Special.Total,

		ScatteredConsumption: a.Scattered.Consumption,
		IronConsumption:      a.Iron.Consumption,
		SpecialConsumption:   a.Special.Consumption,
		OtherConsumption:     a.Other.Consumption,
		TotalConsumption:     a.TotalConsumption(),

		SpecialItems: a.Purchases,
		LieDownCount: LieDownCount(a.Team, a.DistributionCount),
		Note:         strings.Join(notes, noteSep),
	}
	rec.UID = UID(rec)
	return rec
}

// TotalConsumption is everything the worker spent during the run.
func (a *Accumulator) TotalConsumption() int64 {
	return a.Scattered.Consumption + a.Iron.Consumption + a.Special.Consumption + a.Other.Consumption
}

// LieDownCount is how many roster slots were not paid out.
func LieDownCount(team model.TeamType, headcount int) int {
	size := team.Size()
	if headcount <= 0 || size == 0 {
		return 0
	}
	return max(size-headcount, 0)
}

// UID fingerprints the twelve identifying fields of r. Records that agree
// on all of them share a UID.
func UID(r model.RunRecord) string {
	key := strings.Join([]string{
		r.Start.Format(TimeLayout),
		r.End.Format(TimeLayout),
		r.Dungeon,
		r.Leader,
		r.Worker,
		fmt.Sprint(r.TeamTotal),
		fmt.Sprint(r.PersonalSalary),
		fmt.Sprint(r.ScatteredTotal),
		fmt.Sprint(r.IronTotal),
		fmt.Sprint(r.OtherTotal),
		fmt.Sprint(r.SpecialTotal),
		r.Note,
	}, "|")
	sum := md5.Sum([]byte(key)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])[:8]
}

// EmptyRecord is the sentinel for a file that was processed but held no runs.
func EmptyRecord(file, worker string) model.RunRecord {
	return model.RunRecord{
		UID:     model.EmptyUID,
		File:    file,
		Dungeon: model.UnknownDungeon,
		Team:    model.TeamUnknown,
		Worker:  worker,
	}
}
