// Package model defines domain types for runledger chat lines and run records.
package model

import "time"

// Sentinel values shared by the analyzer, store and renderers.
const (
	UnknownDungeon = "未知副本"
	NotFound       = "未找到"
	EmptyUID       = "empty"
)

// TeamType is the team-size class of a run.
type TeamType string

const (
	TeamTen        TeamType = "十人本"
	TeamTwentyFive TeamType = "二十五人本"
	TeamUnknown    TeamType = "未知"
)

// Size returns the nominal roster size, or 0 when the class is unknown.
func (t TeamType) Size() int {
	switch t {
	case TeamTen:
		return 10
	case TeamTwentyFive:
		return 25
	default:
		return 0
	}
}

// RangeSource tells which segmentation path produced a run.
type RangeSource int

const (
	SourceMarkers RangeSource = iota
	SourceSidecar
)

func (s RangeSource) String() string {
	if s == SourceSidecar {
		return "sidecar"
	}
	return "markers"
}

// MarshalText implements encoding.TextMarshaler.
func (s RangeSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RangeSource) UnmarshalText(b []byte) error {
	if string(b) == "sidecar" {
		*s = SourceSidecar
	} else {
		*s = SourceMarkers
	}
	return nil
}

// ChatLine is one row of a game chat log.
// Msg carries the raw markup payload and may be empty.
type ChatLine struct {
	Time int64
	Text string
	Msg  string
}

// SpecialPurchase is an auction of a dungeon-specific special drop.
type SpecialPurchase struct {
	Item         string `json:"item"`
	Price        int64  `json:"price"`
	OriginalName string `json:"original_name"`
	Buyer        string `json:"buyer"`
}

// RunRecord is the finalized ledger entry for one dungeon run.
type RunRecord struct {
	UID     string      `json:"uid"`
	File    string      `json:"file"`
	Source  RangeSource `json:"source"`
	Start   time.Time   `json:"start_time"`
	End     time.Time   `json:"end_time"`
	Dungeon string      `json:"dungeon_name"`
	Team    TeamType    `json:"team_type"`
	Leader  string      `json:"leader"`
	Worker  string      `json:"worker"`

	TeamTotal         int64 `json:"team_total"`
	SubsidyTotal      int64 `json:"subsidy_total"`
	Distributable     int64 `json:"distributable"`
	DistributionCount int   `json:"distribution_count"`
	BaseSalary        int64 `json:"base_salary"`

	PersonalSalary int64 `json:"personal_salary"`
	Subsidy        int64 `json:"subsidy"`
	PenaltyTotal   int64 `json:"penalty_total"`

	ScatteredTotal int64 `json:"scattered_total"`
	IronTotal      int64 `json:"iron_total"`
	OtherTotal     int64 `json:"other_total"`
	SpecialTotal   int64 `json:"special_total"`

	ScatteredConsumption int64 `json:"scattered_consumption"`
	IronConsumption      int64 `json:"iron_consumption"`
	SpecialConsumption   int64 `json:"special_consumption"`
	OtherConsumption     int64 `json:"other_consumption"`
	TotalConsumption     int64 `json:"total_consumption"`

	SpecialItems []SpecialPurchase `json:"special_items"`
	LieDownCount int               `json:"lie_down_count"`
	Note         string            `json:"note"`
}

// IsEmpty reports whether r is the per-file "nothing found" sentinel.
func (r RunRecord) IsEmpty() bool {
	return r.UID == EmptyUID
}

// Net is the worker's salary minus what they spent at auction.
func (r RunRecord) Net() int64 {
	return r.PersonalSalary - r.TotalConsumption
}

// StoredRecord is a RunRecord committed to the application store.
type StoredRecord struct {
	RunRecord
	ID          int64     `json:"id"`
	CommittedAt time.Time `json:"committed_at"`
}
