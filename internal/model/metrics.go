package model

import "time"

// Dungeon is a configured dungeon with its special-drop catalog.
// Drop names may carry a full-width parenthetical annotation, e.g. "阿豪（宠物）".
type Dungeon struct {
	Name         string   `json:"name" yaml:"name"`
	SpecialDrops []string `json:"special_drops" yaml:"special_drops"`
}

// Folder is a game installation folder scanned for chat logs.
type Folder struct {
	ID     int64
	Path   string
	Worker string
}

// SummaryStats holds the top-level aggregate across committed records.
type SummaryStats struct {
	Records int

	TeamTotal int64
	TeamMax   int64

	PersonalTotal int64
	PersonalMax   int64

	ConsumptionTotal int64
	ConsumptionMax   int64

	NetTotal int64
	NetMax   int64

	LieDowns int
}

// WorkerStats holds per-worker income and spending.
type WorkerStats struct {
	Worker  string
	Records int

	IncomeTotal int64
	IncomeAvg   int64
	IncomeMax   int64

	ConsumptionTotal int64
	ConsumptionAvg   int64
	ConsumptionMax   int64

	Net int64
}

// DungeonStats groups committed runs by dungeon.
type DungeonStats struct {
	Dungeon      string
	Runs         int
	TeamTotal    int64
	SpecialTotal int64
	AvgPersonal  int64
}

// WeekEntry is one run listed in the weekly view.
type WeekEntry struct {
	Time    time.Time
	Worker  string
	Dungeon string
	Note    string
}
