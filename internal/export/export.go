// Package export reads and writes the portable ledger document and CSV
// record dumps.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/model"
)

// Version is written to Metadata.Version.
const Version = "1.0"

// TimeLayout is the document's timestamp format.
const TimeLayout = "2006-01-02 15:04:05"

// Document is the portable ledger: dungeon presets plus committed records.
type Document struct {
	Metadata Metadata       `json:"metadata"`
	Dungeons []DungeonEntry `json:"dungeons"`
	Records  []RecordEntry  `json:"records"`
}

// Metadata describes an export.
type Metadata struct {
	ExportTime   string `json:"export_time"`
	Version      string `json:"version"`
	RecordCount  int    `json:"record_count"`
	DungeonCount int    `json:"dungeon_count"`
}

// DungeonEntry is a dungeon preset. Drops are one comma-joined string.
type DungeonEntry struct {
	Name         string `json:"name"`
	SpecialDrops Drops  `json:"special_drops"`
}

// Drops reads either a drop string or a list of drops.
type Drops []string

// MarshalJSON writes the comma-joined form.
func (d Drops) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(d, ","))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Drops) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*d = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("special_drops: %w", err)
	}
	*d = config.SplitDrops(s)
	return nil
}

// Gold is an amount that may be written as a number or a numeric string.
type Gold int64

// UnmarshalJSON implements json.Unmarshaler.
func (g *Gold) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*g = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*g = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("gold amount %s: %w", b, err)
	}
	*g = Gold(f)
	return nil
}

// Auction is one special purchase inside a record.
type Auction struct {
	Item         string `json:"item"`
	Price        Gold   `json:"price"`
	OriginalName string `json:"original_name,omitempty"`
	Buyer        string `json:"buyer,omitempty"`
}

// RecordEntry is one committed run.
type RecordEntry struct {
	UID          string    `json:"uid,omitempty"`
	DungeonName  string    `json:"dungeon_name"`
	TrashGold    Gold      `json:"trash_gold"`
	IronGold     Gold      `json:"iron_gold"`
	OtherGold    Gold      `json:"other_gold"`
	SpecialGold  Gold      `json:"special_gold,omitempty"`
	Auctions     []Auction `json:"special_auctions"`
	TotalGold    Gold      `json:"total_gold"`
	BlackOwner   string    `json:"black_owner"`
	Worker       string    `json:"worker"`
	StartTime    string    `json:"start_time,omitempty"`
	Time         string    `json:"time"`
	TeamType     string    `json:"team_type"`
	LieDownCount int       `json:"lie_down_count"`
	FineGold     Gold      `json:"fine_gold"`
	SubsidyGold  Gold      `json:"subsidy_gold"`
	PersonalGold Gold      `json:"personal_gold"`
	Note         string    `json:"note"`

	ScatteredConsumption Gold `json:"scattered_consumption"`
	IronConsumption      Gold `json:"iron_consumption"`
	SpecialConsumption   Gold `json:"special_consumption"`
	OtherConsumption     Gold `json:"other_consumption"`
	TotalConsumption     Gold `json:"total_consumption"`
}

// Build assembles a document. Records are written oldest first.
func Build(dungeons []model.Dungeon, records []model.StoredRecord, now time.Time) Document {
	doc := Document{
		Metadata: Metadata{
			ExportTime:   now.Format(TimeLayout),
			Version:      Version,
			RecordCount:  len(records),
			DungeonCount: len(dungeons),
		},
		Dungeons: make([]DungeonEntry, 0, len(dungeons)),
		Records:  make([]RecordEntry, 0, len(records)),
	}
	for _, d := range dungeons {
		doc.Dungeons = append(doc.Dungeons, DungeonEntry{Name: d.Name, SpecialDrops: d.SpecialDrops})
	}
	sorted := slices.Clone(records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].End.Before(sorted[j].End) })
	for _, r := range sorted {
		doc.Records = append(doc.Records, entryFrom(r.RunRecord))
	}
	return doc
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func entryFrom(r model.RunRecord) RecordEntry {
	auctions := make([]Auction, 0, len(r.SpecialItems))
	for _, it := range r.SpecialItems {
		auctions = append(auctions, Auction{Item: it.Item, Price: Gold(it.Price), OriginalName: it.OriginalName, Buyer: it.Buyer})
	}
	return RecordEntry{
		UID:                  r.UID,
		DungeonName:          r.Dungeon,
		TrashGold:            Gold(r.ScatteredTotal),
		IronGold:             Gold(r.IronTotal),
		OtherGold:            Gold(r.OtherTotal),
		SpecialGold:          Gold(r.SpecialTotal),
		Auctions:             auctions,
		TotalGold:            Gold(r.TeamTotal),
		BlackOwner:           r.Leader,
		Worker:               r.Worker,
		StartTime:            formatTime(r.Start),
		Time:                 formatTime(r.End),
		TeamType:             string(r.Team),
		LieDownCount:         r.LieDownCount,
		FineGold:             Gold(r.PenaltyTotal),
		SubsidyGold:          Gold(r.Subsidy),
		PersonalGold:         Gold(r.PersonalSalary),
		Note:                 r.Note,
		ScatteredConsumption: Gold(r.ScatteredConsumption),
		IronConsumption:      Gold(r.IronConsumption),
		SpecialConsumption:   Gold(r.SpecialConsumption),
		OtherConsumption:     Gold(r.OtherConsumption),
		TotalConsumption:     Gold(r.TotalConsumption),
	}
}

// Record converts an entry back to a run record, reading times in loc.
func (e RecordEntry) Record(loc *time.Location) (model.RunRecord, error) {
	if loc == nil {
		loc = time.Local
	}
	end, err := parseTime(e.Time, loc)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("time: %w", err)
	}
	start, err := parseTime(e.StartTime, loc)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("start_time: %w", err)
	}
	r := model.RunRecord{
		UID:                  e.UID,
		Start:                start,
		End:                  end,
		Dungeon:              e.DungeonName,
		Team:                 model.TeamType(e.TeamType),
		Leader:               e.BlackOwner,
		Worker:               e.Worker,
		TeamTotal:            int64(e.TotalGold),
		PersonalSalary:       int64(e.PersonalGold),
		Subsidy:              int64(e.SubsidyGold),
		PenaltyTotal:         int64(e.FineGold),
		ScatteredTotal:       int64(e.TrashGold),
		IronTotal:            int64(e.IronGold),
		OtherTotal:           int64(e.OtherGold),
		SpecialTotal:         int64(e.SpecialGold),
		ScatteredConsumption: int64(e.ScatteredConsumption),
		IronConsumption:      int64(e.IronConsumption),
		SpecialConsumption:   int64(e.SpecialConsumption),
		OtherConsumption:     int64(e.OtherConsumption),
		TotalConsumption:     int64(e.TotalConsumption),
		LieDownCount:         e.LieDownCount,
		Note:                 e.Note,
	}
	var special int64
	for _, a := range e.Auctions {
		r.SpecialItems = append(r.SpecialItems, model.SpecialPurchase{
			Item: a.Item, Price: int64(a.Price), OriginalName: a.OriginalName, Buyer: a.Buyer,
		})
		special += int64(a.Price)
	}
	if r.SpecialTotal == 0 {
		r.SpecialTotal = special
	}
	return r, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" || s == model.NotFound {
		return time.Time{}, nil
	}
	return time.ParseInLocation(TimeLayout, s, loc)
}

// WriteJSON writes doc indented, with CJK left unescaped.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSON decodes a document.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decoding export: %w", err)
	}
	return doc, nil
}
