package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/model"
)

// Target is where an import lands. *store.Store satisfies it.
type Target interface {
	Dungeons() ([]model.Dungeon, error)
	UpsertDungeon(d model.Dungeon) error
	HasRecord(dungeon string, end time.Time, worker string) (bool, error)
	ImportRecords(recs []model.RunRecord) error
}

// ImportStats counts what an import added and skipped.
type ImportStats struct {
	DungeonsAdded   int
	DungeonsSkipped int
	RecordsAdded    int
	RecordsSkipped  int
}

// Import adds the document's new dungeons, then its records. A record is
// skipped when its dungeon is unknown after the dungeon pass or when a
// record with the same dungeon, end time and worker already exists.
// Records without a UID get one computed, so the ledger covers them.
func Import(t Target, doc Document, loc *time.Location) (ImportStats, error) {
	var stats ImportStats
	existing, err := t.Dungeons()
	if err != nil {
		return stats, fmt.Errorf("listing dungeons: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Name] = true
	}

	for _, d := range doc.Dungeons {
		if d.Name == "" || known[d.Name] {
			stats.DungeonsSkipped++
			continue
		}
		if err := t.UpsertDungeon(model.Dungeon{Name: d.Name, SpecialDrops: d.SpecialDrops}); err != nil {
			return stats, fmt.Errorf("adding dungeon %s: %w", d.Name, err)
		}
		known[d.Name] = true
		stats.DungeonsAdded++
	}

	var (
		recs []model.RunRecord
		errs []error
		seen = make(map[string]bool)
	)
	for i, e := range doc.Records {
		if !known[e.DungeonName] {
			stats.RecordsSkipped++
			continue
		}
		r, err := e.Record(loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			stats.RecordsSkipped++
			continue
		}
		key := fmt.Sprintf("%s\x00%d\x00%s", r.Dungeon, r.End.Unix(), r.Worker)
		if seen[key] {
			stats.RecordsSkipped++
			continue
		}
		seen[key] = true
		dup, err := t.HasRecord(r.Dungeon, r.End, r.Worker)
		if err != nil {
			return stats, fmt.Errorf("checking record %d: %w", i, err)
		}
		if dup {
			stats.RecordsSkipped++
			continue
		}
		if r.UID == "" {
			r.UID = analyzer.UID(r)
		}
		recs = append(recs, r)
	}
	if len(recs) > 0 {
		if err := t.ImportRecords(recs); err != nil {
			return stats, fmt.Errorf("importing records: %w", err)
		}
	}
	stats.RecordsAdded = len(recs)
	return stats, errors.Join(errs...)
}
