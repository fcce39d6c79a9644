package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

var (
	// ErrAlreadyFilled is returned when committing a record whose UID is
	// already in the ledger.
	ErrAlreadyFilled = errors.New("record already committed")
	// ErrSentinel is returned when committing the empty-file sentinel.
	ErrSentinel = errors.New("empty sentinel cannot be committed")
)

// Filter narrows ListRecords. Zero fields match everything. Since and
// Until bound the run's end time, inclusive.
type Filter struct {
	Dungeon string
	Worker  string
	Leader  string
	Item    string
	Team    model.TeamType
	Since   time.Time
	Until   time.Time
	Limit   int
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CommitRecord stores rec and adds its UID to the ledger in one transaction.
func (s *Store) CommitRecord(rec model.RunRecord) (int64, error) {
	if rec.IsEmpty() {
		return 0, ErrSentinel
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRow("SELECT 1 FROM filled_uids WHERE uid = ?", rec.UID).Scan(&one)
	switch {
	case err == nil:
		return 0, fmt.Errorf("%s: %w", rec.UID, ErrAlreadyFilled)
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("checking ledger: %w", err)
	}

	ts := timestamp()
	id, err := insertRecord(tx, rec, ts)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT INTO filled_uids (uid, fill_time) VALUES (?, ?)", rec.UID, ts); err != nil {
		return 0, fmt.Errorf("adding %s to ledger: %w", rec.UID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ImportRecords inserts recs in one transaction. Records that carry a UID
// also mark it filled.
func (s *Store) ImportRecords(recs []model.RunRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := timestamp()
	for _, rec := range recs {
		if _, err := insertRecord(tx, rec, ts); err != nil {
			return err
		}
		if rec.UID != "" {
			if _, err := tx.Exec("INSERT OR IGNORE INTO filled_uids (uid, fill_time) VALUES (?, ?)", rec.UID, ts); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func insertRecord(ex execer, r model.RunRecord, committedAt string) (int64, error) {
	items := r.SpecialItems
	if items == nil {
		items = []model.SpecialPurchase{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return 0, err
	}
	res, err := ex.Exec(`INSERT INTO records (`+recordColumns+`, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UID, r.File, r.Source.String(), r.Start.Unix(), r.End.Unix(), r.Dungeon, string(r.Team), r.Leader, r.Worker,
		r.TeamTotal, r.SubsidyTotal, r.Distributable, r.DistributionCount, r.BaseSalary,
		r.PersonalSalary, r.Subsidy, r.PenaltyTotal,
		r.ScatteredTotal, r.IronTotal, r.OtherTotal, r.SpecialTotal,
		r.ScatteredConsumption, r.IronConsumption, r.SpecialConsumption, r.OtherConsumption, r.TotalConsumption,
		string(itemsJSON), r.LieDownCount, r.Note, committedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting record: %w", err)
	}
	return res.LastInsertId()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner, loc *time.Location) (model.StoredRecord, error) {
	var sr model.StoredRecord
	r := &sr.RunRecord
	var (
		source, team       string
		start, end         int64
		itemsJSON, commitT string
	)
	err := sc.Scan(&sr.ID, &commitT,
		&r.UID, &r.File, &source, &start, &end, &r.Dungeon, &team, &r.Leader, &r.Worker,
		&r.TeamTotal, &r.SubsidyTotal, &r.Distributable, &r.DistributionCount, &r.BaseSalary,
		&r.PersonalSalary, &r.Subsidy, &r.PenaltyTotal,
		&r.ScatteredTotal, &r.IronTotal, &r.OtherTotal, &r.SpecialTotal,
		&r.ScatteredConsumption, &r.IronConsumption, &r.SpecialConsumption, &r.OtherConsumption, &r.TotalConsumption,
		&itemsJSON, &r.LieDownCount, &r.Note,
	)
	if err != nil {
		return sr, err
	}
	_ = r.Source.UnmarshalText([]byte(source))
	r.Team = model.TeamType(team)
	r.Start = time.Unix(start, 0).In(loc)
	r.End = time.Unix(end, 0).In(loc)
	if err := json.Unmarshal([]byte(itemsJSON), &r.SpecialItems); err != nil {
		return sr, fmt.Errorf("record %d special items: %w", sr.ID, err)
	}
	sr.CommittedAt, _ = time.Parse(time.RFC3339, commitT)
	return sr, nil
}

const selectRecords = `SELECT id, committed_at, ` + recordColumns + ` FROM records`

// ListRecords returns committed records newest first. Times are rendered
// in loc; nil means time.Local.
func (s *Store) ListRecords(f Filter, loc *time.Location) ([]model.StoredRecord, error) {
	if loc == nil {
		loc = time.Local
	}
	var (
		where []string
		args  []any
	)
	eq := func(col, v string) {
		if v != "" {
			where = append(where, col+" = ?")
			args = append(args, v)
		}
	}
	eq("dungeon", f.Dungeon)
	eq("worker", f.Worker)
	eq("leader", f.Leader)
	eq("team_type", string(f.Team))
	if f.Item != "" {
		where = append(where, "special_items LIKE ?")
		args = append(args, "%"+f.Item+"%")
	}
	if !f.Since.IsZero() {
		where = append(where, "end_time >= ?")
		args = append(args, f.Since.Unix())
	}
	if !f.Until.IsZero() {
		where = append(where, "end_time <= ?")
		args = append(args, f.Until.Unix())
	}

	q := selectRecords
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY end_time DESC, id DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.StoredRecord
	for rows.Next() {
		sr, err := scanRecord(rows, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// GetRecord returns the record with the given id.
func (s *Store) GetRecord(id int64, loc *time.Location) (model.StoredRecord, error) {
	if loc == nil {
		loc = time.Local
	}
	sr, err := scanRecord(s.db.QueryRow(selectRecords+" WHERE id = ?", id), loc)
	if errors.Is(err, sql.ErrNoRows) {
		return sr, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return sr, err
}

// DeleteRecord removes a committed record. Its UID stays in the ledger.
func (s *Store) DeleteRecord(id int64) error {
	res, err := s.db.Exec("DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	return nil
}

// HasRecord reports whether a record for dungeon ending at end by worker
// exists.
func (s *Store) HasRecord(dungeon string, end time.Time, worker string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM records WHERE dungeon = ? AND end_time = ? AND worker = ? LIMIT 1",
		dungeon, end.Unix(), worker).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// RecordCount returns the number of committed records.
func (s *Store) RecordCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}
