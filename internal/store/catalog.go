package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/theirongolddev/runledger/internal/model"
)

// SeedDungeons installs presets the first time the store is opened.
// Later calls are no-ops, so deleted presets stay deleted.
func (s *Store) SeedDungeons(presets []model.Dungeon) error {
	seeded, err := s.Seeded()
	if err != nil || seeded {
		return err
	}
	for _, d := range presets {
		if err := s.UpsertDungeon(d); err != nil {
			return err
		}
	}
	return s.setMeta(seededKey, timestamp())
}

// Dungeons returns the catalog in insertion order.
func (s *Store) Dungeons() ([]model.Dungeon, error) {
	rows, err := s.db.Query("SELECT name, special_drops FROM dungeons ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing dungeons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Dungeon
	for rows.Next() {
		var (
			d     model.Dungeon
			drops string
		)
		if err := rows.Scan(&d.Name, &drops); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(drops), &d.SpecialDrops); err != nil {
			return nil, fmt.Errorf("dungeon %s drops: %w", d.Name, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Dungeon returns one catalog entry by exact name.
func (s *Store) Dungeon(name string) (model.Dungeon, error) {
	d := model.Dungeon{Name: name}
	var drops string
	err := s.db.QueryRow("SELECT special_drops FROM dungeons WHERE name = ?", name).Scan(&drops)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("dungeon %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return d, err
	}
	err = json.Unmarshal([]byte(drops), &d.SpecialDrops)
	return d, err
}

// UpsertDungeon adds d or replaces the drops of an existing entry while
// keeping its position.
func (s *Store) UpsertDungeon(d model.Dungeon) error {
	drops := d.SpecialDrops
	if drops == nil {
		drops = []string{}
	}
	b, err := json.Marshal(drops)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO dungeons (name, special_drops) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET special_drops = excluded.special_drops`, d.Name, string(b))
	if err != nil {
		return fmt.Errorf("saving dungeon %s: %w", d.Name, err)
	}
	return nil
}

// DeleteDungeon removes a catalog entry. Committed records keep its name.
func (s *Store) DeleteDungeon(name string) error {
	res, err := s.db.Exec("DELETE FROM dungeons WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dungeon %s: %w", name, ErrNotFound)
	}
	return nil
}

// Folders returns the registered game folders.
func (s *Store) Folders() ([]model.Folder, error) {
	rows, err := s.db.Query("SELECT id, path, worker FROM folders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Folder
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.Path, &f.Worker); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AddFolder registers path, or updates its worker if already present.
func (s *Store) AddFolder(path, worker string) (model.Folder, error) {
	_, err := s.db.Exec(`INSERT INTO folders (path, worker) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET worker = excluded.worker`, path, worker)
	if err != nil {
		return model.Folder{}, fmt.Errorf("adding folder: %w", err)
	}
	f := model.Folder{Path: path, Worker: worker}
	err = s.db.QueryRow("SELECT id FROM folders WHERE path = ?", path).Scan(&f.ID)
	return f, err
}

// RemoveFolder unregisters path.
func (s *Store) RemoveFolder(path string) error {
	res, err := s.db.Exec("DELETE FROM folders WHERE path = ?", path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("folder %s: %w", path, ErrNotFound)
	}
	return nil
}
