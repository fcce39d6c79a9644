package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Contains reports whether uid has been filled.
func (s *Store) Contains(uid string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM filled_uids WHERE uid = ?", uid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking ledger: %w", err)
	}
	return true, nil
}

// Add marks uid as filled. Adding a uid twice keeps the first fill time.
func (s *Store) Add(uid string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO filled_uids (uid, fill_time) VALUES (?, ?)", uid, timestamp())
	if err != nil {
		return fmt.Errorf("adding %s to ledger: %w", uid, err)
	}
	return nil
}

// FilledAt returns when uid was filled.
func (s *Store) FilledAt(uid string) (time.Time, error) {
	var ts string
	err := s.db.QueryRow("SELECT fill_time FROM filled_uids WHERE uid = ?", uid).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, ts)
}

// FilledUIDs lists every filled uid.
func (s *Store) FilledUIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT uid FROM filled_uids ORDER BY fill_time, uid")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}
