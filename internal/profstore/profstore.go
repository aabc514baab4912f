// Package profstore persists call-site profile counters in SQLite so a
// later run of the same story promotes hot sites sooner. Call-site
// identifiers are stable across executions of the same source call
// expression, which is what makes persisted counts meaningful. The store
// is advisory, like compilation itself: failures are logged by the caller
// and ignored.
package profstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS call_sites (
    site        TEXT PRIMARY KEY,
    count       INTEGER NOT NULL,
    updated_at  TEXT NOT NULL
);
`

// Store wraps the profile database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open profile store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init profile store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load returns all persisted site counters.
func (s *Store) Load() (map[string]uint64, error) {
	rows, err := s.db.Query(`SELECT site, count FROM call_sites`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var site string
		var count uint64
		if err := rows.Scan(&site, &count); err != nil {
			return nil, err
		}
		counts[site] = count
	}
	return counts, rows.Err()
}

// Save upserts the given counters, keeping the higher count when the
// stored one is larger (another process may have run the story since).
func (s *Store) Save(counts map[string]uint64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for site, count := range counts {
		_, err := tx.Exec(`
			INSERT INTO call_sites (site, count, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(site) DO UPDATE SET
				count = MAX(call_sites.count, excluded.count),
				updated_at = excluded.updated_at`,
			site, count, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Sites lists all persisted sites ordered by count descending.
type SiteRow struct {
	Site      string
	Count     uint64
	UpdatedAt string
}

// List returns up to limit rows, hottest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]SiteRow, error) {
	q := `SELECT site, count, updated_at FROM call_sites ORDER BY count DESC, site ASC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SiteRow
	for rows.Next() {
		var r SiteRow
		if err := rows.Scan(&r.Site, &r.Count, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
