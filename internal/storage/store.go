package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MatchRow represents a match in the database.
type MatchRow struct {
	ID           string
	Home         string
	Away         string
	HomeStrategy string
	AwayStrategy string
	Seed         int64
	Status       string // "waiting", "playing", "finished", "abandoned"
	CreatedAt    time.Time
}

// SummaryRow is the serialized end-of-match summary.
type SummaryRow struct {
	MatchID     string
	SummaryJSON string
	UpdatedAt   time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id            TEXT PRIMARY KEY,
			home          TEXT NOT NULL,
			away          TEXT NOT NULL,
			home_strategy TEXT NOT NULL,
			away_strategy TEXT NOT NULL,
			seed          INTEGER NOT NULL,
			status        TEXT NOT NULL DEFAULT 'waiting',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS match_summary (
			match_id     TEXT PRIMARY KEY REFERENCES matches(id),
			summary_json TEXT NOT NULL,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

const matchColumns = "id, home, away, home_strategy, away_strategy, seed, status, created_at"

func scanMatch(row interface{ Scan(...any) error }) (*MatchRow, error) {
	var m MatchRow
	if err := row.Scan(&m.ID, &m.Home, &m.Away, &m.HomeStrategy, &m.AwayStrategy, &m.Seed, &m.Status, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMatch inserts a new match in the waiting state.
func (s *Store) CreateMatch(m MatchRow) error {
	_, err := s.db.Exec(
		"INSERT INTO matches (id, home, away, home_strategy, away_strategy, seed, status) VALUES (?, ?, ?, ?, ?, ?, 'waiting')",
		m.ID, m.Home, m.Away, m.HomeStrategy, m.AwayStrategy, m.Seed,
	)
	return err
}

// GetMatch retrieves a match by id.
func (s *Store) GetMatch(id string) (*MatchRow, error) {
	return scanMatch(s.db.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", id))
}

// UpdateMatchStatus changes a match's status.
func (s *Store) UpdateMatchStatus(id, status string) error {
	_, err := s.db.Exec("UPDATE matches SET status = ? WHERE id = ?", status, id)
	return err
}

// ListMatches returns all matches with the given status (or all if status is empty).
func (s *Store) ListMatches(status string) ([]MatchRow, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query("SELECT " + matchColumns + " FROM matches ORDER BY created_at DESC, id")
	} else {
		rows, err = s.db.Query("SELECT "+matchColumns+" FROM matches WHERE status = ? ORDER BY created_at DESC, id", status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MatchRow
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

// SaveSummary upserts a match summary.
func (s *Store) SaveSummary(matchID, summaryJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO match_summary (match_id, summary_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(match_id) DO UPDATE SET summary_json = excluded.summary_json, updated_at = excluded.updated_at
	`, matchID, summaryJSON)
	return err
}

// GetSummary retrieves a match summary.
func (s *Store) GetSummary(matchID string) (*SummaryRow, error) {
	var r SummaryRow
	err := s.db.QueryRow("SELECT match_id, summary_json, updated_at FROM match_summary WHERE match_id = ?", matchID).
		Scan(&r.MatchID, &r.SummaryJSON, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteMatch removes a match and its summary.
func (s *Store) DeleteMatch(id string) error {
	_, err := s.db.Exec("DELETE FROM match_summary WHERE match_id = ?", id)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("DELETE FROM matches WHERE id = ?", id)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
