package storage

import (
	"database/sql"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createMatch(t *testing.T, s *Store, id string) {
	t.Helper()
	m := MatchRow{ID: id, Home: "Falcons", Away: "Harbor Sharks", HomeStrategy: "heuristic", AwayStrategy: "minimax", Seed: 42}
	if err := s.CreateMatch(m); err != nil {
		t.Fatalf("create match %s: %v", id, err)
	}
}

func TestCreateMatch(t *testing.T) {
	s := newTestStore(t)
	createMatch(t, s, "abc123")
	// Duplicate id should error
	if err := s.CreateMatch(MatchRow{ID: "abc123", Home: "a", Away: "b", HomeStrategy: "x", AwayStrategy: "y"}); err == nil {
		t.Fatal("expected error on duplicate id")
	}
}

func TestGetMatch(t *testing.T) {
	s := newTestStore(t)
	createMatch(t, s, "abc123")

	row, err := s.GetMatch("abc123")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if row.ID != "abc123" || row.Home != "Falcons" || row.Away != "Harbor Sharks" {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.HomeStrategy != "heuristic" || row.AwayStrategy != "minimax" || row.Seed != 42 {
		t.Fatalf("unexpected strategies or seed %+v", row)
	}
	if row.Status != "waiting" {
		t.Fatalf("expected status waiting, got %s", row.Status)
	}
	if row.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}
}

func TestGetMatchNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetMatch("nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateMatchStatus(t *testing.T) {
	s := newTestStore(t)
	createMatch(t, s, "abc123")

	if err := s.UpdateMatchStatus("abc123", "playing"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	row, err := s.GetMatch("abc123")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if row.Status != "playing" {
		t.Fatalf("expected playing, got %s", row.Status)
	}
}

func TestListMatches(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"aaa", "bbb", "ccc"} {
		createMatch(t, s, id)
	}
	s.UpdateMatchStatus("bbb", "finished")

	rows, err := s.ListMatches("")
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(rows))
	}

	rows, err = s.ListMatches("finished")
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "bbb" {
		t.Fatalf("expected only bbb, got %+v", rows)
	}
}

func TestSaveAndGetSummary(t *testing.T) {
	s := newTestStore(t)
	createMatch(t, s, "abc123")

	s.SaveSummary("abc123", `{"sets":[3,1]}`)
	if err := s.SaveSummary("abc123", `{"sets":[3,2]}`); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	got, err := s.GetSummary("abc123")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if got.SummaryJSON != `{"sets":[3,2]}` {
		t.Fatalf("expected upserted value, got %s", got.SummaryJSON)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("expected non-zero UpdatedAt")
	}
}

func TestGetSummaryNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSummary("nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDeleteMatch(t *testing.T) {
	s := newTestStore(t)
	createMatch(t, s, "abc123")
	s.SaveSummary("abc123", `{}`)

	if err := s.DeleteMatch("abc123"); err != nil {
		t.Fatalf("delete match: %v", err)
	}
	if _, err := s.GetMatch("abc123"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows after delete, got %v", err)
	}
	if _, err := s.GetSummary("abc123"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows for summary after delete, got %v", err)
	}
}
