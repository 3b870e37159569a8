package volleyball

import (
	"maps"
	"reflect"
	"testing"

	"volleysim/internal/random"
)

var testRoles = [12]Role{
	Opposite, OutsideHitter, MiddleBlocker, OutsideHitter, Libero, Setter,
	Opposite, OutsideHitter, MiddleBlocker, OutsideHitter, Libero, Setter,
}

// testTeam builds twelve players: dorsals 1-6 are starters rated 80 who line
// up in slot order, 7-12 are a bench rated 50 mirroring their roles.
func testTeam(name string) TeamData {
	td := TeamData{Name: name}
	for i, role := range testRoles {
		r := 80
		if i >= 6 {
			r = 50
		}
		p := PlayerData{
			Dorsal: i + 1, Role: role,
			Attack: r, Block: r, Dig: r, Set: r, Serve: r, Receive: r,
		}
		// Front row block ratings: slot 3 is the best blocker.
		switch i + 1 {
		case 2, 4:
			p.Block = 70
		case 3:
			p.Block = 90
		}
		td.Players = append(td.Players, p)
	}
	return td
}

func newTestMatch(t *testing.T, src random.Source) (*State, *Dispatcher) {
	t.Helper()
	home, away := testTeam("Lions"), testTeam("Tigers")
	s := NewState(home, away, src)
	hl, err := NewLineUp(home)
	if err != nil {
		t.Fatalf("home line-up: %v", err)
	}
	al, err := NewLineUp(away)
	if err != nil {
		t.Fatalf("away line-up: %v", err)
	}
	s.ConfLineUps(hl, al)
	return s, NewDispatcher(s)
}

type snapshot struct {
	Teams     [2]TeamState
	Field     Field
	Scores    [2]int
	Sets      [2]int
	SetNumber int
	Serving   Team
	Rally     Rally
	MaxSubst  int
	Points    []PointRecord
	Undo      int
}

func cloneTeam(t *TeamState) TeamState {
	c := *t
	c.Roster = maps.Clone(t.Roster)
	c.OnField = maps.Clone(t.OnField)
	c.OnBench = maps.Clone(t.OnBench)
	c.Unavailable = maps.Clone(t.Unavailable)
	c.Substitutions = append([]SubstitutionRecord(nil), t.Substitutions...)
	c.PlayerStats = make(map[int]*Stats, len(t.PlayerStats))
	for d, st := range t.PlayerStats {
		cp := *st
		c.PlayerStats[d] = &cp
	}
	return c
}

func takeSnapshot(s *State) snapshot {
	return snapshot{
		Teams:     [2]TeamState{cloneTeam(s.Teams[Home]), cloneTeam(s.Teams[Away])},
		Field:     *s.Field,
		Scores:    s.Scores,
		Sets:      s.Sets,
		SetNumber: s.SetNumber,
		Serving:   s.Serving,
		Rally:     s.Rally,
		MaxSubst:  s.MaxSubstitutions,
		Points:    append([]PointRecord(nil), s.points...),
		Undo:      len(s.undo),
	}
}

func assertSameState(t *testing.T, want snapshot, s *State, context string) {
	t.Helper()
	got := takeSnapshot(s)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("%s: state differs\nwant scores=%v sets=%v rally=%+v\ngot  scores=%v sets=%v rally=%+v",
			context, want.Scores, want.Sets, want.Rally, got.Scores, got.Sets, got.Rally)
	}
}

// firstOfKind returns the first action of kind k among team's touch actions.
func firstOfKind(t *testing.T, s *State, team Team, k Kind) Action {
	t.Helper()
	for _, a := range TouchActions(s, team) {
		if a.Kind() == k {
			return a
		}
	}
	t.Fatalf("no %s action for %s", k, team)
	return nil
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic: %s", what)
		}
	}()
	fn()
}
