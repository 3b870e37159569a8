package volleyball

import (
	"math/rand"
	"testing"

	"volleysim/internal/random"
)

// stage advances a fresh match to a named point in a rally.
type stage struct {
	name  string
	setup func(t *testing.T, s *State, d *Dispatcher)
}

var stages = []stage{
	{"serve wait", func(t *testing.T, s *State, d *Dispatcher) {}},
	{"awaiting receive", func(t *testing.T, s *State, d *Dispatcher) {
		d.Dispatch(firstOfKind(t, s, Home, KindServe))
	}},
	{"after receive", func(t *testing.T, s *State, d *Dispatcher) {
		d.Dispatch(firstOfKind(t, s, Home, KindServe))
		d.Dispatch(firstOfKind(t, s, Away, KindReceive))
	}},
	{"after set", func(t *testing.T, s *State, d *Dispatcher) {
		d.Dispatch(firstOfKind(t, s, Home, KindServe))
		d.Dispatch(firstOfKind(t, s, Away, KindReceive))
		d.Dispatch(firstOfKind(t, s, Away, KindSet))
	}},
	{"set point for servers", func(t *testing.T, s *State, d *Dispatcher) {
		s.Scores = [2]int{24, 20}
		d.Dispatch(firstOfKind(t, s, Home, KindServe))
	}},
	{"match point for servers", func(t *testing.T, s *State, d *Dispatcher) {
		s.Sets = [2]int{2, 2}
		s.SetNumber = 5
		s.Scores = [2]int{24, 20}
		d.Dispatch(firstOfKind(t, s, Home, KindServe))
	}},
	{"rally over", func(t *testing.T, s *State, d *Dispatcher) {
		d.Dispatch(firstOfKind(t, s, Home, KindServe))
		d.Dispatch(firstOfKind(t, s, Away, KindReceive))
		d.Dispatch(firstOfKind(t, s, Away, KindAttack))
	}},
}

func allActions(s *State) []Action {
	var out []Action
	for _, team := range Teams {
		out = append(out, PossibleActions(s, team)...)
		out = append(out, ManagerActions(s, team)...)
	}
	return out
}

func TestRoundTripEveryLegalAction(t *testing.T) {
	outcomes := map[string]random.Source{
		"all succeed": random.Constant(0),
		"all fail":    random.Constant(1),
	}
	for _, st := range stages {
		for oname, src := range outcomes {
			t.Run(st.name+"/"+oname, func(t *testing.T) {
				s, d := newTestMatch(t, random.Constant(0))
				st.setup(t, s, d)
				s.SetSource(src)
				depth := d.StackDepth()
				for _, a := range allActions(s) {
					before := takeSnapshot(s)
					d.Dispatch(a)
					if d.StackDepth() != depth+1 {
						t.Fatalf("%s: expected depth %d, got %d", a, depth+1, d.StackDepth())
					}
					if s.Rally.Touches[Home] > MaxTouches || s.Rally.Touches[Away] > MaxTouches {
						t.Fatalf("%s: touches exceeded cap: %v", a, s.Rally.Touches)
					}
					if err := s.Field.CheckInvariants(); err != nil {
						t.Fatalf("%s: field invariants: %v", a, err)
					}
					d.Rollback()
					assertSameState(t, before, s, a.String())
				}
			})
		}
	}
}

// playRandomly dispatches n uniformly chosen legal actions for the side
// expected to act and returns how many it dispatched.
func playRandomly(t *testing.T, s *State, d *Dispatcher, rng *rand.Rand, n int) int {
	t.Helper()
	count := 0
	for i := 0; i < n && !s.IsFinish(); i++ {
		team := s.Rally.Possession
		if s.Rally.Phase != InPlay {
			team = s.Serving
		}
		acts := PossibleActions(s, team)
		if rng.Intn(8) == 0 {
			acts = ManagerActions(s, Teams[rng.Intn(2)])
		}
		d.Dispatch(acts[rng.Intn(len(acts))])
		count++
		if s.Rally.Touches[Home] > MaxTouches || s.Rally.Touches[Away] > MaxTouches {
			t.Fatalf("touch cap exceeded after %s: %v", d.Last(), s.Rally.Touches)
		}
		if err := s.Field.CheckInvariants(); err != nil {
			t.Fatalf("field invariants after %s: %v", d.Last(), err)
		}
	}
	return count
}

func TestStackDepthLaw(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		s, d := newTestMatch(t, random.New(seed))
		before := takeSnapshot(s)
		n := playRandomly(t, s, d, rand.New(rand.NewSource(seed)), 400)
		if d.StackDepth() != n {
			t.Fatalf("seed %d: expected depth %d, got %d", seed, n, d.StackDepth())
		}
		for i := 0; i < n; i++ {
			d.Rollback()
		}
		if d.StackDepth() != 0 {
			t.Fatalf("seed %d: expected empty stack, got %d", seed, d.StackDepth())
		}
		assertSameState(t, before, s, "after full rollback")
	}
}

func TestRollbackTo(t *testing.T) {
	s, d := newTestMatch(t, random.New(7))
	playRandomly(t, s, d, rand.New(rand.NewSource(7)), 20)
	mid := takeSnapshot(s)
	depth := d.StackDepth()
	playRandomly(t, s, d, rand.New(rand.NewSource(8)), 30)
	d.RollbackTo(depth)
	assertSameState(t, mid, s, "rollback to depth")
	expectPanic(t, "rollback past the top", func() { d.RollbackTo(depth + 1) })
}

func TestRollbackEmptyPanics(t *testing.T) {
	_, d := newTestMatch(t, random.Constant(0))
	expectPanic(t, "rollback on empty stack", func() { d.Rollback() })
}

func TestSubstitutionRollbackRestoresSets(t *testing.T) {
	s, d := newTestMatch(t, random.Constant(0))
	team := s.Teams[Home]
	before := takeSnapshot(s)
	historyLen := len(team.Substitutions)

	d.Dispatch(NewSubstitution(Home, 6, 12))
	if !team.OnField[12] || !team.OnBench[6] {
		t.Fatal("expected 12 on court and 6 on the bench")
	}
	if slot, _ := team.LineUp.SlotOf(12); slot != 6 {
		t.Fatalf("expected 12 in slot 6, got %d", slot)
	}
	if _, ok := s.Field.FindPlayer(Home, 12); !ok {
		t.Fatal("expected 12 on the field grid")
	}

	d.Rollback()
	if len(team.Substitutions) != historyLen {
		t.Fatalf("expected history length %d, got %d", historyLen, len(team.Substitutions))
	}
	assertSameState(t, before, s, "substitution rollback")
}

func TestSubstitutionCapPanics(t *testing.T) {
	s, d := newTestMatch(t, random.Constant(0))
	s.MaxSubstitutions = 1
	d.Dispatch(NewSubstitution(Home, 6, 12))
	expectPanic(t, "substitution beyond the cap", func() {
		d.Dispatch(NewSubstitution(Home, 1, 7))
	})
}

func TestSubstitutionMembershipPanics(t *testing.T) {
	_, d := newTestMatch(t, random.Constant(0))
	expectPanic(t, "bench player substituted out", func() {
		d.Dispatch(NewSubstitution(Home, 7, 12))
	})
}

func TestLazySubstitutionsCompressWithServe(t *testing.T) {
	s, d := newTestMatch(t, random.Constant(0))
	before := takeSnapshot(s)

	d.Defer(NewSubstitution(Home, 6, 12))
	d.Defer(NewSubstitution(Away, 1, 7))
	if d.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", d.Pending())
	}
	if s.Teams[Home].OnField[12] {
		t.Fatal("deferred substitution must not apply before the serve")
	}

	d.Dispatch(firstOfKind(t, s, Home, KindServe))
	if d.StackDepth() != 1 {
		t.Fatalf("expected one compressed entry, got depth %d", d.StackDepth())
	}
	c, ok := d.Last().(*Compress)
	if !ok {
		t.Fatalf("expected a compress entry, got %T", d.Last())
	}
	if c.Deferred != 2 || c.Boundary().Kind() != KindServe {
		t.Fatalf("unexpected batch: %s", c)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected lazy buffer flushed, got %d", d.Pending())
	}
	if !s.Teams[Home].OnField[12] || !s.Teams[Away].OnField[7] {
		t.Fatal("expected both substitutions applied")
	}

	d.Rollback()
	if d.Pending() != 2 {
		t.Fatalf("expected deferred actions requeued, got %d", d.Pending())
	}
	assertSameState(t, before, s, "compress rollback")
}

func TestFlushCommitsPending(t *testing.T) {
	s, d := newTestMatch(t, random.Constant(0))
	d.Flush()
	if d.StackDepth() != 0 {
		t.Fatal("flush with nothing pending must not push")
	}
	d.Defer(&Timeout{Side: Away})
	d.Flush()
	if d.StackDepth() != 1 || s.Teams[Away].Timeouts != TimeoutsPerSet-1 {
		t.Fatalf("expected flushed timeout, depth %d timeouts %d", d.StackDepth(), s.Teams[Away].Timeouts)
	}
}

func TestTimeoutExhaustedPanics(t *testing.T) {
	s, d := newTestMatch(t, random.Constant(0))
	s.Teams[Home].Timeouts = 0
	expectPanic(t, "timeout with none left", func() { d.Dispatch(&Timeout{Side: Home}) })
}

func TestTouchRequiresBall(t *testing.T) {
	_, d := newTestMatch(t, random.Constant(0))
	expectPanic(t, "serve from a cell without the ball", func() {
		d.Dispatch(NewServe(Home, 2, SlotCell(Home, 2), SlotCell(Away, 1)))
	})
}

func TestMoveBallHolderPanics(t *testing.T) {
	_, d := newTestMatch(t, random.Constant(0))
	src := SlotCell(Home, 1)
	expectPanic(t, "ball holder moving", func() {
		d.Dispatch(&Move{Player: 1, Side: Home, Src: src, Dest: Cell{src.Row - 1, src.Col}})
	})
}

func TestMoveRollbackRestoresVacatedCells(t *testing.T) {
	for _, team := range Teams {
		t.Run(team.String(), func(t *testing.T) {
			s, d := newTestMatch(t, random.Constant(0))
			src := SlotCell(team, 2)
			dest := Cell{src.Row - 1, src.Col - 1}
			if team == Home {
				dest = Cell{src.Row + 1, src.Col + 1}
			}
			if side, _ := dest.Side(); side != team || s.Field.Occupied(dest) {
				t.Fatalf("%v is not a free %s cell", dest, team)
			}
			before := *s.Field
			snap := takeSnapshot(s)

			d.Dispatch(&Move{Player: s.Teams[team].LineUp.At(2).Dorsal, Side: team, Src: src, Dest: dest})
			d.Rollback()

			if *s.Field != before {
				t.Fatalf("field differs after move and rollback:\n%s", s.Field)
			}
			assertSameState(t, snap, s, "move rollback")

			// The vacated cell must be indistinguishable from one never used.
			d.Dispatch(&Move{Player: s.Teams[team].LineUp.At(2).Dorsal, Side: team, Src: src, Dest: dest})
			if got, want := s.Field.grid[src.Row][src.Col], (square{dorsal: -1}); got != want {
				t.Fatalf("vacated cell is %+v, expected %+v", got, want)
			}
		})
	}
}

func TestDeferredSubstitutionOfServer(t *testing.T) {
	s, d := newTestMatch(t, random.Constant(0))
	before := takeSnapshot(s)
	d.Defer(NewSubstitution(Home, 1, 7))

	serve := firstOfKind(t, s, Home, KindServe)
	d.Dispatch(serve)
	if serve.Actor() != 7 {
		t.Fatalf("expected the substitute to serve, got %d", serve.Actor())
	}
	if got := s.Teams[Home].PlayerStats[7].Serves; got != 1 {
		t.Fatalf("expected the serve credited to 7, got %d", got)
	}

	d.Rollback()
	assertSameState(t, before, s, "rollback of compressed serve")
	if serve.Actor() != 1 {
		t.Fatalf("expected the rolled back serve to name 1 again, got %d (%s)", serve.Actor(), serve)
	}
}
