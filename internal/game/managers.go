package game

import (
	"math/rand"

	"volleysim/internal/game/search"
	"volleysim/internal/game/volleyball"
	"volleysim/internal/random"
)

// RandomManager picks uniformly among manager actions.
type RandomManager struct {
	rng *rand.Rand
}

func NewRandomManager(opts Options) ManagerStrategy {
	return &RandomManager{rng: rand.New(rand.NewSource(opts.Seed))}
}

func (m *RandomManager) Name() string { return "random" }

func (m *RandomManager) Decide(d *volleyball.Dispatcher, team volleyball.Team) volleyball.Action {
	acts := volleyball.ManagerActions(d.State(), team)
	return acts[m.rng.Intn(len(acts))]
}

// SituationalManager reacts to the scoreboard: it stops opponent runs with a
// time-out, replaces its most error-prone player when trailing, and
// celebrates comfortable leads.
type SituationalManager struct {
	RunLength int // opponent run that triggers a time-out
	Lead      int // lead that triggers a celebration
}

func NewSituationalManager(Options) ManagerStrategy {
	return &SituationalManager{RunLength: 3, Lead: 3}
}

func (m *SituationalManager) Name() string { return "situational" }

func (m *SituationalManager) Decide(d *volleyball.Dispatcher, team volleyball.Team) volleyball.Action {
	s := d.State()
	acts := volleyball.ManagerActions(s, team)
	find := func(k volleyball.Kind) volleyball.Action {
		for _, a := range acts {
			if a.Kind() == k {
				return a
			}
		}
		return nil
	}

	if s.Streak(team) <= -m.RunLength {
		if a := find(volleyball.KindTimeout); a != nil {
			return a
		}
	}
	diff := s.Scores[team] - s.Scores[team.Opponent()]
	if diff < 0 {
		if a := m.substitution(s, team, acts); a != nil {
			return a
		}
	}
	if diff >= m.Lead {
		if a := find(volleyball.KindCelebrate); a != nil {
			return a
		}
	}
	return acts[len(acts)-1]
}

// substitution replaces the on-court player with the most errors by the
// best-rated legal same-role replacement.
func (m *SituationalManager) substitution(s *volleyball.State, team volleyball.Team, acts []volleyball.Action) volleyball.Action {
	t := s.Teams[team]
	out, worst := -1, 0
	for _, d := range t.FieldDorsals() {
		if e := t.PlayerStats[d].Errors; e > worst {
			out, worst = d, e
		}
	}
	if out < 0 {
		return nil
	}
	var best *volleyball.Substitution
	for _, a := range acts {
		sub, ok := a.(*volleyball.Substitution)
		if !ok || sub.Out != out {
			continue
		}
		if best == nil || t.Roster[sub.In].Overall() > t.Roster[best.In].Overall() {
			best = sub
		}
	}
	if best == nil {
		return nil
	}
	return best
}

// MinimaxManager runs a short alternating search over both benches.
type MinimaxManager struct {
	cfg search.Config
}

func NewMinimaxManager(opts Options) ManagerStrategy {
	depth := opts.Depth
	if depth < 1 || depth > 2 {
		depth = 2
	}
	return &MinimaxManager{cfg: search.Config{
		Depth:    depth,
		Prune:    true,
		Eval:     search.DefaultEvaluator,
		Moves:    volleyball.ManagerActions,
		Turn:     search.Alternating,
		Outcomes: random.Constant(0.5),
	}}
}

func (m *MinimaxManager) Name() string { return "minimax" }

func (m *MinimaxManager) Decide(d *volleyball.Dispatcher, team volleyball.Team) volleyball.Action {
	res := search.Best(d, team, m.cfg)
	if res.Action == nil {
		return &volleyball.ManagerNothing{Side: team}
	}
	return res.Action
}
