// Package search runs speculative lookahead over a live match. Every branch
// is explored by dispatching on the match's own Dispatcher and rolled back to
// the depth it started from, so only one branch is ever open.
package search

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"volleysim/internal/game/volleyball"
	"volleysim/internal/random"
)

// MoveFunc generates the candidate actions for the side to move.
type MoveFunc func(s *volleyball.State, team volleyball.Team) []volleyball.Action

// TurnFunc decides who moves after mover has acted.
type TurnFunc func(s *volleyball.State, mover volleyball.Team) volleyball.Team

// RallyTurn hands the move to whichever side the rally expects to act: the
// side in possession while the ball is in play, the server otherwise.
func RallyTurn(s *volleyball.State, _ volleyball.Team) volleyball.Team {
	if s.Rally.Phase == volleyball.InPlay {
		return s.Rally.Possession
	}
	return s.Serving
}

// Alternating hands the move to the other side.
func Alternating(_ *volleyball.State, mover volleyball.Team) volleyball.Team {
	return mover.Opponent()
}

// Config parameterizes a minimax search.
type Config struct {
	Depth int
	Prune bool
	Eval  Evaluator
	Moves MoveFunc
	Turn  TurnFunc
	// Outcomes replaces the match's outcome source for the duration of the
	// search. Nil keeps the live source.
	Outcomes random.Source
}

// DefaultConfig searches touch actions along the rally with alpha-beta.
func DefaultConfig(depth int) Config {
	return Config{
		Depth:    depth,
		Prune:    true,
		Eval:     DefaultEvaluator,
		Moves:    volleyball.TouchActions,
		Turn:     RallyTurn,
		Outcomes: random.Constant(0.5),
	}
}

// Stats reports the work a search did.
type Stats struct {
	Nodes   int
	Cutoffs int
	Elapsed time.Duration
}

// Result is the chosen root action and its backed-up value.
type Result struct {
	Action volleyball.Action
	Value  float64
	Stats  Stats
}

type searcher struct {
	d     *volleyball.Dispatcher
	team  volleyball.Team
	cfg   Config
	stats Stats
}

// Best searches from team's point of view and returns its best root action.
// The first action reaching the best value wins ties. Action is nil when
// team has no candidates.
func Best(d *volleyball.Dispatcher, team volleyball.Team, cfg Config) Result {
	start := time.Now()
	s := d.State()
	if cfg.Outcomes != nil {
		prev := s.SetSource(cfg.Outcomes)
		defer s.SetSource(prev)
	}
	if cfg.Eval == nil {
		cfg.Eval = DefaultEvaluator
	}
	if cfg.Turn == nil {
		cfg.Turn = RallyTurn
	}
	if cfg.Depth < 1 {
		cfg.Depth = 1
	}

	sr := &searcher{d: d, team: team, cfg: cfg}
	entry := d.StackDepth()
	res := Result{Value: math.Inf(-1)}
	alpha, beta := math.Inf(-1), math.Inf(1)
	for _, a := range cfg.Moves(s, team) {
		d.Dispatch(a)
		v := sr.minimax(cfg.Depth-1, cfg.Turn(s, team), alpha, beta)
		d.RollbackTo(entry)
		if res.Action == nil || v > res.Value {
			res.Action, res.Value = a, v
		}
		if cfg.Prune {
			alpha = math.Max(alpha, res.Value)
		}
	}
	sr.stats.Elapsed = time.Since(start)
	res.Stats = sr.stats
	log.Debug().
		Str("team", team.String()).
		Int("depth", cfg.Depth).
		Bool("prune", cfg.Prune).
		Int("nodes", sr.stats.Nodes).
		Int("cutoffs", sr.stats.Cutoffs).
		Float64("value", res.Value).
		Dur("elapsed", sr.stats.Elapsed).
		Msg("search-complete")
	return res
}

func (sr *searcher) minimax(depth int, mover volleyball.Team, alpha, beta float64) float64 {
	sr.stats.Nodes++
	s := sr.d.State()
	if depth == 0 || s.IsFinish() {
		return sr.cfg.Eval(s, sr.team)
	}
	moves := sr.cfg.Moves(s, mover)
	if len(moves) == 0 {
		return sr.cfg.Eval(s, sr.team)
	}

	entry := sr.d.StackDepth()
	maximizing := mover == sr.team
	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}
	for _, a := range moves {
		sr.d.Dispatch(a)
		v := sr.minimax(depth-1, sr.cfg.Turn(s, mover), alpha, beta)
		sr.d.RollbackTo(entry)
		if maximizing {
			best = math.Max(best, v)
			alpha = math.Max(alpha, best)
		} else {
			best = math.Min(best, v)
			beta = math.Min(beta, best)
		}
		if sr.cfg.Prune && beta <= alpha {
			sr.stats.Cutoffs++
			break
		}
	}
	return best
}
