package search

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"volleysim/internal/game/volleyball"
	"volleysim/internal/random"
)

// RolloutConfig parameterizes Monte-Carlo playouts.
type RolloutConfig struct {
	Playouts int
	// MaxSteps bounds each playout; a playout also ends with the rally.
	MaxSteps int
	Seed     int64
	Moves    MoveFunc
	Eval     Evaluator
}

func DefaultRolloutConfig(playouts int, seed int64) RolloutConfig {
	return RolloutConfig{
		Playouts: playouts,
		MaxSteps: 16,
		Seed:     seed,
		Moves:    volleyball.TouchActions,
		Eval:     DefaultEvaluator,
	}
}

// Rollout scores each candidate by the mean evaluation after random
// playouts to the end of the rally, and returns the best one. Playouts draw
// outcomes and choices from generators seeded with cfg.Seed, so the result
// is reproducible.
func Rollout(d *volleyball.Dispatcher, team volleyball.Team, candidates []volleyball.Action, cfg RolloutConfig) Result {
	start := time.Now()
	s := d.State()
	if cfg.Playouts < 1 {
		cfg.Playouts = 1
	}
	if cfg.Moves == nil {
		cfg.Moves = volleyball.TouchActions
	}
	if cfg.Eval == nil {
		cfg.Eval = DefaultEvaluator
	}
	prev := s.SetSource(random.New(cfg.Seed))
	defer s.SetSource(prev)
	pick := rand.New(rand.NewSource(cfg.Seed + 1))

	res := Result{Value: math.Inf(-1)}
	entry := d.StackDepth()
	for _, a := range candidates {
		total := 0.0
		for i := 0; i < cfg.Playouts; i++ {
			d.Dispatch(a)
			for step := 0; step < cfg.MaxSteps && !s.IsRallyOver() && !s.IsFinish(); step++ {
				moves := cfg.Moves(s, RallyTurn(s, team))
				if len(moves) == 0 {
					break
				}
				d.Dispatch(moves[pick.Intn(len(moves))])
				res.Stats.Nodes++
			}
			total += cfg.Eval(s, team)
			d.RollbackTo(entry)
		}
		mean := total / float64(cfg.Playouts)
		if res.Action == nil || mean > res.Value {
			res.Action, res.Value = a, mean
		}
	}
	res.Stats.Elapsed = time.Since(start)
	log.Debug().
		Str("team", team.String()).
		Int("candidates", len(candidates)).
		Int("playouts", cfg.Playouts).
		Int("nodes", res.Stats.Nodes).
		Float64("value", res.Value).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("rollout-complete")
	return res
}
