package search

import "volleysim/internal/game/volleyball"

// Evaluator scores a position from team's point of view. Higher is better.
type Evaluator func(s *volleyball.State, team volleyball.Team) float64

// PositionalScorer is an external court-position assessment, for example a
// fuzzy rule base, blended into the evaluation.
type PositionalScorer interface {
	Score(s *volleyball.State, team volleyball.Team) float64
}

// Weights for the evaluation terms.
type Weights struct {
	Sets       float64
	Score      float64
	Possession float64
	Touches    float64
	Side       float64
	Strength   float64
	Timeouts   float64
	Positional float64
}

var DefaultWeights = Weights{
	Sets:       100,
	Score:      1,
	Possession: 0.5,
	Touches:    0.1,
	Side:       0.25,
	Strength:   0.05,
	Timeouts:   0.01,
	Positional: 1,
}

// NewEvaluator builds a weighted evaluator. pos may be nil.
func NewEvaluator(w Weights, pos PositionalScorer) Evaluator {
	return func(s *volleyball.State, team volleyball.Team) float64 {
		opp := team.Opponent()
		v := w.Sets*float64(s.Sets[team]-s.Sets[opp]) +
			w.Score*float64(s.Scores[team]-s.Scores[opp])

		holder := s.Serving
		if s.Rally.Phase == volleyball.InPlay {
			holder = s.Rally.Possession
			left := float64(volleyball.MaxTouches - s.Rally.Touches[holder])
			v += sign(holder, team) * w.Touches * left
		}
		v += sign(holder, team) * w.Possession

		if ball, ok := s.Field.Ball(); ok {
			if side, ok := ball.Side(); ok {
				// The ball on the opponent's half is their problem.
				v -= sign(side, team) * w.Side
			}
		}

		v += w.Strength * (strength(s, team) - strength(s, opp))
		v += w.Timeouts * float64(s.Teams[team].Timeouts-s.Teams[opp].Timeouts)
		if pos != nil {
			v += w.Positional * pos.Score(s, team)
		}
		return v
	}
}

// DefaultEvaluator uses DefaultWeights and no positional scorer.
var DefaultEvaluator = NewEvaluator(DefaultWeights, nil)

func sign(t, team volleyball.Team) float64 {
	if t == team {
		return 1
	}
	return -1
}

// strength is the mean overall rating of team's six on court.
func strength(s *volleyball.State, team volleyball.Team) float64 {
	t := s.Teams[team]
	total := 0
	for _, pos := range t.LineUp.Slots {
		total += t.Roster[pos.Dorsal].Overall()
	}
	return float64(total) / 6
}
