package game

import (
	"volleysim/internal/game/volleyball"
)

// Kind tells player strategies from manager strategies.
type Kind string

const (
	KindPlayer  Kind = "player"
	KindManager Kind = "manager"
)

// StrategyInfo describes a registered strategy for listings.
type StrategyInfo struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
}

// Options configures a strategy instance.
type Options struct {
	Seed     int64
	Depth    int // lookahead plies for minimax strategies
	Playouts int // playouts per candidate for rollout strategies
}

// PlayerStrategy decides for the players of one team.
type PlayerStrategy interface {
	Name() string
	// Choose returns one of volleyball.PlayerActions(s, team, dorsal). It
	// may explore through d but must leave d at the depth it found it.
	Choose(d *volleyball.Dispatcher, team volleyball.Team, dorsal int) volleyball.Action
}

// ManagerStrategy decides for one team's bench.
type ManagerStrategy interface {
	Name() string
	// Decide returns one of volleyball.ManagerActions(s, team).
	Decide(d *volleyball.Dispatcher, team volleyball.Team) volleyball.Action
}

// PlayerFactory builds a fresh player strategy.
type PlayerFactory func(Options) PlayerStrategy

// ManagerFactory builds a fresh manager strategy.
type ManagerFactory func(Options) ManagerStrategy
