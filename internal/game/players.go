package game

import (
	"math/rand"

	"volleysim/internal/game/search"
	"volleysim/internal/game/volleyball"
)

// RandomPlayer picks uniformly among a player's legal actions.
type RandomPlayer struct {
	rng *rand.Rand
}

func NewRandomPlayer(opts Options) PlayerStrategy {
	return &RandomPlayer{rng: rand.New(rand.NewSource(opts.Seed))}
}

func (p *RandomPlayer) Name() string { return "random" }

func (p *RandomPlayer) Choose(d *volleyball.Dispatcher, team volleyball.Team, dorsal int) volleyball.Action {
	acts := volleyball.PlayerActions(d.State(), team, dorsal)
	return acts[p.rng.Intn(len(acts))]
}

// HeuristicPlayer plays the textbook pattern for each role: serve at the
// weakest receiver, pass to the setter, set the best front-row hitter and
// attack the weakest digger. Players without the ball stay put.
type HeuristicPlayer struct{}

func NewHeuristicPlayer(Options) PlayerStrategy { return HeuristicPlayer{} }

func (HeuristicPlayer) Name() string { return "heuristic" }

func (HeuristicPlayer) Choose(d *volleyball.Dispatcher, team volleyball.Team, dorsal int) volleyball.Action {
	s := d.State()
	acts := volleyball.PlayerActions(s, team, dorsal)
	idle := acts[len(acts)-1]
	byKind := map[volleyball.Kind][]volleyball.Action{}
	for _, a := range acts {
		byKind[a.Kind()] = append(byKind[a.Kind()], a)
	}
	me := s.Player(team, dorsal)
	opp := team.Opponent()

	if serves := byKind[volleyball.KindServe]; len(serves) > 0 {
		return pickTarget(s, serves, opp, func(p volleyball.PlayerData) int { return -p.Receive })
	}

	if receives := byKind[volleyball.KindReceive]; len(receives) > 0 {
		options := receives
		if me.Dig > me.Receive {
			options = byKind[volleyball.KindDig]
		}
		return pickTarget(s, options, team, func(p volleyball.PlayerData) int {
			if p.Role == volleyball.Setter {
				return 1000 + p.Set
			}
			return p.Set
		})
	}

	sets, attacks := byKind[volleyball.KindSet], byKind[volleyball.KindAttack]
	if len(sets) == 0 && len(attacks) == 0 {
		return idle
	}
	slot, _ := s.Teams[team].LineUp.SlotOf(dorsal)
	lastTouch := s.Rally.Touches[team] == volleyball.MaxTouches-1
	wantsAttack := lastTouch || len(sets) == 0
	switch me.Role {
	case volleyball.Setter, volleyball.Libero:
	case volleyball.MiddleBlocker:
		wantsAttack = wantsAttack || volleyball.FrontRow(slot)
	default:
		wantsAttack = wantsAttack || (volleyball.FrontRow(slot) && s.Rally.Touches[team] >= 2)
	}
	if wantsAttack && len(attacks) > 0 {
		return pickTarget(s, attacks, opp, func(p volleyball.PlayerData) int { return -p.Dig })
	}
	return pickTarget(s, sets, team, func(p volleyball.PlayerData) int {
		q := p.Attack
		if ts, ok := s.Teams[team].LineUp.SlotOf(p.Dorsal); ok && volleyball.FrontRow(ts) {
			q += 1000
		}
		return q
	})
}

// pickTarget returns the action whose destination holds the side player with
// the highest score, the first one on ties.
func pickTarget(s *volleyball.State, acts []volleyball.Action, side volleyball.Team, score func(volleyball.PlayerData) int) volleyball.Action {
	best, bestScore, found := acts[0], 0, false
	for _, a := range acts {
		dest, ok := destination(a)
		if !ok {
			continue
		}
		team, dorsal, ok := s.Field.PlayerAt(dest)
		if !ok || team != side {
			continue
		}
		if sc := score(s.Player(team, dorsal)); !found || sc > bestScore {
			best, bestScore, found = a, sc, true
		}
	}
	return best
}

func destination(a volleyball.Action) (volleyball.Cell, bool) {
	switch x := a.(type) {
	case *volleyball.Serve:
		return x.Dest, true
	case *volleyball.Receive:
		return x.Dest, true
	case *volleyball.Dig:
		return x.Dest, true
	case *volleyball.Set:
		return x.Dest, true
	case *volleyball.Attack:
		return x.Dest, true
	}
	return volleyball.Cell{}, false
}

// MinimaxPlayer searches ball contacts with alpha-beta. Players without a
// contact available idle.
type MinimaxPlayer struct {
	cfg search.Config
}

func NewMinimaxPlayer(opts Options) PlayerStrategy {
	depth := opts.Depth
	if depth < 1 {
		depth = 3
	}
	return &MinimaxPlayer{cfg: search.DefaultConfig(depth)}
}

func (p *MinimaxPlayer) Name() string { return "minimax" }

func (p *MinimaxPlayer) Choose(d *volleyball.Dispatcher, team volleyball.Team, dorsal int) volleyball.Action {
	s := d.State()
	if !hasTouch(s, team, dorsal) {
		return &volleyball.Nothing{Player: dorsal, Side: team}
	}
	res := search.Best(d, team, p.cfg)
	if res.Action == nil || res.Action.Actor() != dorsal {
		return &volleyball.Nothing{Player: dorsal, Side: team}
	}
	return res.Action
}

// RolloutPlayer scores each of its contacts by random playouts.
type RolloutPlayer struct {
	rng      *rand.Rand
	playouts int
}

func NewRolloutPlayer(opts Options) PlayerStrategy {
	n := opts.Playouts
	if n < 1 {
		n = 16
	}
	return &RolloutPlayer{rng: rand.New(rand.NewSource(opts.Seed)), playouts: n}
}

func (p *RolloutPlayer) Name() string { return "rollout" }

func (p *RolloutPlayer) Choose(d *volleyball.Dispatcher, team volleyball.Team, dorsal int) volleyball.Action {
	s := d.State()
	var cands []volleyball.Action
	for _, a := range volleyball.PlayerActions(s, team, dorsal) {
		if a.Kind().IsTouch() {
			cands = append(cands, a)
		}
	}
	if len(cands) == 0 {
		return &volleyball.Nothing{Player: dorsal, Side: team}
	}
	res := search.Rollout(d, team, cands, search.DefaultRolloutConfig(p.playouts, p.rng.Int63()))
	return res.Action
}

func hasTouch(s *volleyball.State, team volleyball.Team, dorsal int) bool {
	for _, a := range volleyball.PlayerActions(s, team, dorsal) {
		if a.Kind().IsTouch() {
			return true
		}
	}
	return false
}
