package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"volleysim/internal/game/volleyball"
)

// DefaultManagerInterval is how many rallies pass between manager decisions.
const DefaultManagerInterval = 20

// Side pairs a team with the strategies that play it.
type Side struct {
	Players PlayerStrategy
	Manager ManagerStrategy
}

// Frame is published after every rally.
type Frame struct {
	Rally    int    `json:"rally"`
	Set      int    `json:"set"`
	Scores   [2]int `json:"scores"`
	Sets     [2]int `json:"sets"`
	Serving  string `json:"serving"`
	Winner   string `json:"winner"`
	Actions  int    `json:"actions"`
	Finished bool   `json:"finished"`
	Field    string `json:"field,omitempty"`
}

// SimOptions tunes a Simulator.
type SimOptions struct {
	ManagerInterval int
	// StallTicks forces the ball holder's first contact once a rally has
	// gone this many ticks without one.
	StallTicks int
	ShowField  bool
	OnFrame    func(Frame)
}

// Simulator drives a match rally by rally. It owns the match's Dispatcher
// and must not be shared between goroutines.
type Simulator struct {
	d     *volleyball.Dispatcher
	sides [2]Side
	opts  SimOptions
	rally int
}

// NewSimulator prepares a match whose line-ups are already configured.
func NewSimulator(s *volleyball.State, home, away Side, opts SimOptions) *Simulator {
	if opts.StallTicks <= 0 {
		opts.StallTicks = 50
	}
	return &Simulator{
		d:     volleyball.NewDispatcher(s),
		sides: [2]Side{home, away},
		opts:  opts,
	}
}

func (sim *Simulator) Dispatcher() *volleyball.Dispatcher { return sim.d }

func (sim *Simulator) State() *volleyball.State { return sim.d.State() }

// PlayRally plays one rally to its end. Within a tick all six players of
// the side expected to act go first, in slot order, then the other side.
func (sim *Simulator) PlayRally() Frame {
	s := sim.d.State()
	start := sim.d.StackDepth()
	set := s.SetNumber
	// The rally is over once it adds to the points history. Until the serve,
	// the phase may still read RallyOver from the previous point.
	points := len(s.Points())
	over := func() bool { return len(s.Points()) != points }

	stalled := 0
	for !over() && !s.IsFinish() {
		contacts := s.Rally.Contacts
		phase := s.Rally.Phase
		first := s.Serving
		if phase == volleyball.InPlay {
			first = s.Rally.Possession
		}
		for _, team := range [2]volleyball.Team{first, first.Opponent()} {
			for _, dorsal := range s.Teams[team].FieldDorsals() {
				if over() {
					break
				}
				sim.d.Dispatch(sim.sides[team].Players.Choose(sim.d, team, dorsal))
			}
		}
		if s.Rally.Contacts != contacts || s.Rally.Phase != phase {
			stalled = 0
			continue
		}
		if stalled++; stalled >= sim.opts.StallTicks {
			sim.forceContact()
			stalled = 0
		}
	}

	sim.rally++
	f := Frame{
		Rally:    sim.rally,
		Set:      s.SetNumber,
		Scores:   s.Scores,
		Sets:     s.Sets,
		Serving:  s.Serving.String(),
		Winner:   s.Rally.Winner.String(),
		Actions:  sim.d.StackDepth() - start,
		Finished: s.IsFinish(),
	}
	if sim.opts.ShowField {
		f.Field = s.Field.String()
	}
	log.Debug().Int("rally", f.Rally).Str("winner", f.Winner).Ints("scores", f.Scores[:]).Int("actions", f.Actions).Msg("rally-over")
	if s.SetNumber != set || s.IsFinish() {
		log.Info().Int("set", set).Ints("sets", s.Sets[:]).Msg("set-over")
	}
	if sim.opts.OnFrame != nil {
		sim.opts.OnFrame(f)
	}
	return f
}

func (sim *Simulator) forceContact() {
	s := sim.d.State()
	team := s.Serving
	if s.Rally.Phase == volleyball.InPlay {
		team = s.Rally.Possession
	}
	acts := volleyball.TouchActions(s, team)
	if len(acts) == 0 {
		panic(fmt.Sprintf("game: rally stalled with no contact available for %s", team))
	}
	log.Debug().Str("team", team.String()).Str("action", acts[0].String()).Msg("forced-contact")
	sim.d.Dispatch(acts[0])
}

// consultManagers lets both managers act. Substitutions are deferred to the
// next serve; other decisions apply at once.
func (sim *Simulator) consultManagers() {
	for _, team := range volleyball.Teams {
		m := sim.sides[team].Manager
		if m == nil {
			continue
		}
		a := m.Decide(sim.d, team)
		switch a.Kind() {
		case volleyball.KindManagerNothing:
		case volleyball.KindSubstitution:
			sim.d.Defer(a)
		default:
			sim.d.Dispatch(a)
		}
		log.Debug().Str("team", team.String()).Str("manager", m.Name()).Str("action", a.String()).Msg("manager-decision")
	}
}

// Run plays rallies until the match ends or ctx is done.
func (sim *Simulator) Run(ctx context.Context) (volleyball.Summary, error) {
	s := sim.d.State()
	for !s.IsFinish() {
		if err := ctx.Err(); err != nil {
			return s.Summary(), fmt.Errorf("simulation stopped after %d rallies: %w", sim.rally, err)
		}
		sim.PlayRally()
		if sim.opts.ManagerInterval > 0 && sim.rally%sim.opts.ManagerInterval == 0 && !s.IsFinish() {
			sim.consultManagers()
		}
	}
	sum := s.Summary()
	log.Info().
		Str("winner", sum.Winner).
		Ints("sets", sum.Sets[:]).
		Int("rallies", sim.rally).
		Int("actions", sim.d.StackDepth()).
		Msg("match-over")
	return sum, nil
}
