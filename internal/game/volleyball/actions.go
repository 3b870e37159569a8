package volleyball

import (
	"fmt"
	"strings"
)

// Kind identifies an action variant.
type Kind int

const (
	KindNothing Kind = iota
	KindServe
	KindReceive
	KindSet
	KindAttack
	KindBlock
	KindDig
	KindMove
	KindSubstitution
	KindTimeout
	KindManagerNothing
	KindCelebrate
	KindCompress
)

var kindNames = [...]string{
	KindNothing:        "nothing",
	KindServe:          "serve",
	KindReceive:        "receive",
	KindSet:            "set",
	KindAttack:         "attack",
	KindBlock:          "block",
	KindDig:            "dig",
	KindMove:           "move",
	KindSubstitution:   "substitution",
	KindTimeout:        "timeout",
	KindManagerNothing: "manager-nothing",
	KindCelebrate:      "celebrate",
	KindCompress:       "compress",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsTouch reports whether k is a ball contact.
func (k Kind) IsTouch() bool {
	switch k {
	case KindServe, KindReceive, KindSet, KindAttack, KindBlock, KindDig:
		return true
	}
	return false
}

// Action is a reversible state mutation. The set of variants is closed; only
// a Dispatcher runs them.
type Action interface {
	Kind() Kind
	Team() Team
	// Actor is the acting player's dorsal, or -1 for manager actions.
	Actor() int
	String() string

	execute(s *State)
	rollback(s *State)
}

// touch is the shared shape of ball contacts. Success and the fields below
// it are filled in by execute.
type touch struct {
	Player  int
	Side    Team
	Src     Cell
	Dest    Cell
	Success bool

	prev   Rally
	moved  bool
	scored bool
	scorer Team
}

func (t *touch) Team() Team { return t.Side }
func (t *touch) Actor() int { return t.Player }

// begin validates the contact and records the rally it starts from.
func (t *touch) begin(s *State, k Kind) {
	at, ok := s.Field.FindPlayer(t.Side, t.Player)
	if !ok {
		panic(fmt.Sprintf("volleyball: %s by %s/%d who is not on court", k, t.Side, t.Player))
	}
	if ball, ok := s.Field.Ball(); !ok || ball != t.Src {
		panic(fmt.Sprintf("volleyball: %s from %v but ball is elsewhere", k, t.Src))
	}
	if at != t.Src {
		panic(fmt.Sprintf("volleyball: %s by %s/%d who stands at %v, not %v", k, t.Side, t.Player, at, t.Src))
	}
	t.prev = s.Rally
	t.moved = false
	t.scored = false
}

func (t *touch) move(s *State) {
	s.Field.MoveBall(t.Src, t.Dest)
	t.moved = true
}

func (t *touch) contact(s *State) {
	s.Rally.Contacts++
	s.Rally.LastTeam = t.Side
	s.Rally.LastPlayer = t.Player
}

func (t *touch) score(s *State, team Team) {
	t.scored = true
	t.scorer = team
	s.ScorePoint(team)
}

// fail charges an error to the actor and hands the point to the other side.
func (t *touch) fail(s *State) {
	s.bump(t.Side, t.Player, statErrors, 1)
	t.score(s, t.Side.Opponent())
}

// undo reverses begin and everything after it except the attempt counter.
func (t *touch) undo(s *State) {
	if t.scored {
		s.RevertPoint(t.scorer)
	}
	if t.moved {
		s.Field.MoveBall(t.Dest, t.Src)
	}
	s.Rally = t.prev
	if !t.Success {
		s.bump(t.Side, t.Player, statErrors, -1)
	}
}

func (t *touch) describe(k Kind) string {
	return fmt.Sprintf("%s %s/%d %v->%v", k, t.Side, t.Player, t.Src, t.Dest)
}

// Serve puts the ball in play from slot 1 toward an opposing cell.
type Serve struct {
	touch
	requested int // dorsal asked to serve, before a flushed substitution
}

func NewServe(team Team, player int, src, dest Cell) *Serve {
	return &Serve{touch: touch{Player: player, Side: team, Src: src, Dest: dest}}
}

func (a *Serve) Kind() Kind { return KindServe }
func (a *Serve) String() string { return a.describe(KindServe) }

func (a *Serve) execute(s *State) {
	// A substitution flushed with this serve may have replaced the server.
	a.requested = a.Player
	if team, d, ok := s.Field.PlayerAt(a.Src); ok && team == a.Side && !s.Teams[a.Side].OnField[a.Player] {
		a.Player = d
	}
	a.begin(s, KindServe)
	s.startRally()
	s.bump(a.Side, a.Player, statServes, 1)
	a.Success = s.roll(s.Player(a.Side, a.Player).Serve)
	if !a.Success {
		a.fail(s)
		return
	}
	a.move(s)
	a.contact(s)
	s.Rally.Phase = InPlay
	s.Rally.Possession = a.Side.Opponent()
	s.Rally.Next = KindReceive
}

func (a *Serve) rollback(s *State) {
	a.undo(s)
	s.bump(a.Side, a.Player, statServes, -1)
	a.Player = a.requested
}

// firstContact is shared by Receive and Dig.
type firstContact struct{ touch }

func (a *firstContact) run(s *State, k Kind, counter stat, skill int) {
	a.begin(s, k)
	s.bump(a.Side, a.Player, counter, 1)
	a.Success = s.roll(skill)
	if !a.Success {
		a.fail(s)
		return
	}
	a.move(s)
	a.contact(s)
	s.Rally.Touches[a.Side]++
	s.Rally.Possession = a.Side
	s.Rally.Next = KindSet
}

// Receive takes the serve and passes to a teammate.
type Receive struct{ firstContact }

func NewReceive(team Team, player int, src, dest Cell) *Receive {
	return &Receive{firstContact{touch{Player: player, Side: team, Src: src, Dest: dest}}}
}

func (a *Receive) Kind() Kind { return KindReceive }
func (a *Receive) String() string { return a.describe(KindReceive) }

func (a *Receive) execute(s *State) {
	a.run(s, KindReceive, statReceives, s.Player(a.Side, a.Player).Receive)
}

func (a *Receive) rollback(s *State) {
	a.undo(s)
	s.bump(a.Side, a.Player, statReceives, -1)
}

// Dig is a first contact rated on the dig skill.
type Dig struct{ firstContact }

func NewDig(team Team, player int, src, dest Cell) *Dig {
	return &Dig{firstContact{touch{Player: player, Side: team, Src: src, Dest: dest}}}
}

func (a *Dig) Kind() Kind { return KindDig }
func (a *Dig) String() string { return a.describe(KindDig) }

func (a *Dig) execute(s *State) {
	a.run(s, KindDig, statDigs, s.Player(a.Side, a.Player).Dig)
}

func (a *Dig) rollback(s *State) {
	a.undo(s)
	s.bump(a.Side, a.Player, statDigs, -1)
}

// Set passes the ball to a teammate for the attack. A set that uses up the
// third touch without sending the ball over is a fault.
type Set struct {
	touch
	assisted bool
}

func NewSet(team Team, player int, src, dest Cell) *Set {
	return &Set{touch: touch{Player: player, Side: team, Src: src, Dest: dest}}
}

func (a *Set) Kind() Kind { return KindSet }
func (a *Set) String() string { return a.describe(KindSet) }

func (a *Set) execute(s *State) {
	a.begin(s, KindSet)
	a.assisted = false
	s.bump(a.Side, a.Player, statSets, 1)
	a.Success = s.roll(s.Player(a.Side, a.Player).Set)
	if !a.Success {
		a.fail(s)
		return
	}
	a.move(s)
	a.contact(s)
	s.Rally.Touches[a.Side]++
	s.Rally.Next = KindAttack
	if s.Rally.Touches[a.Side] >= MaxTouches {
		a.score(s, a.Side.Opponent())
		return
	}
	a.assisted = true
	s.bump(a.Side, a.Player, statAssists, 1)
}

func (a *Set) rollback(s *State) {
	if a.assisted {
		s.bump(a.Side, a.Player, statAssists, -1)
	}
	a.undo(s)
	s.bump(a.Side, a.Player, statSets, -1)
}

// Attack sends the ball at an opposing cell. A successful attack is always
// contested by the opposing front row's best blocker.
type Attack struct {
	touch
	Block *Block
}

func NewAttack(team Team, player int, src, dest Cell) *Attack {
	return &Attack{touch: touch{Player: player, Side: team, Src: src, Dest: dest}}
}

func (a *Attack) Kind() Kind { return KindAttack }
func (a *Attack) String() string { return a.describe(KindAttack) }

func (a *Attack) execute(s *State) {
	a.begin(s, KindAttack)
	a.Block = nil
	s.bump(a.Side, a.Player, statAttacks, 1)
	a.Success = s.roll(s.Player(a.Side, a.Player).Attack)
	if !a.Success {
		a.fail(s)
		return
	}
	a.contact(s)
	s.Rally.Touches[a.Side]++
	opp := a.Side.Opponent()
	a.Block = &Block{
		touch:    touch{Player: BestBlocker(s, opp), Side: opp, Src: a.Src, Dest: a.Dest},
		attacker: a.Player,
	}
	a.Block.execute(s)
}

func (a *Attack) rollback(s *State) {
	if a.Block != nil {
		a.Block.rollback(s)
	}
	a.undo(s)
	s.bump(a.Side, a.Player, statAttacks, -1)
}

// BestBlocker returns team's front-row player with the highest block rating,
// ties going to the lowest slot.
func BestBlocker(s *State, team Team) int {
	lineUp := s.Teams[team].LineUp
	best, bestRating := -1, -1
	for slot := 2; slot <= 4; slot++ {
		d := lineUp.At(slot).Dorsal
		if r := s.Player(team, d).Block; r > bestRating {
			best, bestRating = d, r
		}
	}
	return best
}

// Block is the nested response to a successful Attack. Src and Dest are the
// attack's trajectory. Its own success flag decides the point: a stuff
// scores for the blockers, a miss is a kill for the attacker.
type Block struct {
	touch
	attacker int
}

func (a *Block) Kind() Kind { return KindBlock }
func (a *Block) String() string { return a.describe(KindBlock) }

func (a *Block) execute(s *State) {
	if _, ok := s.Field.FindPlayer(a.Side, a.Player); !ok {
		panic(fmt.Sprintf("volleyball: block by %s/%d who is not on court", a.Side, a.Player))
	}
	a.prev = s.Rally
	a.moved = false
	a.scored = false
	s.bump(a.Side, a.Player, statBlocks, 1)
	a.Success = s.roll(s.Player(a.Side, a.Player).Block)
	if a.Success {
		a.contact(s)
		s.bump(a.Side, a.Player, statBlockPoints, 1)
		a.score(s, a.Side)
		return
	}
	attackers := a.Side.Opponent()
	s.bump(attackers, a.attacker, statKills, 1)
	a.move(s)
	s.Rally.Landed = true
	a.score(s, attackers)
}

func (a *Block) rollback(s *State) {
	if a.scored {
		s.RevertPoint(a.scorer)
	}
	if a.moved {
		s.Field.MoveBall(a.Dest, a.Src)
	}
	s.Rally = a.prev
	if a.Success {
		s.bump(a.Side, a.Player, statBlockPoints, -1)
	} else {
		s.bump(a.Side.Opponent(), a.attacker, statKills, -1)
	}
	s.bump(a.Side, a.Player, statBlocks, -1)
}

// Move steps a player without the ball to an empty cell.
type Move struct {
	Player int
	Side   Team
	Src    Cell
	Dest   Cell
}

func (a *Move) Kind() Kind { return KindMove }
func (a *Move) Team() Team { return a.Side }
func (a *Move) Actor() int { return a.Player }
func (a *Move) String() string {
	return fmt.Sprintf("move %s/%d %v->%v", a.Side, a.Player, a.Src, a.Dest)
}

func (a *Move) execute(s *State) {
	team, dorsal, ok := s.Field.PlayerAt(a.Src)
	if !ok || team != a.Side || dorsal != a.Player {
		panic(fmt.Sprintf("volleyball: %s/%d not at %v", a.Side, a.Player, a.Src))
	}
	if ball, ok := s.Field.Ball(); ok && ball == a.Src {
		panic(fmt.Sprintf("volleyball: %s/%d holds the ball and cannot move", a.Side, a.Player))
	}
	s.Field.MovePlayer(a.Src, a.Dest)
}

func (a *Move) rollback(s *State) {
	s.Field.MovePlayer(a.Dest, a.Src)
}

// Substitution swaps a bench player into the slot held by an on-court one.
type Substitution struct {
	Side Team
	Out  int
	In   int

	cell Cell
	prev Position
}

func NewSubstitution(team Team, out, in int) *Substitution {
	return &Substitution{Side: team, Out: out, In: in}
}

func (a *Substitution) Kind() Kind { return KindSubstitution }
func (a *Substitution) Team() Team { return a.Side }
func (a *Substitution) Actor() int { return -1 }
func (a *Substitution) String() string {
	return fmt.Sprintf("substitution %s %d->%d", a.Side, a.Out, a.In)
}

func (a *Substitution) execute(s *State) {
	t := s.Teams[a.Side]
	if !t.OnField[a.Out] {
		panic(fmt.Sprintf("volleyball: substitution of %s/%d who is not on court", a.Side, a.Out))
	}
	if !t.OnBench[a.In] {
		panic(fmt.Sprintf("volleyball: substitution by %s/%d who is not on the bench", a.Side, a.In))
	}
	if n := s.SubstitutionsThisSet(a.Side); n >= s.MaxSubstitutions {
		panic(fmt.Sprintf("volleyball: %s already made %d substitutions this set", a.Side, n))
	}
	cell, ok := s.Field.FindPlayer(a.Side, a.Out)
	if !ok {
		panic(fmt.Sprintf("volleyball: %s/%d not found on court", a.Side, a.Out))
	}
	slot, _ := t.LineUp.SlotOf(a.Out)
	a.cell = cell
	a.prev = t.LineUp.At(slot)

	t.LineUp.SubstitutePlayer(a.Out, Position{Dorsal: a.In, Role: t.Roster[a.In].Role})
	s.Field.replace(cell, a.In)
	delete(t.OnField, a.Out)
	t.OnField[a.In] = true
	delete(t.OnBench, a.In)
	t.OnBench[a.Out] = true
	t.Substitutions = append(t.Substitutions, SubstitutionRecord{Out: a.Out, In: a.In, Set: s.SetNumber})
	t.Stats.Substitutions++
}

func (a *Substitution) rollback(s *State) {
	t := s.Teams[a.Side]
	t.Stats.Substitutions--
	t.Substitutions = t.Substitutions[:len(t.Substitutions)-1]
	delete(t.OnBench, a.Out)
	t.OnBench[a.In] = true
	delete(t.OnField, a.In)
	t.OnField[a.Out] = true
	s.Field.replace(a.cell, a.Out)
	t.LineUp.SubstitutePlayer(a.In, a.prev)
}

// Timeout spends one of the team's time-outs for the set.
type Timeout struct{ Side Team }

func (a *Timeout) Kind() Kind { return KindTimeout }
func (a *Timeout) Team() Team { return a.Side }
func (a *Timeout) Actor() int { return -1 }
func (a *Timeout) String() string { return fmt.Sprintf("timeout %s", a.Side) }

func (a *Timeout) execute(s *State) {
	t := s.Teams[a.Side]
	if t.Timeouts <= 0 {
		panic(fmt.Sprintf("volleyball: %s has no time-outs left", a.Side))
	}
	t.Timeouts--
	t.Stats.Timeouts++
}

func (a *Timeout) rollback(s *State) {
	t := s.Teams[a.Side]
	t.Timeouts++
	t.Stats.Timeouts--
}

// Nothing is a player's idle action.
type Nothing struct {
	Player int
	Side   Team
}

func (a *Nothing) Kind() Kind { return KindNothing }
func (a *Nothing) Team() Team { return a.Side }
func (a *Nothing) Actor() int { return a.Player }
func (a *Nothing) String() string { return fmt.Sprintf("nothing %s/%d", a.Side, a.Player) }
func (a *Nothing) execute(*State) {}
func (a *Nothing) rollback(*State) {}

// ManagerNothing is a manager's idle action.
type ManagerNothing struct{ Side Team }

func (a *ManagerNothing) Kind() Kind { return KindManagerNothing }
func (a *ManagerNothing) Team() Team { return a.Side }
func (a *ManagerNothing) Actor() int { return -1 }
func (a *ManagerNothing) String() string { return fmt.Sprintf("manager-nothing %s", a.Side) }
func (a *ManagerNothing) execute(*State) {}
func (a *ManagerNothing) rollback(*State) {}

// Celebrate is a manager gesture with no effect on play.
type Celebrate struct{ Side Team }

func (a *Celebrate) Kind() Kind { return KindCelebrate }
func (a *Celebrate) Team() Team { return a.Side }
func (a *Celebrate) Actor() int { return -1 }
func (a *Celebrate) String() string { return fmt.Sprintf("celebrate %s", a.Side) }
func (a *Celebrate) execute(*State) {}
func (a *Celebrate) rollback(*State) {}

// Compress runs a batch as one undoable unit. The first Deferred actions
// came from the dispatcher's lazy buffer; the rest is the boundary action
// that flushed them.
type Compress struct {
	Actions  []Action
	Deferred int
}

func (a *Compress) Kind() Kind { return KindCompress }

func (a *Compress) Team() Team {
	if len(a.Actions) == 0 {
		return Home
	}
	return a.Actions[len(a.Actions)-1].Team()
}

func (a *Compress) Actor() int {
	if len(a.Actions) == 0 {
		return -1
	}
	return a.Actions[len(a.Actions)-1].Actor()
}

func (a *Compress) String() string {
	parts := make([]string, len(a.Actions))
	for i, x := range a.Actions {
		parts[i] = x.String()
	}
	return "compress[" + strings.Join(parts, "; ") + "]"
}

// Boundary returns the action that flushed the batch.
func (a *Compress) Boundary() Action {
	if len(a.Actions) == 0 {
		return nil
	}
	return a.Actions[len(a.Actions)-1]
}

func (a *Compress) execute(s *State) {
	for _, x := range a.Actions {
		x.execute(s)
	}
}

func (a *Compress) rollback(s *State) {
	for i := len(a.Actions) - 1; i >= 0; i-- {
		a.Actions[i].rollback(s)
	}
}
