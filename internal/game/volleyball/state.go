package volleyball

import (
	"fmt"

	"volleysim/internal/random"
)

const (
	PointsToWinSet  = 25
	SetsToWinMatch  = 3
	TimeoutsPerSet  = 2
	MaxTouches      = 3
	DefaultMaxSubst = 6
)

// Phase is the rally state machine's current state.
type Phase int

const (
	ServeWait Phase = iota
	InPlay
	RallyOver
)

func (p Phase) String() string {
	switch p {
	case ServeWait:
		return "serve-wait"
	case InPlay:
		return "in-play"
	case RallyOver:
		return "rally-over"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Rally is the per-rally bookkeeping.
type Rally struct {
	Phase      Phase
	Next       Kind // touch expected from the side in possession
	Possession Team
	Touches    [2]int
	Contacts   int // successful contacts by either side this rally
	LastTeam   Team
	LastPlayer int // -1 before the first contact
	Landed     bool
	Winner     Team // valid once Phase is RallyOver
}

// PointRecord is one entry of the points history.
type PointRecord struct {
	Team   Team   `json:"team"`
	Scores [2]int `json:"scores"`
	Set    int    `json:"set"`
}

// pointUndo captures every field ScorePoint mutates.
type pointUndo struct {
	team      Team
	rally     Rally
	serving   Team
	scores    [2]int
	sets      [2]int
	setNumber int
	timeouts  [2]int
	credited  int // dorsal credited with the point, or -1
	ace       bool
	rotated   bool
	occupancy []placement
}

// State is the single source of truth for a match.
type State struct {
	Teams            [2]*TeamState
	Field            *Field
	Scores           [2]int
	Sets             [2]int
	SetNumber        int
	Serving          Team
	Rally            Rally
	MaxSubstitutions int

	points []PointRecord
	undo   []pointUndo
	src    random.Source
}

// NewState builds a match between two rosters. Every available player starts
// on the bench until ConfLineUps is called.
func NewState(home, away TeamData, src random.Source) *State {
	s := &State{
		Teams:            [2]*TeamState{newTeamState(home), newTeamState(away)},
		Field:            NewField(),
		SetNumber:        1,
		Serving:          Home,
		MaxSubstitutions: DefaultMaxSubst,
		points:           make([]PointRecord, 0, 64),
		undo:             make([]pointUndo, 0, 64),
		src:              src,
	}
	s.resetRally(ServeWait)
	return s
}

// ConfLineUps puts both starting sixes on court and the ball in the hands of
// the serving team's slot 1.
func (s *State) ConfLineUps(home, away LineUp) {
	for i, l := range [2]LineUp{home, away} {
		t := s.Teams[i]
		for d := range t.OnField {
			t.OnBench[d] = true
		}
		t.OnField = make(map[int]bool, 6)
		for _, pos := range l.Slots {
			if _, ok := t.Roster[pos.Dorsal]; !ok {
				panic(fmt.Sprintf("volleyball: player %d not on %s roster", pos.Dorsal, t.Name))
			}
			if t.Unavailable[pos.Dorsal] {
				panic(fmt.Sprintf("volleyball: player %d of %s is unavailable", pos.Dorsal, t.Name))
			}
			if t.OnField[pos.Dorsal] {
				panic(fmt.Sprintf("volleyball: player %d listed twice in %s line-up", pos.Dorsal, t.Name))
			}
			t.OnField[pos.Dorsal] = true
			delete(t.OnBench, pos.Dorsal)
		}
		t.LineUp = l
	}
	s.Field.PlaceLineUps(s.Teams[Home].LineUp, s.Teams[Away].LineUp, s.Serving)
	s.resetRally(ServeWait)
}

// Source returns the outcome source used for skill rolls.
func (s *State) Source() random.Source { return s.src }

// SetSource installs a new outcome source and returns the previous one.
func (s *State) SetSource(src random.Source) random.Source {
	prev := s.src
	s.src = src
	return prev
}

// roll draws one outcome: success iff draw <= skill/100.
func (s *State) roll(skill int) bool {
	return s.src.Float64() <= float64(skill)/100
}

// Player returns a roster entry, panicking if it does not exist.
func (s *State) Player(team Team, dorsal int) PlayerData {
	p, ok := s.Teams[team].Roster[dorsal]
	if !ok {
		panic(fmt.Sprintf("volleyball: player %d not on %s roster", dorsal, team))
	}
	return p
}

// Server returns the dorsal standing in slot 1 of the serving team.
func (s *State) Server() int {
	return s.Teams[s.Serving].LineUp.At(1).Dorsal
}

func (s *State) resetRally(phase Phase) {
	s.Rally = Rally{
		Phase:      phase,
		Next:       KindServe,
		Possession: s.Serving,
		LastTeam:   s.Serving,
		LastPlayer: -1,
	}
}

// startRally arms the rally for a serve. Only Serve calls it.
func (s *State) startRally() {
	s.resetRally(ServeWait)
}

// IsRallyOver reports whether the current rally has been decided.
func (s *State) IsRallyOver() bool { return s.Rally.Phase == RallyOver }

// IsFinish reports whether either side has won the match.
func (s *State) IsFinish() bool {
	return s.Sets[Home] >= SetsToWinMatch || s.Sets[Away] >= SetsToWinMatch
}

// Winner returns the match winner once IsFinish is true.
func (s *State) Winner() (Team, bool) {
	for _, t := range Teams {
		if s.Sets[t] >= SetsToWinMatch {
			return t, true
		}
	}
	return 0, false
}

// Points returns the points history.
func (s *State) Points() []PointRecord { return s.points }

func (s *State) bump(team Team, dorsal int, f stat, delta int) {
	t := s.Teams[team]
	*t.Stats.field(f) += delta
	if dorsal >= 0 {
		*t.PlayerStats[dorsal].field(f) += delta
	}
}

// ScorePoint awards the rally to team: credits the point, rotates on
// side-out, closes the set or match when won, and puts everyone back on
// their slot cells.
func (s *State) ScorePoint(team Team) {
	rec := pointUndo{
		team:      team,
		rally:     s.Rally,
		serving:   s.Serving,
		scores:    s.Scores,
		sets:      s.Sets,
		setNumber: s.SetNumber,
		timeouts:  [2]int{s.Teams[Home].Timeouts, s.Teams[Away].Timeouts},
		credited:  -1,
		occupancy: s.Field.occupancy(),
	}

	s.bump(team, -1, statPoints, 1)
	if s.Rally.LastTeam == team && s.Rally.LastPlayer >= 0 {
		rec.credited = s.Rally.LastPlayer
		*s.Teams[team].PlayerStats[rec.credited].field(statPoints)++
		if s.Rally.Contacts <= 1 {
			rec.ace = true
			s.bump(team, rec.credited, statAces, 1)
		}
	}

	if team != s.Serving {
		rec.rotated = true
		s.Teams[team].LineUp.Rotate()
		s.Teams[team].Stats.Rotations++
		s.Serving = team
	}

	s.Scores[team]++
	s.points = append(s.points, PointRecord{Team: team, Scores: s.Scores, Set: s.SetNumber})

	if s.Scores[team] >= PointsToWinSet && s.Scores[team]-s.Scores[team.Opponent()] >= 2 {
		s.Sets[team]++
		if !s.IsFinish() {
			s.Scores = [2]int{}
			s.SetNumber++
			for _, t := range s.Teams {
				t.Timeouts = TimeoutsPerSet
			}
			s.Serving = s.firstServer()
		}
	}

	s.Field.PlaceLineUps(s.Teams[Home].LineUp, s.Teams[Away].LineUp, s.Serving)
	s.resetRally(RallyOver)
	s.Rally.Winner = team
	s.Rally.Landed = rec.rally.Landed
	s.undo = append(s.undo, rec)
}

// firstServer decides who opens the current set: a coin toss for the
// deciding set, otherwise home on odd sets and away on even ones.
func (s *State) firstServer() Team {
	if s.SetNumber == 2*SetsToWinMatch-1 {
		if s.src.Float64() < 0.5 {
			return Home
		}
		return Away
	}
	if s.SetNumber%2 == 1 {
		return Home
	}
	return Away
}

// RevertPoint undoes the most recent ScorePoint, which must have been for
// team.
func (s *State) RevertPoint(team Team) {
	if len(s.undo) == 0 {
		panic("volleyball: no point to revert")
	}
	rec := s.undo[len(s.undo)-1]
	if rec.team != team {
		panic(fmt.Sprintf("volleyball: last point went to %s, not %s", rec.team, team))
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.points = s.points[:len(s.points)-1]

	if rec.rotated {
		s.Teams[team].LineUp.Unrotate()
		s.Teams[team].Stats.Rotations--
	}
	if rec.ace {
		s.bump(team, rec.credited, statAces, -1)
	}
	if rec.credited >= 0 {
		*s.Teams[team].PlayerStats[rec.credited].field(statPoints)--
	}
	s.bump(team, -1, statPoints, -1)

	s.Teams[Home].Timeouts, s.Teams[Away].Timeouts = rec.timeouts[Home], rec.timeouts[Away]
	s.Scores = rec.scores
	s.Sets = rec.sets
	s.SetNumber = rec.setNumber
	s.Serving = rec.serving
	s.Rally = rec.rally
	s.Field.restore(rec.occupancy)
}

// Streak is the current run in the points history: positive when team won
// the most recent points, negative when it conceded them.
func (s *State) Streak(team Team) int {
	n := 0
	for i := len(s.points) - 1; i >= 0; i-- {
		p := s.points[i]
		switch {
		case p.Team == team && n >= 0:
			n++
		case p.Team != team && n <= 0:
			n--
		default:
			return n
		}
	}
	return n
}

// SubstitutionsThisSet counts team's substitutions in the current set.
func (s *State) SubstitutionsThisSet(team Team) int {
	n := 0
	for _, r := range s.Teams[team].Substitutions {
		if r.Set == s.SetNumber {
			n++
		}
	}
	return n
}

// ClosestPlayerToBall returns team's on-court player nearest the ball by
// Chebyshev distance, ties going to the lower slot.
func (s *State) ClosestPlayerToBall(team Team) (int, bool) {
	ball, ok := s.Field.Ball()
	if !ok {
		return 0, false
	}
	best, bestDist := -1, 0
	for _, pos := range s.Teams[team].LineUp.Slots {
		c, ok := s.Field.FindPlayer(team, pos.Dorsal)
		if !ok {
			continue
		}
		d := max(abs(c.Row-ball.Row), abs(c.Col-ball.Col))
		if best < 0 || d < bestDist {
			best, bestDist = pos.Dorsal, d
		}
	}
	return best, best >= 0
}

// RoleHolder returns the first on-court player of team with role.
func (s *State) RoleHolder(team Team, role Role) (int, bool) {
	for _, pos := range s.Teams[team].LineUp.Slots {
		if pos.Role == role {
			return pos.Dorsal, true
		}
	}
	return 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
