// Package volleyball holds the match state, the reversible actions that
// mutate it, and the dispatcher through which every mutation flows.
//
// Nothing in this package logs or blocks. A State is owned by exactly one
// Dispatcher at a time; callers that need concurrency run one State per
// goroutine.
package volleyball

import (
	"fmt"
	"sort"
)

// Team identifies one side of the net.
type Team int

const (
	Home Team = iota
	Away
)

// Teams lists both sides in a stable order.
var Teams = [2]Team{Home, Away}

func (t Team) Opponent() Team { return 1 - t }

func (t Team) String() string {
	switch t {
	case Home:
		return "home"
	case Away:
		return "away"
	}
	return fmt.Sprintf("team(%d)", int(t))
}

// MarshalText lets Team be used as a JSON map key.
func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(b []byte) error {
	switch string(b) {
	case "home":
		*t = Home
	case "away":
		*t = Away
	default:
		return fmt.Errorf("unknown team %q", b)
	}
	return nil
}

// Role is a player's court specialty.
type Role string

const (
	Setter        Role = "S"
	MiddleBlocker Role = "MB"
	OutsideHitter Role = "OH"
	Opposite      Role = "O"
	Libero        Role = "L"
)

// PlayerData is a roster entry. Skills are integer ratings in [0, 100].
type PlayerData struct {
	Dorsal  int    `json:"dorsal" yaml:"dorsal"`
	Name    string `json:"name" yaml:"name"`
	Role    Role   `json:"role" yaml:"role"`
	Attack  int    `json:"attack" yaml:"attack"`
	Block   int    `json:"block" yaml:"block"`
	Dig     int    `json:"dig" yaml:"dig"`
	Set     int    `json:"set" yaml:"set"`
	Serve   int    `json:"serve" yaml:"serve"`
	Receive int    `json:"receive" yaml:"receive"`
	// Unavailable players stay on the roster but never enter the court.
	Unavailable bool `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// Overall is the mean of the six skill ratings.
func (p PlayerData) Overall() int {
	return (p.Attack + p.Block + p.Dig + p.Set + p.Serve + p.Receive) / 6
}

// TeamData is a resolved roster as handed to the core.
type TeamData struct {
	Name    string       `json:"name" yaml:"name"`
	Players []PlayerData `json:"players" yaml:"players"`
}

// Player looks up a roster entry by dorsal.
func (t TeamData) Player(dorsal int) (PlayerData, bool) {
	for _, p := range t.Players {
		if p.Dorsal == dorsal {
			return p, true
		}
	}
	return PlayerData{}, false
}

// Validate checks that dorsals are unique and ratings are in range.
func (t TeamData) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("team has no name")
	}
	seen := make(map[int]bool, len(t.Players))
	available := 0
	for _, p := range t.Players {
		if seen[p.Dorsal] {
			return fmt.Errorf("team %q: duplicate dorsal %d", t.Name, p.Dorsal)
		}
		seen[p.Dorsal] = true
		for _, v := range []int{p.Attack, p.Block, p.Dig, p.Set, p.Serve, p.Receive} {
			if v < 0 || v > 100 {
				return fmt.Errorf("team %q: player %d has rating %d out of range", t.Name, p.Dorsal, v)
			}
		}
		switch p.Role {
		case Setter, MiddleBlocker, OutsideHitter, Opposite, Libero:
		default:
			return fmt.Errorf("team %q: player %d has unknown role %q", t.Name, p.Dorsal, p.Role)
		}
		if !p.Unavailable {
			available++
		}
	}
	if available < 6 {
		return fmt.Errorf("team %q: need at least 6 available players, have %d", t.Name, available)
	}
	return nil
}

// Stats counts attempts, errors and credited outcomes.
type Stats struct {
	Serves      int `json:"serves"`
	Receives    int `json:"receives"`
	Digs        int `json:"digs"`
	Sets        int `json:"sets"`
	Attacks     int `json:"attacks"`
	Blocks      int `json:"blocks"`
	Errors      int `json:"errors"`
	Points      int `json:"points"`
	Aces        int `json:"aces"`
	Kills       int `json:"kills"`
	Assists     int `json:"assists"`
	BlockPoints int `json:"block_points"`
}

// TeamStats adds the team-only counters.
type TeamStats struct {
	Stats
	Substitutions int `json:"substitutions"`
	Timeouts      int `json:"timeouts"`
	Rotations     int `json:"rotations"`
}

type stat int

const (
	statServes stat = iota
	statReceives
	statDigs
	statSets
	statAttacks
	statBlocks
	statErrors
	statPoints
	statAces
	statKills
	statAssists
	statBlockPoints
)

func (st *Stats) field(f stat) *int {
	switch f {
	case statServes:
		return &st.Serves
	case statReceives:
		return &st.Receives
	case statDigs:
		return &st.Digs
	case statSets:
		return &st.Sets
	case statAttacks:
		return &st.Attacks
	case statBlocks:
		return &st.Blocks
	case statErrors:
		return &st.Errors
	case statPoints:
		return &st.Points
	case statAces:
		return &st.Aces
	case statKills:
		return &st.Kills
	case statAssists:
		return &st.Assists
	case statBlockPoints:
		return &st.BlockPoints
	}
	panic(fmt.Sprintf("volleyball: unknown stat %d", f))
}

// SubstitutionRecord is one entry of a team's substitution history.
type SubstitutionRecord struct {
	Out int `json:"out"`
	In  int `json:"in"`
	Set int `json:"set"`
}

// TeamState is everything the match tracks for one side.
type TeamState struct {
	Name          string
	Roster        map[int]PlayerData
	LineUp        LineUp
	OnField       map[int]bool
	OnBench       map[int]bool
	Unavailable   map[int]bool
	Substitutions []SubstitutionRecord
	Stats         TeamStats
	PlayerStats   map[int]*Stats
	Timeouts      int
}

func newTeamState(data TeamData) *TeamState {
	t := &TeamState{
		Name:          data.Name,
		Roster:        make(map[int]PlayerData, len(data.Players)),
		OnField:       make(map[int]bool, 6),
		OnBench:       make(map[int]bool, len(data.Players)),
		Unavailable:   make(map[int]bool),
		Substitutions: make([]SubstitutionRecord, 0, 8),
		PlayerStats:   make(map[int]*Stats, len(data.Players)),
		Timeouts:      TimeoutsPerSet,
	}
	for _, p := range data.Players {
		t.Roster[p.Dorsal] = p
		t.PlayerStats[p.Dorsal] = &Stats{}
		if p.Unavailable {
			t.Unavailable[p.Dorsal] = true
		} else {
			t.OnBench[p.Dorsal] = true
		}
	}
	return t
}

// FieldDorsals returns the on-field dorsals in line-up slot order.
func (t *TeamState) FieldDorsals() []int {
	out := make([]int, 0, 6)
	for _, pos := range t.LineUp.Slots {
		out = append(out, pos.Dorsal)
	}
	return out
}

// BenchDorsals returns the bench in ascending dorsal order.
func (t *TeamState) BenchDorsals() []int {
	return sortedKeys(t.OnBench)
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}
