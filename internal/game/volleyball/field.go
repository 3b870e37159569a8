package volleyball

import (
	"fmt"
	"strings"
)

// Court grid dimensions. Row NetRow separates the sides: Home owns the rows
// below it, Away the rows above.
const (
	Rows   = 19
	Cols   = 9
	NetRow = 9
)

// Cell is a grid coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// InBounds reports whether c lies on the grid.
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Rows && c.Col >= 0 && c.Col < Cols
}

// Side reports which team owns c. The net row belongs to nobody.
func (c Cell) Side() (Team, bool) {
	switch {
	case c.Row < NetRow:
		return Home, true
	case c.Row > NetRow:
		return Away, true
	}
	return 0, false
}

type square struct {
	dorsal int // -1 when empty
	team   Team
	ball   bool
}

// Field is the court grid. It holds at most one ball and at most one player
// per cell.
type Field struct {
	grid [Rows][Cols]square
}

// NewField returns an empty court.
func NewField() *Field {
	f := &Field{}
	f.clear()
	return f
}

func (f *Field) clear() {
	for r := range f.grid {
		for c := range f.grid[r] {
			f.grid[r][c] = square{dorsal: -1}
		}
	}
}

func (f *Field) at(c Cell) *square {
	if !c.InBounds() {
		panic(fmt.Sprintf("volleyball: cell %v out of bounds", c))
	}
	return &f.grid[c.Row][c.Col]
}

// PlayerAt returns the player standing on c, if any.
func (f *Field) PlayerAt(c Cell) (Team, int, bool) {
	sq := f.at(c)
	if sq.dorsal < 0 {
		return 0, 0, false
	}
	return sq.team, sq.dorsal, true
}

// Occupied reports whether a player stands on c.
func (f *Field) Occupied(c Cell) bool {
	return f.at(c).dorsal >= 0
}

// Ball returns the cell holding the ball.
func (f *Field) Ball() (Cell, bool) {
	for r := range f.grid {
		for c := range f.grid[r] {
			if f.grid[r][c].ball {
				return Cell{r, c}, true
			}
		}
	}
	return Cell{}, false
}

// FindPlayer returns the cell where team's player with the given dorsal
// stands.
func (f *Field) FindPlayer(team Team, dorsal int) (Cell, bool) {
	for r := range f.grid {
		for c := range f.grid[r] {
			sq := f.grid[r][c]
			if sq.dorsal == dorsal && sq.team == team {
				return Cell{r, c}, true
			}
		}
	}
	return Cell{}, false
}

// MoveBall relocates the ball. It panics if the ball is not at src.
func (f *Field) MoveBall(src, dst Cell) {
	from := f.at(src)
	if !from.ball {
		panic(fmt.Sprintf("volleyball: ball not at %v", src))
	}
	to := f.at(dst)
	from.ball = false
	to.ball = true
}

// MovePlayer relocates whoever stands on src to the empty cell dst.
func (f *Field) MovePlayer(src, dst Cell) {
	from := f.at(src)
	if from.dorsal < 0 {
		panic(fmt.Sprintf("volleyball: no player at %v", src))
	}
	to := f.at(dst)
	if to.dorsal >= 0 {
		panic(fmt.Sprintf("volleyball: cell %v already occupied by %d", dst, to.dorsal))
	}
	to.dorsal, to.team = from.dorsal, from.team
	from.dorsal, from.team = -1, 0
}

func (f *Field) place(team Team, dorsal int, c Cell) {
	sq := f.at(c)
	if sq.dorsal >= 0 {
		panic(fmt.Sprintf("volleyball: cell %v already occupied by %d", c, sq.dorsal))
	}
	sq.dorsal, sq.team = dorsal, team
}

// replace swaps the dorsal standing on c in place.
func (f *Field) replace(c Cell, dorsal int) {
	sq := f.at(c)
	if sq.dorsal < 0 {
		panic(fmt.Sprintf("volleyball: no player at %v", c))
	}
	sq.dorsal = dorsal
}

// placement is one occupied cell, used to record and restore the court.
type placement struct {
	cell   Cell
	dorsal int
	team   Team
	ball   bool
}

func (f *Field) occupancy() []placement {
	out := make([]placement, 0, 13)
	for r := range f.grid {
		for c := range f.grid[r] {
			sq := f.grid[r][c]
			if sq.dorsal >= 0 || sq.ball {
				out = append(out, placement{cell: Cell{r, c}, dorsal: sq.dorsal, team: sq.team, ball: sq.ball})
			}
		}
	}
	return out
}

func (f *Field) restore(occ []placement) {
	for _, p := range f.occupancy() {
		f.grid[p.cell.Row][p.cell.Col] = square{dorsal: -1}
	}
	for _, p := range occ {
		f.grid[p.cell.Row][p.cell.Col] = square{dorsal: p.dorsal, team: p.team, ball: p.ball}
	}
}

// PlaceLineUps clears the court, puts both line-ups on their slot cells and
// hands the ball to the server of the serving team.
func (f *Field) PlaceLineUps(home, away LineUp, serving Team) {
	f.clear()
	for i, pos := range home.Slots {
		f.place(Home, pos.Dorsal, SlotCell(Home, i+1))
	}
	for i, pos := range away.Slots {
		f.place(Away, pos.Dorsal, SlotCell(Away, i+1))
	}
	f.at(SlotCell(serving, 1)).ball = true
}

// CheckInvariants verifies one ball and six players per side, each on its
// own half.
func (f *Field) CheckInvariants() error {
	balls := 0
	var players [2]int
	for r := range f.grid {
		for c := range f.grid[r] {
			sq := f.grid[r][c]
			if sq.ball {
				balls++
			}
			if sq.dorsal < 0 {
				continue
			}
			side, ok := Cell{r, c}.Side()
			if !ok || side != sq.team {
				return fmt.Errorf("player %s/%d on wrong side at (%d,%d)", sq.team, sq.dorsal, r, c)
			}
			players[sq.team]++
		}
	}
	if balls != 1 {
		return fmt.Errorf("expected 1 ball, found %d", balls)
	}
	for _, t := range Teams {
		if players[t] != 6 {
			return fmt.Errorf("expected 6 %s players on court, found %d", t, players[t])
		}
	}
	return nil
}

// Neighbors returns the in-bounds cells adjacent to c on the same side.
func Neighbors(c Cell) []Cell {
	side, ok := c.Side()
	if !ok {
		return nil
	}
	out := make([]Cell, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Cell{c.Row + dr, c.Col + dc}
			if !n.InBounds() {
				continue
			}
			if s, ok := n.Side(); !ok || s != side {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

// slot cells for Away, index slot-1. Home is the point reflection.
var awaySlots = [6]Cell{
	{16, 6}, // 1 right back
	{12, 6}, // 2 right front
	{12, 4}, // 3 middle front
	{12, 2}, // 4 left front
	{16, 2}, // 5 left back
	{16, 4}, // 6 middle back
}

// SlotCell maps a rotation slot (1-6) to its court cell.
func SlotCell(team Team, slot int) Cell {
	if slot < 1 || slot > 6 {
		panic(fmt.Sprintf("volleyball: invalid slot %d", slot))
	}
	c := awaySlots[slot-1]
	if team == Home {
		return Cell{Rows - 1 - c.Row, Cols - 1 - c.Col}
	}
	return c
}

// FrontRow reports whether slot is at the net.
func FrontRow(slot int) bool { return slot >= 2 && slot <= 4 }

func (f *Field) String() string {
	var b strings.Builder
	for r := Rows - 1; r >= 0; r-- {
		for c := 0; c < Cols; c++ {
			sq := f.grid[r][c]
			switch {
			case sq.dorsal >= 0 && sq.ball:
				fmt.Fprintf(&b, "*%2d", sq.dorsal)
			case sq.dorsal >= 0:
				mark := 'h'
				if sq.team == Away {
					mark = 'a'
				}
				fmt.Fprintf(&b, "%c%2d", mark, sq.dorsal)
			case sq.ball:
				b.WriteString("  *")
			case r == NetRow:
				b.WriteString("===")
			default:
				b.WriteString("  .")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
