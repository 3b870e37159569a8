package volleyball

import (
	"fmt"
	"sort"
)

// Position is a player assigned to a rotation slot.
type Position struct {
	Dorsal int  `json:"dorsal"`
	Role   Role `json:"role"`
}

// LineUp assigns players to the six rotation slots. Slots[0] is slot 1, the
// server's position.
type LineUp struct {
	Slots [6]Position `json:"slots"`
}

// SlotRoles is the role expected at each slot of a starting line-up.
var SlotRoles = [6]Role{Opposite, OutsideHitter, MiddleBlocker, OutsideHitter, Libero, Setter}

// At returns the player at slot (1-6).
func (l *LineUp) At(slot int) Position {
	return l.Slots[slot-1]
}

// SlotOf returns the slot (1-6) held by dorsal.
func (l *LineUp) SlotOf(dorsal int) (int, bool) {
	for i, pos := range l.Slots {
		if pos.Dorsal == dorsal {
			return i + 1, true
		}
	}
	return 0, false
}

// Rotate shifts every player one slot clockwise: 2 moves to 1, 3 to 2, and
// 1 to 6.
func (l *LineUp) Rotate() {
	first := l.Slots[0]
	copy(l.Slots[:5], l.Slots[1:])
	l.Slots[5] = first
}

// Unrotate is the inverse of Rotate.
func (l *LineUp) Unrotate() {
	last := l.Slots[5]
	copy(l.Slots[1:], l.Slots[:5])
	l.Slots[0] = last
}

// SubstitutePlayer puts in into the slot held by out.
func (l *LineUp) SubstitutePlayer(out int, in Position) {
	slot, ok := l.SlotOf(out)
	if !ok {
		panic(fmt.Sprintf("volleyball: player %d not in line-up", out))
	}
	l.Slots[slot-1] = in
}

// NewLineUp picks a starting six: for each slot the highest rated available
// player of the slot's role, or the best remaining player when the role is
// exhausted.
func NewLineUp(team TeamData) (LineUp, error) {
	pool := make([]PlayerData, 0, len(team.Players))
	for _, p := range team.Players {
		if !p.Unavailable {
			pool = append(pool, p)
		}
	}
	if len(pool) < 6 {
		return LineUp{}, fmt.Errorf("team %q: need 6 available players, have %d", team.Name, len(pool))
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Overall() != pool[j].Overall() {
			return pool[i].Overall() > pool[j].Overall()
		}
		return pool[i].Dorsal < pool[j].Dorsal
	})

	used := make(map[int]bool, 6)
	var l LineUp
	for i, role := range SlotRoles {
		pick := -1
		for j, p := range pool {
			if !used[p.Dorsal] && p.Role == role {
				pick = j
				break
			}
		}
		if pick < 0 {
			for j, p := range pool {
				if !used[p.Dorsal] {
					pick = j
					break
				}
			}
		}
		p := pool[pick]
		used[p.Dorsal] = true
		l.Slots[i] = Position{Dorsal: p.Dorsal, Role: p.Role}
	}
	return l, nil
}

// AllLineUps enumerates every ordering of the given line-up's six players
// over the rotation slots. The input ordering comes first.
func AllLineUps(base LineUp) []LineUp {
	var out []LineUp
	p := base.Slots
	var permute func(k int)
	permute = func(k int) {
		if k == len(p) {
			out = append(out, LineUp{Slots: p})
			return
		}
		for i := k; i < len(p); i++ {
			p[k], p[i] = p[i], p[k]
			permute(k + 1)
			p[k], p[i] = p[i], p[k]
		}
	}
	permute(0)
	return out
}
