package volleyball

import (
	"strings"
	"testing"
)

func TestSlotCellsMirror(t *testing.T) {
	for slot := 1; slot <= 6; slot++ {
		h, a := SlotCell(Home, slot), SlotCell(Away, slot)
		if side, ok := h.Side(); !ok || side != Home {
			t.Fatalf("slot %d home cell %v on wrong side", slot, h)
		}
		if side, ok := a.Side(); !ok || side != Away {
			t.Fatalf("slot %d away cell %v on wrong side", slot, a)
		}
		if h.Row+a.Row != Rows-1 || h.Col+a.Col != Cols-1 {
			t.Fatalf("slot %d cells %v and %v are not mirrored", slot, h, a)
		}
	}
}

func TestFieldPlaceAndMove(t *testing.T) {
	f := NewField()
	var l LineUp
	for i := range l.Slots {
		l.Slots[i] = Position{Dorsal: i + 1, Role: SlotRoles[i]}
	}
	f.PlaceLineUps(l, l, Away)
	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	ball, ok := f.Ball()
	if !ok || ball != SlotCell(Away, 1) {
		t.Fatalf("expected ball at away slot 1, got %v", ball)
	}

	dst := SlotCell(Home, 4)
	f.MoveBall(ball, dst)
	if b, _ := f.Ball(); b != dst {
		t.Fatalf("expected ball at %v, got %v", dst, b)
	}

	src := SlotCell(Home, 6)
	free := Cell{src.Row - 1, src.Col}
	f.MovePlayer(src, free)
	if team, dorsal, ok := f.PlayerAt(free); !ok || team != Home || dorsal != 6 {
		t.Fatalf("expected home 6 at %v", free)
	}
	if f.Occupied(src) {
		t.Fatalf("expected %v to be empty", src)
	}
}

func TestFieldPanics(t *testing.T) {
	f := NewField()
	var l LineUp
	for i := range l.Slots {
		l.Slots[i] = Position{Dorsal: i + 1}
	}
	f.PlaceLineUps(l, l, Home)

	expectPanic(t, "ball not at source", func() { f.MoveBall(SlotCell(Home, 2), SlotCell(Away, 2)) })
	expectPanic(t, "destination occupied", func() { f.MovePlayer(SlotCell(Home, 2), SlotCell(Home, 3)) })
	expectPanic(t, "empty source", func() { f.MovePlayer(Cell{0, 0}, Cell{0, 1}) })
	expectPanic(t, "out of bounds", func() { f.Occupied(Cell{Rows, 0}) })
}

func TestCheckInvariantsDetectsMissingPlayer(t *testing.T) {
	f := NewField()
	var l LineUp
	for i := range l.Slots {
		l.Slots[i] = Position{Dorsal: i + 1}
	}
	f.PlaceLineUps(l, l, Home)
	c := SlotCell(Away, 3)
	f.grid[c.Row][c.Col].dorsal = -1
	if err := f.CheckInvariants(); err == nil {
		t.Fatal("expected an invariant violation")
	}
}

func TestNeighborsStayOnSide(t *testing.T) {
	for _, n := range Neighbors(Cell{NetRow - 1, 0}) {
		if side, ok := n.Side(); !ok || side != Home {
			t.Fatalf("neighbor %v crossed the net", n)
		}
	}
	if got := len(Neighbors(Cell{4, 4})); got != 8 {
		t.Fatalf("expected 8 neighbors, got %d", got)
	}
}

func TestFieldString(t *testing.T) {
	f := NewField()
	var l LineUp
	for i := range l.Slots {
		l.Slots[i] = Position{Dorsal: i + 1}
	}
	f.PlaceLineUps(l, l, Home)
	out := f.String()
	if strings.Count(out, "\n") != Rows {
		t.Fatalf("expected %d rows, got:\n%s", Rows, out)
	}
	if !strings.Contains(out, "===") || !strings.Contains(out, "*") {
		t.Fatalf("expected net and ball markers, got:\n%s", out)
	}
}
