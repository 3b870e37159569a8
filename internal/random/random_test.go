package random

import "testing"

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 10; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestScriptReplaysOutcomes(t *testing.T) {
	s := Forced(true, false, true)
	want := []float64{0, 1, 0}
	for i, w := range want {
		if got := s.Float64(); got != w {
			t.Fatalf("draw %d: expected %v, got %v", i, w, got)
		}
	}
	if s.Remaining() != 0 {
		t.Fatalf("expected script exhausted, %d left", s.Remaining())
	}
}

func TestScriptFallsBack(t *testing.T) {
	s := &Script{Outcomes: []bool{true}, Then: Constant(0.25)}
	s.Float64()
	if got := s.Float64(); got != 0.25 {
		t.Fatalf("expected fallback draw 0.25, got %v", got)
	}
}

func TestScriptExhaustedPanics(t *testing.T) {
	s := Forced()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on exhausted script")
		}
	}()
	s.Float64()
}

func TestNewSeedNonNegative(t *testing.T) {
	for i := 0; i < 20; i++ {
		if s := NewSeed(); s < 0 {
			t.Fatalf("expected non-negative seed, got %d", s)
		}
	}
}
