// Package random provides the outcome sources used to resolve skill rolls.
//
// Every success/failure in a match is a single Bernoulli draw taken from a
// Source. Sources are injectable so that rallies and searches can be
// replayed exactly from a seed, or scripted outright in tests.
package random

import (
	"math/rand"

	"lukechampine.com/frand"
)

// Source yields draws in [0, 1).
type Source interface {
	Float64() float64
}

// New returns a deterministic source for the given seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NewSeed returns a fresh high-entropy seed.
func NewSeed() int64 {
	return int64(frand.Uint64n(1 << 62))
}

// Constant always yields the same draw. A constant of 0.5 makes every roll
// succeed exactly when the skill is at least 50.
type Constant float64

func (c Constant) Float64() float64 { return float64(c) }

// Script replays forced outcomes in order: true yields a draw of 0 (always a
// success), false yields 1 (a failure for any skill below 100). Once the
// script is exhausted it falls back to Then, or panics when Then is nil.
type Script struct {
	Outcomes []bool
	Then     Source
	next     int
}

// Forced builds a Script from a list of outcomes.
func Forced(outcomes ...bool) *Script {
	return &Script{Outcomes: outcomes}
}

func (s *Script) Float64() float64 {
	if s.next >= len(s.Outcomes) {
		if s.Then == nil {
			panic("random: scripted outcomes exhausted")
		}
		return s.Then.Float64()
	}
	ok := s.Outcomes[s.next]
	s.next++
	if ok {
		return 0
	}
	return 1
}

// Remaining reports how many scripted outcomes are left.
func (s *Script) Remaining() int {
	return len(s.Outcomes) - s.next
}
