// Package dicetest provides deterministic dice.Random implementations for tests.
package dicetest

import "sync"

// Scripted is a dice.Random that replays queued draws in order.
// When a queue is exhausted it falls back to the configured defaults:
// UniformInt returns min, UniformFloat returns the fallback unit draw scaled
// into [min, max).
//
// Scripted is safe for concurrent use.
type Scripted struct {
	mu            sync.Mutex
	ints          []int
	floats        []float64
	fallbackFloat float64
	draws         int
}

// NewScripted returns a Scripted whose float fallback is 0.99, which never
// triggers low-probability events such as dodges or critical hits.
func NewScripted() *Scripted {
	return &Scripted{fallbackFloat: 0.99}
}

// QueueInts appends values returned by successive UniformInt calls.
func (s *Scripted) QueueInts(v ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

// QueueFloats appends values returned verbatim by successive UniformFloat
// calls, clamped to [min, max].
func (s *Scripted) QueueFloats(v ...float64) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, v...)
	return s
}

// WithFallbackFloat sets the unit draw used once the float queue is empty.
func (s *Scripted) WithFallbackFloat(v float64) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbackFloat = v
	return s
}

// Draws returns how many draws have been consumed.
func (s *Scripted) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}

// UniformInt returns the next queued int, clamped to [min, max].
func (s *Scripted) UniformInt(min, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	v := min
	if len(s.ints) > 0 {
		v = s.ints[0]
		s.ints = s.ints[1:]
	}
	if max < min {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// UniformFloat returns the next queued float, or the fallback unit draw
// scaled into [min, max) when the queue is empty.
func (s *Scripted) UniformFloat(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	if len(s.floats) == 0 {
		return min + s.fallbackFloat*(max-min)
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
