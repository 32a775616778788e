// Package timer provides keyed single-shot timers whose fires can be
// validated against later cancellations.
//
// A timer callback runs on its own goroutine and usually only forwards the
// fire to an owning event loop. By the time the loop handles it, the key may
// have been re-armed or cancelled; Claim tells the loop whether the fire is
// still current.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Key names one independent timer within a Set.
type Key string

type entry struct {
	gen   uint64
	timer clockwork.Timer
}

// Set holds at most one live timer per key.
type Set struct {
	clock clockwork.Clock

	mu      sync.Mutex
	gen     uint64
	entries map[Key]*entry
}

// NewSet creates a Set driven by clock. A nil clock means wall time.
func NewSet(clock clockwork.Clock) *Set {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Set{clock: clock, entries: make(map[Key]*entry)}
}

// Schedule arms key to fire after d, cancelling any timer already armed for
// it. fire receives the generation to pass to Claim.
func (s *Set) Schedule(key Key, d time.Duration, fire func(gen uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(key)
	s.gen++
	gen := s.gen
	e := &entry{gen: gen}
	e.timer = s.clock.AfterFunc(d, func() { fire(gen) })
	s.entries[key] = e
	return gen
}

// Claim reports whether gen is still the live generation for key. A
// successful claim retires the timer, so each generation is claimed at most
// once.
func (s *Set) Claim(key Key, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return false
	}
	delete(s.entries, key)
	return true
}

// Cancel disarms key. It reports whether a timer was pending.
func (s *Set) Cancel(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(key)
}

// Pending reports whether key is armed and not yet claimed.
func (s *Set) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Stop cancels every timer.
func (s *Set) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		s.stopLocked(key)
	}
}

func (s *Set) stopLocked(key Key) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, key)
	return true
}
