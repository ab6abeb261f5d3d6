package main

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DatarefUpdate is a single decoded value from an RREF response frame.
type DatarefUpdate struct {
	Ref   string
	Value float64
}

type simValue struct {
	value      float64
	receivedAt time.Time
}

// SimState caches the most recent value per dataref. It is owned by the
// engine goroutine and needs no locking. Values older than the staleness
// threshold read as unknown, which dashes the corresponding display field.
type SimState struct {
	clock     clockwork.Clock
	threshold time.Duration
	values    map[string]simValue
	lastAt    time.Time
}

func newSimState(clock clockwork.Clock, threshold time.Duration) *SimState {
	return &SimState{
		clock:     clock,
		threshold: threshold,
		values:    make(map[string]simValue),
	}
}

func (s *SimState) Apply(u DatarefUpdate) {
	now := s.clock.Now()
	s.values[u.Ref] = simValue{value: u.Value, receivedAt: now}
	s.lastAt = now
}

// Value returns the cached value and whether it is known and fresh.
func (s *SimState) Value(ref string) (float64, bool) {
	v, ok := s.values[ref]
	if !ok || s.clock.Since(v.receivedAt) > s.threshold {
		return 0, false
	}
	return v.value, true
}

func (s *SimState) Bool(ref string) bool {
	v, ok := s.Value(ref)
	return ok && v != 0
}

// Fresh reports whether any dataref arrived within the staleness threshold.
func (s *SimState) Fresh() bool {
	return !s.lastAt.IsZero() && s.clock.Since(s.lastAt) <= s.threshold
}

// Reset drops all cached values once telemetry goes stale, so a returning
// link starts from a clean cache.
func (s *SimState) Reset() {
	s.values = make(map[string]simValue)
	s.lastAt = time.Time{}
}
