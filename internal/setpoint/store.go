package setpoint

import (
	"fmt"
	"sync/atomic"
)

// Store holds exactly one current Setpoint. Writers publish a fresh immutable
// snapshot with a single pointer swap, so readers always observe every
// channel, the tick and the validity flag from the same write. No operation
// takes a lock or waits on another goroutine.
type Store struct {
	cur atomic.Pointer[Setpoint]
}

func NewStore() *Store {
	return &Store{}
}

// Write publishes sp, marked valid. It fails with ErrOutOfOrder unless sp.Tick
// is strictly greater than the tick of the stored setpoint, valid or not.
func (s *Store) Write(sp Setpoint) error {
	if sp.Count < 0 || sp.Count > MaxChannels {
		return fmt.Errorf("setpoint: count %d outside [0, %d]", sp.Count, MaxChannels)
	}
	sp.Valid = true
	next := &sp
	for {
		old := s.cur.Load()
		if old != nil && sp.Tick <= old.Tick {
			return fmt.Errorf("tick %d, stored %d: %w", sp.Tick, old.Tick, ErrOutOfOrder)
		}
		if s.cur.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// Load returns the current snapshot, or nil if nothing was ever written.
// The returned Setpoint must not be modified.
func (s *Store) Load() *Setpoint {
	return s.cur.Load()
}

// Read returns a copy of the current setpoint. Before the first write it is
// the zero Setpoint, which is invalid.
func (s *Store) Read() Setpoint {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return Setpoint{}
}

// Invalidate clears validity of whatever setpoint is current, keeping its
// channels and tick.
func (s *Store) Invalidate() {
	for {
		old := s.cur.Load()
		if old == nil || !old.Valid {
			return
		}
		if s.InvalidateIf(old) {
			return
		}
	}
}

// InvalidateIf clears validity only if snap is still the current snapshot.
// It reports whether the invalidation happened; false means a newer setpoint
// was published in between, or snap was already invalid.
func (s *Store) InvalidateIf(snap *Setpoint) bool {
	if snap == nil || !snap.Valid {
		return false
	}
	dead := *snap
	dead.Valid = false
	return s.cur.CompareAndSwap(snap, &dead)
}
