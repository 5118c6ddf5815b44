// Package watchdog enforces the maximum age of the active setpoint.
package watchdog

import (
	"errors"
	"sync/atomic"

	"github.com/san-kum/gatebridge/internal/setpoint"
)

// DefaultTimeoutMs is the staleness bound configs start from.
const DefaultTimeoutMs = 50

var ErrZeroTimeout = errors.New("watchdog timeout must be positive")

// maxRetries bounds how often Check re-evaluates when a writer publishes
// between the age check and the invalidation.
const maxRetries = 4

// StaleEvent is raised once when an authorized setpoint exceeds the timeout.
type StaleEvent struct {
	Tick          uint64 // tick at which staleness was detected
	LastUpdate    uint64 // authorization tick of the stale setpoint
	SinceUpdateMs uint64
	TimeoutMs     uint64
}

// Reporter surfaces stale-authorization faults. Implementations must treat
// the event as fatal severity but must not stop the caller.
type Reporter interface {
	ReportStale(ev StaleEvent)
}

// Verdict is the outcome of one watchdog check.
type Verdict struct {
	// Setpoint is the snapshot the loop should use. Its Valid flag is false
	// whenever the loop must command zero.
	Setpoint setpoint.Setpoint
	// Tripped is true only on the tick where staleness was first detected.
	Tripped bool
}

// Watchdog is evaluated once per control tick by the loop goroutine. The
// timeout is fixed at construction.
type Watchdog struct {
	timeoutMs uint64
	reporter  Reporter
	trips     atomic.Uint64
}

// Source is the part of a setpoint.Store the watchdog reads and invalidates.
type Source interface {
	Load() *setpoint.Setpoint
	InvalidateIf(snap *setpoint.Setpoint) bool
}

// New returns a watchdog with the given timeout. A zero timeout is rejected
// so the watchdog cannot be configured away.
func New(timeoutMs uint64, reporter Reporter) (*Watchdog, error) {
	if timeoutMs == 0 {
		return nil, ErrZeroTimeout
	}
	return &Watchdog{timeoutMs: timeoutMs, reporter: reporter}, nil
}

func (w *Watchdog) TimeoutMs() uint64 { return w.timeoutMs }

// Trips returns how many stale events were raised.
func (w *Watchdog) Trips() uint64 { return w.trips.Load() }

// Check judges the current setpoint against now. A valid setpoint older than
// the timeout is invalidated in the store and reported exactly once; from
// then on the store reads invalid until a newer setpoint is published. A store
// that was never written yields an invalid verdict without any report.
func (w *Watchdog) Check(now uint64, store Source) Verdict {
	var snap *setpoint.Setpoint
	for attempt := 0; attempt < maxRetries; attempt++ {
		snap = store.Load()
		if snap == nil || !snap.Valid {
			return verdictOf(snap, false)
		}
		if snap.Age(now) <= w.timeoutMs {
			return verdictOf(snap, false)
		}
		if store.InvalidateIf(snap) {
			w.trip(now, snap)
			v := verdictOf(snap, true)
			v.Setpoint.Valid = false
			return v
		}
		// A newer setpoint landed between Load and InvalidateIf; judge it.
	}

	// Still contended: hold zero command this tick without reporting. The
	// next tick judges whatever is current.
	v := verdictOf(snap, false)
	v.Setpoint.Valid = false
	return v
}

func (w *Watchdog) trip(now uint64, snap *setpoint.Setpoint) {
	w.trips.Add(1)
	if w.reporter == nil {
		return
	}
	w.reporter.ReportStale(StaleEvent{
		Tick:          now,
		LastUpdate:    snap.Tick,
		SinceUpdateMs: snap.Age(now),
		TimeoutMs:     w.timeoutMs,
	})
}

func verdictOf(snap *setpoint.Setpoint, tripped bool) Verdict {
	if snap == nil {
		return Verdict{Tripped: tripped}
	}
	return Verdict{Setpoint: *snap, Tripped: tripped}
}
