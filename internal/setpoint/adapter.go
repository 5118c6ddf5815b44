package setpoint

import (
	"errors"
	"fmt"
)

// OverflowEvent describes a submission that carried more channels than the
// adapter accepts. The extra channels were dropped.
type OverflowEvent struct {
	Tick      uint64
	Requested int
	Accepted  int
}

// OutOfOrderEvent describes a rejected submission whose tick was not newer
// than the stored setpoint.
type OutOfOrderEvent struct {
	Tick   uint64
	Stored uint64
}

// AnomalyReporter receives non-fatal ingestion anomalies.
type AnomalyReporter interface {
	ReportOverflow(ev OverflowEvent)
	ReportOutOfOrder(ev OutOfOrderEvent)
}

// SubmitObserver is notified of every accepted submission.
type SubmitObserver interface {
	OnSubmit(sp *Setpoint)
}

// Adapter is the only write path from the governance side into a Store.
// It does not authorize anything; it delivers already-authorized setpoints
// atomically. Submit is safe for concurrent use.
type Adapter struct {
	store    *Store
	capacity int
	reporter AnomalyReporter
	observer SubmitObserver
}

// NewAdapter builds an adapter accepting at most capacity channels per
// setpoint. capacity is clamped to [0, MaxChannels].
func NewAdapter(store *Store, capacity int, reporter AnomalyReporter) *Adapter {
	if capacity > MaxChannels {
		capacity = MaxChannels
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Adapter{store: store, capacity: capacity, reporter: reporter}
}

// SetObserver attaches an observer for accepted submissions. It must be
// called before the adapter is shared.
func (a *Adapter) SetObserver(o SubmitObserver) { a.observer = o }

func (a *Adapter) Capacity() int { return a.capacity }

// Submit copies the first count values into a new setpoint stamped with tick
// and publishes it. count is clamped to len(values); a count above the
// adapter capacity is truncated and reported as an overflow. A tick that is
// not strictly newer than the stored setpoint is rejected with ErrOutOfOrder.
func (a *Adapter) Submit(values []float64, count int, tick uint64) error {
	if count < 0 {
		return fmt.Errorf("count %d: %w", count, ErrNegativeCount)
	}
	if count > len(values) {
		count = len(values)
	}
	if count > a.capacity {
		if a.reporter != nil {
			a.reporter.ReportOverflow(OverflowEvent{Tick: tick, Requested: count, Accepted: a.capacity})
		}
		count = a.capacity
	}

	sp := Setpoint{Count: count, Tick: tick}
	copy(sp.Values[:count], values[:count])

	if err := a.store.Write(sp); err != nil {
		if errors.Is(err, ErrOutOfOrder) && a.reporter != nil {
			a.reporter.ReportOutOfOrder(OutOfOrderEvent{Tick: tick, Stored: a.store.Read().Tick})
		}
		return err
	}
	if a.observer != nil {
		sp.Valid = true
		a.observer.OnSubmit(&sp)
	}
	return nil
}
