package rt

import (
	"sync/atomic"
	"time"
)

// Overrun describes a tick whose work exceeded the loop period.
type Overrun struct {
	Tick    uint64
	Elapsed time.Duration
	Period  time.Duration
}

// Budget tracks tick execution time against the loop period. Observe is
// called from the loop goroutine; the getters are safe from any goroutine.
type Budget struct {
	period    time.Duration
	onOverrun func(Overrun)

	worst    atomic.Int64
	overruns atomic.Uint64
	samples  atomic.Uint64
}

func NewBudget(period time.Duration, onOverrun func(Overrun)) *Budget {
	return &Budget{period: period, onOverrun: onOverrun}
}

// Observe records one tick's execution time.
func (b *Budget) Observe(tick uint64, elapsed time.Duration) {
	b.samples.Add(1)
	if int64(elapsed) > b.worst.Load() {
		b.worst.Store(int64(elapsed))
	}
	if elapsed > b.period {
		b.overruns.Add(1)
		if b.onOverrun != nil {
			b.onOverrun(Overrun{Tick: tick, Elapsed: elapsed, Period: b.period})
		}
	}
}

func (b *Budget) Period() time.Duration { return b.period }
func (b *Budget) Worst() time.Duration  { return time.Duration(b.worst.Load()) }
func (b *Budget) Overruns() uint64      { return b.overruns.Load() }
func (b *Budget) Samples() uint64       { return b.samples.Load() }

// Margin is the fraction of the period left unused by the worst tick.
func (b *Budget) Margin() float64 {
	if b.period <= 0 {
		return 0
	}
	return float64(b.period-b.Worst()) / float64(b.period)
}
