package loop

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/gatebridge/internal/control"
	"github.com/san-kum/gatebridge/internal/rt"
	"github.com/san-kum/gatebridge/internal/setpoint"
	"github.com/san-kum/gatebridge/internal/watchdog"
)

const DefaultPeriod = time.Millisecond

// ctxCheckInterval is how many back-to-back ticks run between cancellation
// checks in Simulate and in Run's catch-up.
const ctxCheckInterval = 1024

type Config struct {
	Period       time.Duration
	CPU          int // -1 leaves the thread unpinned
	LockOSThread bool
	Logger       logr.Logger
	OnOverrun    func(rt.Overrun)
	OnTiming     func(elapsed time.Duration)
}

func DefaultConfig() Config {
	return Config{
		Period:       DefaultPeriod,
		CPU:          -1,
		LockOSThread: true,
		Logger:       logr.Discard(),
	}
}

// Loop is the fixed-rate control loop and the only writer of actuator
// commands. Tick, Run and Simulate must be called from one goroutine at a
// time; the store may be written concurrently through a setpoint.Adapter.
type Loop struct {
	store *setpoint.Store
	wd    *watchdog.Watchdog
	law   *control.Law
	plant Plant
	cfg   Config
	log   logr.Logger

	budget    *rt.Budget
	observers []Observer

	n       int
	verdict watchdog.Verdict
	q, v    []float64
	record  Record

	ticks    atomic.Uint64
	lastTick atomic.Uint64
	running  atomic.Bool
}

func New(store *setpoint.Store, wd *watchdog.Watchdog, law *control.Law, plant Plant, cfg Config) (*Loop, error) {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Period%time.Millisecond != 0 {
		return nil, fmt.Errorf("period %v is not a whole number of milliseconds", cfg.Period)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	n := plant.ActuatorCount()
	if n <= 0 {
		return nil, fmt.Errorf("plant has no actuators")
	}
	if n > setpoint.MaxChannels {
		return nil, fmt.Errorf("plant has %d actuators, at most %d supported", n, setpoint.MaxChannels)
	}
	if err := law.Validate(n); err != nil {
		return nil, err
	}

	return &Loop{
		store:  store,
		wd:     wd,
		law:    law,
		plant:  plant,
		cfg:    cfg,
		log:    cfg.Logger.WithName("loop"),
		budget: rt.NewBudget(cfg.Period, cfg.OnOverrun),
		n:      n,
		q:      make([]float64, n),
		v:      make([]float64, n),
	}, nil
}

// AddObserver registers o. Observers must be added before the loop starts.
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

func (l *Loop) Budget() *rt.Budget           { return l.budget }
func (l *Loop) Watchdog() *watchdog.Watchdog { return l.wd }
func (l *Loop) Period() time.Duration        { return l.cfg.Period }

// Ticks returns how many ticks have completed.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// LastTick returns the control time of the most recent tick.
func (l *Loop) LastTick() uint64 { return l.lastTick.Load() }

// Tick runs one control cycle at control time now: watchdog check, feedback
// law, saturation, command write, one plant step. The returned record is
// reused by the next call.
func (l *Loop) Tick(now uint64) *Record {
	r := &l.record
	*r = Record{Tick: now}
	cmds := l.plant.Commands()

	defer func() {
		if p := recover(); p != nil {
			l.law.Zero(cmds)
			r.Valid = false
			r.Commands = cmds
			r.Err = fmt.Errorf("tick %d: recovered panic: %v", now, p)
		}
		l.ticks.Add(1)
		l.lastTick.Store(now)
		for _, o := range l.observers {
			o.OnTick(r)
		}
	}()

	l.verdict = l.wd.Check(now, l.store)
	sp := &l.verdict.Setpoint
	r.Tripped = l.verdict.Tripped
	r.SetpointTick = sp.Tick

	copy(l.q, l.plant.Positions())
	copy(l.v, l.plant.Velocities())
	r.Positions = l.q
	r.Velocities = l.v

	if sp.Valid {
		count := sp.Count
		if count > l.n {
			count = l.n
		}
		r.Valid = true
		r.Channels = count
		r.Targets = sp.Values[:count]
		r.Saturated = l.law.Compute(r.Targets, l.q, l.v, cmds)
	} else {
		l.law.Zero(cmds)
	}
	r.Commands = cmds

	r.Err = l.plant.Step()
	return r
}

// Run ticks on wall-clock time until ctx is done. Ticks the scheduler
// delivered late are run back to back in order so no control time is
// skipped. On exit the commands are left at zero.
func (l *Loop) Run(ctx context.Context, clock Clock) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	if l.cfg.LockOSThread {
		unpin, err := rt.Pin(l.cfg.CPU)
		if err != nil {
			l.log.Error(err, "cpu affinity failed, thread stays locked without it", "cpu", l.cfg.CPU)
		}
		defer unpin()
	}

	periodMs := uint64(l.cfg.Period / time.Millisecond)
	ticker := time.NewTicker(l.cfg.Period)
	defer ticker.Stop()
	defer l.law.Zero(l.plant.Commands())

	l.log.Info("control loop started", "period", l.cfg.Period, "actuators", l.n, "watchdogTimeoutMs", l.wd.TimeoutMs())

	stopped := func() error {
		l.log.Info("control loop stopped", "ticks", l.Ticks(), "overruns", l.budget.Overruns(), "worst", l.budget.Worst())
		return ctx.Err()
	}

	next := clock.NowMs()
	for {
		select {
		case <-ctx.Done():
			return stopped()
		case <-ticker.C:
			now := clock.NowMs()
			for n := 0; next <= now; n++ {
				if n > 0 && n%ctxCheckInterval == 0 && ctx.Err() != nil {
					return stopped()
				}
				start := time.Now()
				l.Tick(next)
				elapsed := time.Since(start)
				l.budget.Observe(next, elapsed)
				if l.cfg.OnTiming != nil {
					l.cfg.OnTiming(elapsed)
				}
				next += periodMs
			}
		}
	}
}

// Simulate runs count ticks on virtual time starting at control time from,
// calling hook before each tick. It never reads the wall clock, so identical
// hooks and plants give identical command sequences.
func (l *Loop) Simulate(ctx context.Context, from, count uint64, hook Hook) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	periodMs := uint64(l.cfg.Period / time.Millisecond)
	now := from
	for i := uint64(0); i < count; i++ {
		if i%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if hook != nil {
			hook(now)
		}
		l.Tick(now)
		now += periodMs
	}
	return nil
}
