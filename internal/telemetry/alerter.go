package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/rt"
	"github.com/san-kum/gatebridge/internal/setpoint"
	"github.com/san-kum/gatebridge/internal/watchdog"
)

const DefaultQueueSize = 256

type alertKind uint8

const (
	alertStale alertKind = iota
	alertOverflow
	alertOutOfOrder
	alertOverrun
	alertFault
	alertRecovered
)

// alert is a flat value so enqueueing from the tick path does not allocate.
type alert struct {
	kind       alertKind
	at         time.Time
	stale      watchdog.StaleEvent
	overflow   setpoint.OverflowEvent
	outOfOrder setpoint.OutOfOrderEvent
	overrun    rt.Overrun
	tick       uint64
	err        error
}

// Alerter turns control-path events into log entries without letting the
// caller block on I/O. Warnings are queued on a bounded channel and written by
// a single goroutine; when the queue is full the warning is counted as dropped.
//
// Stale events never share that queue. They are parked in a pending list the
// writer drains before any warning, so a flood of warnings cannot hide them.
// They are logged at FATAL severity through the core directly so the process
// keeps running and the loop keeps commanding zero.
type Alerter struct {
	log     *zap.Logger
	metrics *Metrics

	queue chan alert
	wake  chan struct{}
	done  chan struct{}

	staleMu     sync.Mutex
	stale       []alert
	staleClosed bool

	wg      sync.WaitGroup
	dropped atomic.Uint64
	closed  atomic.Bool

	// owned by the writer goroutine
	spare []alert

	// owned by the loop goroutine
	faulting bool
}

// NewAlerter starts the writer goroutine. metrics may be nil.
func NewAlerter(log *zap.Logger, metrics *Metrics, queueSize int) *Alerter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	a := &Alerter{
		log:     log,
		metrics: metrics,
		queue:   make(chan alert, queueSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stale:   make([]alert, 0, 8),
		spare:   make([]alert, 0, 8),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// ReportStale implements watchdog.Reporter.
func (a *Alerter) ReportStale(ev watchdog.StaleEvent) {
	if a.metrics != nil {
		a.metrics.incTrip()
	}
	al := alert{kind: alertStale, at: time.Now(), stale: ev}

	a.staleMu.Lock()
	if a.staleClosed {
		a.staleMu.Unlock()
		a.write(al)
		return
	}
	a.stale = append(a.stale, al)
	a.staleMu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// ReportOverflow implements setpoint.AnomalyReporter.
func (a *Alerter) ReportOverflow(ev setpoint.OverflowEvent) {
	if a.metrics != nil {
		a.metrics.incOverflow()
	}
	a.enqueue(alert{kind: alertOverflow, overflow: ev})
}

// ReportOutOfOrder implements setpoint.AnomalyReporter.
func (a *Alerter) ReportOutOfOrder(ev setpoint.OutOfOrderEvent) {
	if a.metrics != nil {
		a.metrics.incOutOfOrder()
	}
	a.enqueue(alert{kind: alertOutOfOrder, outOfOrder: ev})
}

// ReportOverrun is handed to the loop as its overrun callback.
func (a *Alerter) ReportOverrun(o rt.Overrun) {
	if a.metrics != nil {
		a.metrics.incOverrun()
	}
	a.enqueue(alert{kind: alertOverrun, overrun: o})
}

// OnTick implements loop.Observer. Only the first failing tick of a streak
// and the first clean tick after it are logged.
func (a *Alerter) OnTick(r *loop.Record) {
	switch {
	case r.Err != nil && !a.faulting:
		a.faulting = true
		a.enqueue(alert{kind: alertFault, tick: r.Tick, err: r.Err})
	case r.Err == nil && a.faulting:
		a.faulting = false
		a.enqueue(alert{kind: alertRecovered, tick: r.Tick})
	}
}

// Dropped returns how many alerts were discarded on a full queue.
func (a *Alerter) Dropped() uint64 { return a.dropped.Load() }

// Close flushes queued alerts and stops the writer. Warnings reported after
// Close are dropped; stale events are written synchronously.
func (a *Alerter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.staleMu.Lock()
	a.staleClosed = true
	a.staleMu.Unlock()
	close(a.done)
	a.wg.Wait()
	return a.log.Sync()
}

func (a *Alerter) enqueue(al alert) {
	if a.closed.Load() {
		a.drop()
		return
	}
	al.at = time.Now()
	select {
	case a.queue <- al:
	default:
		a.drop()
	}
}

func (a *Alerter) drop() {
	a.dropped.Add(1)
	if a.metrics != nil {
		a.metrics.incDropped()
	}
}

func (a *Alerter) run() {
	defer a.wg.Done()
	for {
		a.flushStale()
		select {
		case <-a.done:
			a.flushStale()
			for {
				select {
				case al := <-a.queue:
					a.write(al)
				default:
					return
				}
			}
		case <-a.wake:
		case al := <-a.queue:
			a.write(al)
		}
	}
}

// flushStale writes every pending stale event. The pending list is swapped
// with a spare so the lock is never held across a write.
func (a *Alerter) flushStale() {
	a.staleMu.Lock()
	pending := a.stale
	a.stale = a.spare[:0]
	a.staleMu.Unlock()

	for _, al := range pending {
		a.write(al)
	}
	a.spare = pending[:0]
}

func (a *Alerter) write(al alert) {
	switch al.kind {
	case alertStale:
		ev := al.stale
		a.fatal(al.at, "watchdog", "setpoint stale, actuators commanded to zero",
			zap.Uint64("tick", ev.Tick),
			zap.Uint64("lastUpdate", ev.LastUpdate),
			zap.Uint64("sinceUpdateMs", ev.SinceUpdateMs),
			zap.Uint64("timeoutMs", ev.TimeoutMs),
		)
	case alertOverflow:
		ev := al.overflow
		a.log.Named("adapter").Warn("setpoint truncated to channel capacity",
			zap.Uint64("tick", ev.Tick),
			zap.Int("requested", ev.Requested),
			zap.Int("accepted", ev.Accepted),
		)
	case alertOutOfOrder:
		ev := al.outOfOrder
		a.log.Named("adapter").Warn("out-of-order setpoint rejected",
			zap.Uint64("tick", ev.Tick),
			zap.Uint64("storedTick", ev.Stored),
		)
	case alertOverrun:
		o := al.overrun
		a.log.Named("loop").Warn("tick overran its period",
			zap.Uint64("tick", o.Tick),
			zap.Duration("elapsed", o.Elapsed),
			zap.Duration("period", o.Period),
		)
	case alertFault:
		a.log.Named("loop").Error("tick failed, commanding zero", zap.Uint64("tick", al.tick), zap.Error(al.err))
	case alertRecovered:
		a.log.Named("loop").Info("plant stepping again", zap.Uint64("tick", al.tick))
	}
}

// fatal writes a FATAL entry without the exit hook that zap.Logger.Fatal
// installs.
func (a *Alerter) fatal(at time.Time, name, msg string, fields ...zap.Field) {
	loggerName := name
	if base := a.log.Name(); base != "" {
		loggerName = base + "." + name
	}
	ent := zapcore.Entry{
		Level:      zapcore.FatalLevel,
		Time:       at,
		LoggerName: loggerName,
		Message:    msg,
	}
	if ce := a.log.Core().Check(ent, nil); ce != nil {
		ce.Write(fields...)
	}
}
