package gate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/gatebridge/internal/loop"
)

// Player plays a script against the loop clock on wall-clock time. While
// paused it stays silent and the scheduled submissions it misses are
// discarded, which lets the watchdog demonstrate a safe stop.
type Player struct {
	script *Script
	to     Submitter
	clock  loop.Clock
	log    logr.Logger

	poll   time.Duration
	paused atomic.Bool
	sent   atomic.Uint64
	missed atomic.Uint64
}

func NewPlayer(script *Script, to Submitter, clock loop.Clock, log logr.Logger) *Player {
	return &Player{
		script: script,
		to:     to,
		clock:  clock,
		log:    log.WithName("player"),
		poll:   time.Millisecond,
	}
}

func (p *Player) Pause()       { p.paused.Store(true) }
func (p *Player) Resume()      { p.paused.Store(false) }
func (p *Player) Paused() bool { return p.paused.Load() }

// Toggle flips the paused state and returns the new one.
func (p *Player) Toggle() bool {
	for {
		old := p.paused.Load()
		if p.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (p *Player) Sent() uint64   { return p.sent.Load() }
func (p *Player) Missed() uint64 { return p.missed.Load() }

// Run plays the schedule until it is exhausted or ctx is done. Script ticks
// are offset by the clock reading at start.
func (p *Player) Run(ctx context.Context) error {
	base := p.clock.NowMs()
	subs := p.script.Expand()
	for i := range subs {
		subs[i].Tick += base
	}
	cursor := NewCursor(subs)

	p.log.Info("gate script started", "submissions", len(subs), "base", base)

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for !cursor.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := p.clock.NowMs()
			if p.paused.Load() {
				p.missed.Add(uint64(cursor.Skip(now)))
				continue
			}
			n, err := cursor.Deliver(now, p.to)
			p.sent.Add(uint64(n))
			if err != nil {
				p.log.V(1).Info("submission rejected", "now", now, "error", err.Error())
			}
		}
	}

	p.log.Info("gate script finished", "sent", p.Sent(), "missed", p.Missed())
	return nil
}
