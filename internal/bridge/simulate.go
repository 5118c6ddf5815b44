package bridge

import (
	"context"

	"github.com/san-kum/gatebridge/internal/gate"
	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/metrics"
	"github.com/san-kum/gatebridge/internal/storage"
)

type Result struct {
	Trace     *storage.Trace
	Metrics   map[string]float64
	Ticks     uint64
	Truncated uint64
}

// Simulate plays the configured gate script on virtual time for
// cfg.Run.Ticks ticks and records every tick. Extra observers see each tick
// after the recorder and run metrics.
func (b *Bridge) Simulate(ctx context.Context, extra ...loop.Observer) (*Result, error) {
	ticks := b.Config.Run.Ticks
	script, err := gate.NewScript(b.Config.Gate.Script)
	if err != nil {
		return nil, err
	}

	rec := storage.NewRecorder(b.Engine.ActuatorCount(), int(ticks))
	set := metrics.Default()
	b.Loop.AddObserver(rec)
	b.Loop.AddObserver(set)
	for _, o := range extra {
		b.Loop.AddObserver(o)
	}

	if err := b.Loop.Simulate(ctx, 0, ticks, script.Hook(b.Adapter)); err != nil {
		return nil, err
	}

	return &Result{
		Trace:     rec.Trace(),
		Metrics:   set.Values(),
		Ticks:     b.Loop.Ticks(),
		Truncated: rec.Truncated(),
	}, nil
}
