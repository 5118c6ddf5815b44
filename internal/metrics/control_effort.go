package metrics

import (
	"math"

	"github.com/san-kum/gatebridge/internal/loop"
)

// ControlEffort is the mean over ticks of the summed absolute command.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(r *loop.Record) {
	for _, val := range r.Commands {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// TrackingRMS is the root mean square of target minus position over every
// populated channel of every valid tick.
type TrackingRMS struct {
	name    string
	sumSq   float64
	samples int
}

func NewTrackingRMS() *TrackingRMS {
	return &TrackingRMS{name: "tracking_rms"}
}

func (t *TrackingRMS) Name() string { return t.name }

func (t *TrackingRMS) Observe(r *loop.Record) {
	if !r.Valid {
		return
	}
	for i, target := range r.Targets {
		e := target - r.Positions[i]
		t.sumSq += e * e
		t.samples++
	}
}

func (t *TrackingRMS) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TrackingRMS) Reset() {
	t.sumSq = 0
	t.samples = 0
}
