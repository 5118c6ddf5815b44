package metrics

import (
	"sort"

	"github.com/san-kum/gatebridge/internal/loop"
)

// Metric accumulates one scalar over a run from the loop's tick records.
type Metric interface {
	Name() string
	Observe(r *loop.Record)
	Value() float64
	Reset()
}

// Set fans tick records out to a group of metrics. It is a loop.Observer and
// must only be read once the loop has stopped.
type Set struct {
	metrics []Metric
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

// Default returns the run metrics reported after every run.
func Default() *Set {
	return NewSet(
		NewControlEffort(),
		NewTrackingRMS(),
		NewSaturationRatio(),
		NewSafeStopRatio(),
		NewWatchdogTrips(),
		NewStability(),
	)
}

func (s *Set) OnTick(r *loop.Record) {
	for _, m := range s.metrics {
		m.Observe(r)
	}
}

func (s *Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names lists the metric names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.metrics))
	for _, m := range s.metrics {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

func (s *Set) Reset() {
	for _, m := range s.metrics {
		m.Reset()
	}
}
