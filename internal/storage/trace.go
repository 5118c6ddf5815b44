package storage

import (
	"github.com/san-kum/gatebridge/internal/loop"
)

// Row is one recorded tick. Targets is zero-padded to the channel count.
type Row struct {
	Tick       uint64
	Valid      bool
	Tripped    bool
	Count      int
	Targets    []float64
	Positions  []float64
	Velocities []float64
	Commands   []float64
}

type Trace struct {
	Channels int
	Rows     []Row
}

// Commands returns channel ch of every row, for plotting.
func (t *Trace) Commands(ch int) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Commands[ch]
	}
	return out
}

func (t *Trace) Positions(ch int) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Positions[ch]
	}
	return out
}

func (t *Trace) Targets(ch int) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Targets[ch]
	}
	return out
}

// Recorder is a loop observer that copies each tick into storage reserved
// up front. Ticks past the capacity are counted and not stored, so the tick
// path never allocates.
type Recorder struct {
	channels  int
	rows      []Row
	backing   []float64
	truncated uint64
}

func NewRecorder(channels, capacity int) *Recorder {
	return &Recorder{
		channels: channels,
		rows:     make([]Row, 0, capacity),
		backing:  make([]float64, 0, capacity*channels*4),
	}
}

func (r *Recorder) OnTick(rec *loop.Record) {
	if len(r.rows) == cap(r.rows) {
		r.truncated++
		return
	}
	n := r.channels
	start := len(r.backing)
	r.backing = r.backing[:start+4*n]
	buf := r.backing[start:]

	targets := buf[0:n:n]
	for i := range targets {
		targets[i] = 0
	}
	copy(targets, rec.Targets)

	row := Row{
		Tick:       rec.Tick,
		Valid:      rec.Valid,
		Tripped:    rec.Tripped,
		Count:      rec.Channels,
		Targets:    targets,
		Positions:  buf[n : 2*n : 2*n],
		Velocities: buf[2*n : 3*n : 3*n],
		Commands:   buf[3*n : 4*n : 4*n],
	}
	copy(row.Positions, rec.Positions)
	copy(row.Velocities, rec.Velocities)
	copy(row.Commands, rec.Commands)
	r.rows = append(r.rows, row)
}

// Truncated returns how many ticks did not fit.
func (r *Recorder) Truncated() uint64 { return r.truncated }

func (r *Recorder) Len() int { return len(r.rows) }

// Trace returns the rows recorded so far. The rows share the recorder's
// storage.
func (r *Recorder) Trace() *Trace {
	return &Trace{Channels: r.channels, Rows: r.rows}
}
