package storage

import (
	"fmt"
	"math"
)

// Divergence locates the first command that differs between two traces.
type Divergence struct {
	Row     int
	Tick    uint64
	Channel int
	A, B    float64
}

func (d *Divergence) String() string {
	return fmt.Sprintf("row %d (tick %d) channel %d: %v != %v", d.Row, d.Tick, d.Channel, d.A, d.B)
}

// Compare walks both traces and returns the first command pair further apart
// than tol, or nil when the traces agree. A tol of zero demands bit-identical
// commands.
func Compare(a, b *Trace, tol float64) (*Divergence, error) {
	if a.Channels != b.Channels {
		return nil, fmt.Errorf("channel count differs: %d vs %d", a.Channels, b.Channels)
	}
	if len(a.Rows) != len(b.Rows) {
		return nil, fmt.Errorf("row count differs: %d vs %d", len(a.Rows), len(b.Rows))
	}
	for i := range a.Rows {
		ra, rb := &a.Rows[i], &b.Rows[i]
		if ra.Tick != rb.Tick {
			return nil, fmt.Errorf("row %d: tick differs: %d vs %d", i, ra.Tick, rb.Tick)
		}
		for ch := range ra.Commands {
			x, y := ra.Commands[ch], rb.Commands[ch]
			if !equal(x, y, tol) {
				return &Divergence{Row: i, Tick: ra.Tick, Channel: ch, A: x, B: y}, nil
			}
		}
	}
	return nil, nil
}

func equal(x, y, tol float64) bool {
	if tol == 0 {
		return math.Float64bits(x) == math.Float64bits(y)
	}
	return math.Abs(x-y) <= tol
}
