package control

import (
	"fmt"
	"math"
)

// DefaultLimit is the symmetric actuator bound used when none is configured.
const DefaultLimit = 1000.0

// Bound is the closed command interval of one actuator.
type Bound struct {
	Min float64
	Max float64
}

// Limits holds one Bound per actuator channel.
type Limits struct {
	bounds []Bound
}

// UniformLimits applies the same [min, max] to n channels.
func UniformLimits(n int, min, max float64) (*Limits, error) {
	bounds := make([]Bound, n)
	for i := range bounds {
		bounds[i] = Bound{Min: min, Max: max}
	}
	return NewLimits(bounds)
}

// NewLimits validates per-channel bounds. Every bound must be finite, ordered
// and contain zero so that safe-stop is always representable.
func NewLimits(bounds []Bound) (*Limits, error) {
	for i, b := range bounds {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
			return nil, fmt.Errorf("channel %d: bounds must be finite, got [%v, %v]", i, b.Min, b.Max)
		}
		if b.Min > b.Max {
			return nil, fmt.Errorf("channel %d: min %v above max %v", i, b.Min, b.Max)
		}
		if b.Min > 0 || b.Max < 0 {
			return nil, fmt.Errorf("channel %d: bounds [%v, %v] exclude zero", i, b.Min, b.Max)
		}
	}
	cp := make([]Bound, len(bounds))
	copy(cp, bounds)
	return &Limits{bounds: cp}, nil
}

func (l *Limits) Len() int { return len(l.bounds) }

func (l *Limits) Bound(i int) Bound { return l.bounds[i] }

// Clamp saturates v to channel i. A non-finite command resolves to zero.
// The second result reports whether v was altered.
func (l *Limits) Clamp(i int, v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true
	}
	b := l.bounds[i]
	if v > b.Max {
		return b.Max, true
	}
	if v < b.Min {
		return b.Min, true
	}
	return v, false
}
