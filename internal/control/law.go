package control

import "fmt"

// Law turns targets and measured state into bounded actuator commands. It is
// immutable after construction and holds no per-tick state, so identical
// inputs always give identical commands.
type Law struct {
	pd     PD
	limits *Limits
}

func NewLaw(pd PD, limits *Limits) *Law {
	return &Law{pd: pd, limits: limits}
}

func (l *Law) Gains() PD       { return l.pd }
func (l *Law) Limits() *Limits { return l.limits }

// Compute writes one command per entry of out. Channels with a target get
// the PD command; channels past len(targets) get zero. Every command is
// saturated. It returns how many commands were clamped.
//
// q, v and out must be at least as long as the limits; targets may be
// shorter.
func (l *Law) Compute(targets, q, v, out []float64) int {
	saturated := 0
	for i := range out {
		u := 0.0
		if i < len(targets) {
			u = l.pd.Command(targets[i], q[i], v[i])
		}
		var hit bool
		out[i], hit = l.limits.Clamp(i, u)
		if hit {
			saturated++
		}
	}
	return saturated
}

// Zero writes the safe-stop command into out.
func (l *Law) Zero(out []float64) {
	for i := range out {
		out[i] = 0
	}
}

// Validate checks the law covers n actuators.
func (l *Law) Validate(n int) error {
	if l.limits.Len() < n {
		return fmt.Errorf("limits cover %d channels, plant has %d actuators", l.limits.Len(), n)
	}
	return nil
}
