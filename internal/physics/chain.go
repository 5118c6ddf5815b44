package physics

import (
	"fmt"

	"github.com/san-kum/gatebridge/internal/dynamo"
)

// Chain is a line of masses connected by springs, fixed to walls at both
// ends, with an actuator pushing on every mass.
// State: [x1..xN, v1..vN] where x is displacement from rest.
type Chain struct {
	n       int
	k       float64 // spring constant
	m       float64 // mass of each particle
	damping float64
}

func NewChain(n int) *Chain {
	return &Chain{
		n:       n,
		k:       100.0,
		m:       DefaultInertia,
		damping: DefaultDamping,
	}
}

func (c *Chain) StateDim() int   { return c.n * 2 }
func (c *Chain) ControlDim() int { return c.n }

func (c *Chain) Derive(x dynamo.State, u dynamo.Control, _ float64, dx dynamo.State) {
	n := c.n
	for i := 0; i < n; i++ {
		xi := x[i]
		v := x[n+i]

		var force float64

		// left neighbour or wall
		if i > 0 {
			force += c.k * (x[i-1] - xi)
		} else {
			force += c.k * (0 - xi)
		}

		// right neighbour or wall
		if i < n-1 {
			force += c.k * (x[i+1] - xi)
		} else {
			force += c.k * (0 - xi)
		}

		force -= c.damping * v
		if i < len(u) {
			force += u[i]
		}

		dx[i] = v
		dx[n+i] = force / c.m
	}
}

func (c *Chain) Energy(x dynamo.State) float64 {
	n := c.n
	e := 0.0
	prev := 0.0
	for i := 0; i < n; i++ {
		e += 0.5 * c.m * x[n+i] * x[n+i]
		d := x[i] - prev
		e += 0.5 * c.k * d * d
		prev = x[i]
	}
	e += 0.5 * c.k * prev * prev
	return e
}

// GetParams implements dynamo.Configurable
func (c *Chain) GetParams() map[string]float64 {
	return map[string]float64{
		"k":       c.k,
		"mass":    c.m,
		"damping": c.damping,
	}
}

// SetParam implements dynamo.Configurable
func (c *Chain) SetParam(name string, value float64) error {
	switch name {
	case "k":
		if value < 0 {
			return fmt.Errorf("k %v: %w", value, dynamo.ErrParameterBounds)
		}
		c.k = value
	case "mass", "inertia":
		if value <= 0 {
			return fmt.Errorf("mass %v: %w", value, dynamo.ErrParameterBounds)
		}
		c.m = value
	case "damping":
		if value < 0 {
			return fmt.Errorf("damping %v: %w", value, dynamo.ErrParameterBounds)
		}
		c.damping = value
	case "stiffness":
		return c.SetParam("k", value)
	default:
		return fmt.Errorf("%q: %w", name, dynamo.ErrUnknownParam)
	}
	return nil
}
