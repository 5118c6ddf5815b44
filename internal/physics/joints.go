package physics

import (
	"fmt"

	"github.com/san-kum/gatebridge/internal/dynamo"
)

const (
	DefaultInertia   = 1.0
	DefaultDamping   = 0.5
	DefaultStiffness = 0.0
)

// Joints is a bank of independent actuated joints, each a rotor with
// inertia, viscous damping and an optional return spring:
//
//	I*q'' = u - c*q' - k*q
//
// State: [q1..qN, v1..vN]. One actuator per joint.
type Joints struct {
	n         int
	inertia   float64
	damping   float64
	stiffness float64
}

func NewJoints(n int) *Joints {
	return &Joints{
		n:         n,
		inertia:   DefaultInertia,
		damping:   DefaultDamping,
		stiffness: DefaultStiffness,
	}
}

func (j *Joints) StateDim() int   { return j.n * 2 }
func (j *Joints) ControlDim() int { return j.n }

func (j *Joints) Derive(x dynamo.State, u dynamo.Control, _ float64, dx dynamo.State) {
	n := j.n
	for i := 0; i < n; i++ {
		q := x[i]
		v := x[n+i]

		torque := 0.0
		if i < len(u) {
			torque = u[i]
		}

		dx[i] = v
		dx[n+i] = (torque - j.damping*v - j.stiffness*q) / j.inertia
	}
}

// Energy is the kinetic plus spring energy of all joints.
func (j *Joints) Energy(x dynamo.State) float64 {
	n := j.n
	e := 0.0
	for i := 0; i < n; i++ {
		e += 0.5*j.inertia*x[n+i]*x[n+i] + 0.5*j.stiffness*x[i]*x[i]
	}
	return e
}

// GetParams implements dynamo.Configurable
func (j *Joints) GetParams() map[string]float64 {
	return map[string]float64{
		"inertia":   j.inertia,
		"damping":   j.damping,
		"stiffness": j.stiffness,
	}
}

// SetParam implements dynamo.Configurable
func (j *Joints) SetParam(name string, value float64) error {
	switch name {
	case "inertia":
		if value <= 0 {
			return fmt.Errorf("inertia %v: %w", value, dynamo.ErrParameterBounds)
		}
		j.inertia = value
	case "damping":
		if value < 0 {
			return fmt.Errorf("damping %v: %w", value, dynamo.ErrParameterBounds)
		}
		j.damping = value
	case "stiffness":
		if value < 0 {
			return fmt.Errorf("stiffness %v: %w", value, dynamo.ErrParameterBounds)
		}
		j.stiffness = value
	default:
		return fmt.Errorf("%q: %w", name, dynamo.ErrUnknownParam)
	}
	return nil
}
