package engine

import (
	"fmt"

	"github.com/san-kum/gatebridge/internal/dynamo"
)

// Engine is the physics collaborator consumed by the control loop. It owns
// the plant state, the command vector and simulation time, and advances by a
// fixed dt per Step.
//
// Engine is not safe for concurrent use; the control loop is its only caller.
type Engine struct {
	sys   dynamo.System
	integ dynamo.Integrator
	dt    float64

	x    dynamo.State
	next dynamo.State
	u    dynamo.Control
	t    float64
	step int
	x0   dynamo.State
}

func New(sys dynamo.System, integ dynamo.Integrator, dt float64) (*Engine, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %f", dt)
	}
	n := sys.StateDim()
	if n%2 != 0 || sys.ControlDim() > n/2 {
		return nil, fmt.Errorf("state dim %d, control dim %d: %w", n, sys.ControlDim(), dynamo.ErrDimensionMismatch)
	}

	return &Engine{
		sys:   sys,
		integ: integ,
		dt:    dt,
		x:     make(dynamo.State, n),
		next:  make(dynamo.State, n),
		u:     make(dynamo.Control, sys.ControlDim()),
		x0:    make(dynamo.State, n),
	}, nil
}

// SetInitialPositions sets the starting coordinates used by Reset and resets
// the engine. Missing entries are zero.
func (e *Engine) SetInitialPositions(q []float64) error {
	half := len(e.x0) / 2
	if len(q) > half {
		return fmt.Errorf("%d initial positions for %d coordinates: %w", len(q), half, dynamo.ErrDimensionMismatch)
	}
	for i := range e.x0 {
		e.x0[i] = 0
	}
	copy(e.x0, q)
	e.Reset()
	return nil
}

// Reset restores the initial state, zero commands and t = 0.
func (e *Engine) Reset() {
	copy(e.x, e.x0)
	for i := range e.u {
		e.u[i] = 0
	}
	e.t = 0
	e.step = 0
}

func (e *Engine) ActuatorCount() int { return len(e.u) }

// Positions returns a read-only view of the actuated coordinates.
func (e *Engine) Positions() []float64 { return e.x[:len(e.u)] }

// Velocities returns a read-only view of the actuated coordinate rates.
func (e *Engine) Velocities() []float64 {
	half := len(e.x) / 2
	return e.x[half : half+len(e.u)]
}

// Commands is the writable actuator command vector applied by the next Step.
func (e *Engine) Commands() []float64 { return e.u }

func (e *Engine) Time() float64 { return e.t }
func (e *Engine) Dt() float64   { return e.dt }

// State returns a copy of the full plant state.
func (e *Engine) State() dynamo.State { return e.x.Clone() }

// Step advances the plant by exactly one dt under the current commands. A
// step that would leave a non-finite state is discarded and reported.
func (e *Engine) Step() error {
	e.integ.Step(e.sys, e.x, e.u, e.t, e.dt, e.next)
	if !e.next.IsValid() {
		return &dynamo.SimulationError{Step: e.step, Time: e.t, State: e.x.Clone(), Wrapped: dynamo.ErrUnstable}
	}
	e.x, e.next = e.next, e.x
	e.t += e.dt
	e.step++
	return nil
}

// Energy returns the plant energy when the model is Hamiltonian.
func (e *Engine) Energy() (float64, bool) {
	h, ok := e.sys.(dynamo.Hamiltonian)
	if !ok {
		return 0, false
	}
	return h.Energy(e.x), true
}
