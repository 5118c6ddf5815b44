package dynamo

import (
	"fmt"
	"math"
)

// State is a plant state vector laid out as [q0..qn-1, v0..vn-1].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Positions returns the generalized coordinate half of the state.
func (s State) Positions() []float64 { return s[:len(s)/2] }

// Velocities returns the velocity half of the state.
func (s State) Velocities() []float64 { return s[len(s)/2:] }

// Control is the actuator command vector, one entry per actuator.
type Control []float64

// System is an actuated ODE dX/dt = f(X, u, t). Derive writes into dx so
// integrators can step without allocating.
type System interface {
	Derive(x State, u Control, t float64, dx State)
	StateDim() int
	ControlDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Integrator advances x by dt and writes the result into out. out must not
// alias x.
type Integrator interface {
	Step(sys System, x State, u Control, t, dt float64, out State)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
