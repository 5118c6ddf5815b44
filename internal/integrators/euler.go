package integrators

import "github.com/san-kum/gatebridge/internal/dynamo"

type Euler struct {
	dx dynamo.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64, out dynamo.State) {
	if len(e.dx) != len(x) {
		e.dx = make(dynamo.State, len(x))
	}
	sys.Derive(x, u, t, e.dx)
	for i := range x {
		out[i] = x[i] + dt*e.dx[i]
	}
}
