package integrators

import "github.com/san-kum/gatebridge/internal/dynamo"

// Verlet is velocity Verlet over a [q, v] state. The command is held
// constant across the step.
type Verlet struct {
	dx, dxNew dynamo.State
	scratch   dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) ensureScratch(n int) {
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
		v.dx = make(dynamo.State, n)
		v.dxNew = make(dynamo.State, n)
	}
}

func (v *Verlet) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64, out dynamo.State) {
	n := len(x)
	half := n / 2
	v.ensureScratch(n)

	sys.Derive(x, u, t, v.dx)
	dt2 := dt * dt

	for i := 0; i < half; i++ {
		out[i] = x[i] + x[half+i]*dt + 0.5*v.dx[half+i]*dt2
	}

	for i := 0; i < half; i++ {
		v.scratch[i] = out[i]
		v.scratch[half+i] = x[half+i]
	}

	sys.Derive(v.scratch, u, t+dt, v.dxNew)

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		out[half+i] = x[half+i] + (v.dx[half+i]+v.dxNew[half+i])*halfDt
	}
}

type Leapfrog struct {
	dx      dynamo.State
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64, out dynamo.State) {
	n := len(x)
	half := n / 2

	if len(l.scratch) != n {
		l.scratch = make(dynamo.State, n)
		l.dx = make(dynamo.State, n)
	}

	sys.Derive(x, u, t, l.dx)
	halfDt := dt * 0.5

	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + l.dx[half+i]*halfDt
	}

	for i := 0; i < half; i++ {
		out[i] = x[i] + l.scratch[half+i]*dt
		l.scratch[i] = out[i]
	}

	sys.Derive(l.scratch, u, t+dt, l.dx)

	for i := 0; i < half; i++ {
		out[half+i] = l.scratch[half+i] + l.dx[half+i]*halfDt
	}
}
