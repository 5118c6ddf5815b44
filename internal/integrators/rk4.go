package integrators

import "github.com/san-kum/gatebridge/internal/dynamo"

type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64, out dynamo.State) {
	n := len(x)
	r.ensureScratch(n)

	sys.Derive(x, u, t, r.k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	sys.Derive(r.scratch, u, t+dt*0.5, r.k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	sys.Derive(r.scratch, u, t+dt*0.5, r.k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	sys.Derive(r.scratch, u, t+dt, r.k4)

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		out[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
}
