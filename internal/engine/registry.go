package engine

import (
	"fmt"
	"sort"

	"github.com/san-kum/gatebridge/internal/dynamo"
	"github.com/san-kum/gatebridge/internal/integrators"
	"github.com/san-kum/gatebridge/internal/physics"
)

type Registry struct {
	models      map[string]func(actuators int) dynamo.System
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func(int) dynamo.System),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.models["joints"] = func(n int) dynamo.System { return physics.NewJoints(n) }
	r.models["chain"] = func(n int) dynamo.System { return physics.NewChain(n) }

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }
	r.integrators["leapfrog"] = func() dynamo.Integrator { return integrators.NewLeapfrog() }

	return r
}

func (r *Registry) GetModel(name string, actuators int) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	if actuators <= 0 {
		return nil, fmt.Errorf("actuator count must be positive, got %d", actuators)
	}
	return fn(actuators), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
