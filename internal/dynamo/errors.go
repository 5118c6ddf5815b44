package dynamo

import "errors"

// Domain errors for plant simulation.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the plant diverged during a step.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParam indicates SetParam was called with an unsupported name.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
