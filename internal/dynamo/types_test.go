package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Halves(t *testing.T) {
	s := State{1, 2, 3, 10, 20, 30}

	q := s.Positions()
	v := s.Velocities()
	if len(q) != 3 || len(v) != 3 {
		t.Fatalf("expected 3/3 split, got %d/%d", len(q), len(v))
	}
	if q[2] != 3 || v[0] != 10 {
		t.Errorf("unexpected split: q=%v v=%v", q, v)
	}

	v[1] = 99
	if s[4] != 99 {
		t.Error("Velocities should be a view over the state")
	}
}

func TestState_Norm(t *testing.T) {
	if got := (State{3, 4}).Norm(); math.Abs(got-5.0) > 1e-12 {
		t.Errorf("expected 5, got %v", got)
	}
}

func TestSimulationErrorUnwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.003, Wrapped: ErrUnstable}
	if !errors.Is(err, ErrUnstable) {
		t.Error("expected SimulationError to unwrap to ErrUnstable")
	}
	if err.Error() != ErrUnstable.Error() {
		t.Errorf("expected %q, got %q", ErrUnstable.Error(), err.Error())
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}
