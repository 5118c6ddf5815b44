package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/gatebridge/internal/dynamo"
)

func TestJointsEquilibrium(t *testing.T) {
	j := NewJoints(3)
	x := make(dynamo.State, j.StateDim())
	dx := make(dynamo.State, j.StateDim())
	u := make(dynamo.Control, j.ControlDim())

	j.Derive(x, u, 0, dx)

	for i, v := range dx {
		if v != 0 {
			t.Errorf("dx[%d] should be 0 at rest, got %f", i, v)
		}
	}
}

func TestJointsTorque(t *testing.T) {
	j := NewJoints(2)
	if err := j.SetParam("inertia", 2.0); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}

	x := dynamo.State{0, 0, 0, 1.0}
	dx := make(dynamo.State, 4)
	j.Derive(x, dynamo.Control{4.0, 0}, 0, dx)

	if math.Abs(dx[2]-2.0) > 1e-12 {
		t.Errorf("expected accel 2.0 on joint 0, got %f", dx[2])
	}
	expected := -DefaultDamping * 1.0 / 2.0
	if math.Abs(dx[3]-expected) > 1e-12 {
		t.Errorf("expected accel %f on joint 1, got %f", expected, dx[3])
	}
	if dx[1] != 1.0 {
		t.Errorf("expected dq1 = v1 = 1.0, got %f", dx[1])
	}
}

func TestJointsShortCommandVector(t *testing.T) {
	j := NewJoints(3)
	x := make(dynamo.State, 6)
	dx := make(dynamo.State, 6)
	j.Derive(x, dynamo.Control{1.0}, 0, dx)

	if dx[3] != 1.0 || dx[4] != 0 || dx[5] != 0 {
		t.Errorf("missing commands should act as zero, got %v", dx[3:])
	}
}

func TestSetParamBounds(t *testing.T) {
	tests := []struct {
		name  string
		sys   dynamo.Configurable
		param string
		value float64
		want  error
	}{
		{"joints negative inertia", NewJoints(1), "inertia", -1, dynamo.ErrParameterBounds},
		{"joints unknown", NewJoints(1), "gravity", 9.81, dynamo.ErrUnknownParam},
		{"chain zero mass", NewChain(2), "mass", 0, dynamo.ErrParameterBounds},
		{"chain ok", NewChain(2), "k", 50, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sys.SetParam(tt.param, tt.value)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestChainCoupling(t *testing.T) {
	c := NewChain(3)
	x := dynamo.State{0, 1, 0, 0, 0, 0}
	dx := make(dynamo.State, 6)
	c.Derive(x, nil, 0, dx)

	if dx[3] <= 0 || dx[5] <= 0 {
		t.Errorf("neighbours should be pulled toward displaced mass, got %v", dx[3:])
	}
	if dx[4] >= 0 {
		t.Errorf("displaced mass should be pulled back, got %f", dx[4])
	}
}

func TestChainEnergyAtRest(t *testing.T) {
	c := NewChain(4)
	if e := c.Energy(make(dynamo.State, 8)); e != 0 {
		t.Errorf("expected zero energy at rest, got %f", e)
	}
}
