package control

import "fmt"

const (
	DefaultKp = 500.0
	DefaultKd = 50.0
)

// PD is a proportional-derivative position law:
//
//	u = Kp*(target - q) - Kd*v
//
// The derivative acts on measured velocity, not on the error, so a step in
// the target does not kick the command.
type PD struct {
	Kp float64
	Kd float64
}

func NewPD(kp, kd float64) (PD, error) {
	if kp < 0 || kd < 0 {
		return PD{}, fmt.Errorf("gains must be non-negative, got kp=%v kd=%v", kp, kd)
	}
	return PD{Kp: kp, Kd: kd}, nil
}

func (p PD) Command(target, q, v float64) float64 {
	return p.Kp*(target-q) - p.Kd*v
}

// GetParams returns the gains for display.
func (p PD) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Kd": p.Kd,
	}
}
