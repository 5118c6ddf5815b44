package metrics

import (
	"github.com/san-kum/gatebridge/internal/loop"
)

// Stability is the fraction of ticks whose plant step completed without
// error.
type Stability struct {
	name    string
	faults  int
	samples int
}

func NewStability() *Stability {
	return &Stability{
		name: "stability",
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(r *loop.Record) {
	s.samples++
	if r.Err != nil {
		s.faults++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.faults)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.faults = 0
	s.samples = 0
}
