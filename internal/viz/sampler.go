package viz

import (
	"sync"

	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/setpoint"
)

const (
	historyCapacity = 600
	historyEvery    = 10
)

// Frame is what the dashboard renders: the latest tick plus counters.
type Frame struct {
	Tick         uint64
	Valid        bool
	Tripped      bool
	SetpointTick uint64
	Channels     int
	N            int
	Targets      [setpoint.MaxChannels]float64
	Positions    [setpoint.MaxChannels]float64
	Commands     [setpoint.MaxChannels]float64
	Saturated    int
	Faulted      bool
	Trips        uint64
	SafeStops    uint64
	Ticks        uint64
}

// Sampler is a loop observer that publishes frames to the UI goroutine. It
// never waits for the UI: when the UI holds the lock the tick is skipped.
type Sampler struct {
	mu      sync.Mutex
	frame   Frame
	history [setpoint.MaxChannels][historyCapacity]float64
	head    int
	filled  int

	// loop goroutine only
	trips, safeStops, ticks uint64
}

func NewSampler() *Sampler { return &Sampler{} }

func (s *Sampler) OnTick(r *loop.Record) {
	s.ticks++
	if r.Tripped {
		s.trips++
	}
	if !r.Valid {
		s.safeStops++
	}

	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()

	f := &s.frame
	f.Tick = r.Tick
	f.Valid = r.Valid
	f.Tripped = f.Tripped || r.Tripped
	f.SetpointTick = r.SetpointTick
	f.Channels = r.Channels
	f.N = len(r.Commands)
	f.Targets = [setpoint.MaxChannels]float64{}
	copy(f.Targets[:], r.Targets)
	copy(f.Positions[:], r.Positions)
	copy(f.Commands[:], r.Commands)
	f.Saturated = r.Saturated
	f.Faulted = r.Err != nil
	f.Trips = s.trips
	f.SafeStops = s.safeStops
	f.Ticks = s.ticks

	if r.Tick%historyEvery == 0 {
		for ch := 0; ch < f.N; ch++ {
			s.history[ch][s.head] = r.Commands[ch]
		}
		s.head = (s.head + 1) % historyCapacity
		if s.filled < historyCapacity {
			s.filled++
		}
	}
}

// Frame returns the latest frame and clears its sticky trip flag.
func (s *Sampler) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.frame
	s.frame.Tripped = false
	return f
}

// History returns channel ch's sampled commands, oldest first.
func (s *Sampler) History(ch int) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, s.filled)
	start := (s.head - s.filled + historyCapacity) % historyCapacity
	for i := range out {
		out[i] = s.history[ch][(start+i)%historyCapacity]
	}
	return out
}
