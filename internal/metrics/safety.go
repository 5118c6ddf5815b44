package metrics

import "github.com/san-kum/gatebridge/internal/loop"

// SaturationRatio is the fraction of commands that hit a limit.
type SaturationRatio struct {
	saturated int
	commands  int
}

func NewSaturationRatio() *SaturationRatio { return &SaturationRatio{} }

func (s *SaturationRatio) Name() string { return "saturation_ratio" }

func (s *SaturationRatio) Observe(r *loop.Record) {
	s.saturated += r.Saturated
	s.commands += len(r.Commands)
}

func (s *SaturationRatio) Value() float64 {
	if s.commands == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.commands)
}

func (s *SaturationRatio) Reset() { *s = SaturationRatio{} }

// SafeStopRatio is the fraction of ticks commanded to zero because no
// fresh setpoint was available.
type SafeStopRatio struct {
	stopped int
	ticks   int
}

func NewSafeStopRatio() *SafeStopRatio { return &SafeStopRatio{} }

func (s *SafeStopRatio) Name() string { return "safe_stop_ratio" }

func (s *SafeStopRatio) Observe(r *loop.Record) {
	s.ticks++
	if !r.Valid {
		s.stopped++
	}
}

func (s *SafeStopRatio) Value() float64 {
	if s.ticks == 0 {
		return 0
	}
	return float64(s.stopped) / float64(s.ticks)
}

func (s *SafeStopRatio) Reset() { *s = SafeStopRatio{} }

type WatchdogTrips struct {
	trips int
}

func NewWatchdogTrips() *WatchdogTrips { return &WatchdogTrips{} }

func (w *WatchdogTrips) Name() string { return "watchdog_trips" }

func (w *WatchdogTrips) Observe(r *loop.Record) {
	if r.Tripped {
		w.trips++
	}
}

func (w *WatchdogTrips) Value() float64 { return float64(w.trips) }

func (w *WatchdogTrips) Reset() { w.trips = 0 }
