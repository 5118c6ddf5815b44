package loop

import "time"

// Plant is the physics collaborator driven by the loop. The loop reads
// positions and velocities, writes commands, and calls Step once per tick.
type Plant interface {
	ActuatorCount() int
	Positions() []float64
	Velocities() []float64
	Commands() []float64
	Step() error
}

// Clock yields the monotonic control time in milliseconds.
type Clock interface {
	NowMs() uint64
}

// MonotonicClock counts milliseconds since it was created.
type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) NowMs() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}

// Record describes one completed tick. Slices are views into loop-owned
// buffers and are only valid for the duration of an OnTick call.
type Record struct {
	Tick         uint64
	Valid        bool // a fresh setpoint drove the commands
	Tripped      bool // the watchdog fired on this tick
	SetpointTick uint64
	Channels     int
	Targets      []float64
	Positions    []float64 // measured before the step
	Velocities   []float64 // measured before the step
	Commands     []float64
	Saturated    int
	Err          error // plant step failure or recovered panic
}

// Observer is called synchronously on the loop goroutine after every tick.
// Implementations must not block.
type Observer interface {
	OnTick(r *Record)
}

// Hook runs on the loop goroutine before the tick at now. Simulate uses it
// to deliver governance submissions on virtual time.
type Hook func(now uint64)
