package loop_test

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/san-kum/gatebridge/internal/control"
	"github.com/san-kum/gatebridge/internal/engine"
	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/setpoint"
	"github.com/san-kum/gatebridge/internal/watchdog"
)

type staleLog struct {
	mu     sync.Mutex
	events []watchdog.StaleEvent
}

func (s *staleLog) ReportStale(ev watchdog.StaleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *staleLog) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// zeroPlant never moves, so every command is kp times its target.
type zeroPlant struct{ q, v, u []float64 }

func newZeroPlant(n int) *zeroPlant {
	return &zeroPlant{q: make([]float64, n), v: make([]float64, n), u: make([]float64, n)}
}

func (p *zeroPlant) ActuatorCount() int    { return len(p.u) }
func (p *zeroPlant) Positions() []float64  { return p.q }
func (p *zeroPlant) Velocities() []float64 { return p.v }
func (p *zeroPlant) Commands() []float64   { return p.u }
func (p *zeroPlant) Step() error           { return nil }

// commandTrace keeps a copy of every tick's commands.
type commandTrace struct{ rows [][]float64 }

func (c *commandTrace) OnTick(r *loop.Record) {
	c.rows = append(c.rows, append([]float64(nil), r.Commands...))
}

type harness struct {
	store   *setpoint.Store
	adapter *setpoint.Adapter
	wd      *watchdog.Watchdog
	stale   *staleLog
	loop    *loop.Loop
}

func newHarness(plant loop.Plant, kp, kd, limit float64, timeoutMs uint64) *harness {
	n := plant.ActuatorCount()
	pd, err := control.NewPD(kp, kd)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	lim, err := control.UniformLimits(n, -limit, limit)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	h := &harness{store: setpoint.NewStore(), stale: &staleLog{}}
	h.wd, err = watchdog.New(timeoutMs, h.stale)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	h.adapter = setpoint.NewAdapter(h.store, min(n, setpoint.MaxChannels), nil)
	h.loop, err = loop.New(h.store, h.wd, control.NewLaw(pd, lim), plant, loop.DefaultConfig())
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return h
}

func newJointsEngine(n int) *engine.Engine {
	reg := engine.NewRegistry()
	sys, err := reg.GetModel("joints", n)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	integ, err := reg.GetIntegrator("rk4")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	e, err := engine.New(sys, integ, 0.001)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return e
}

var _ = ginkgo.Describe("Loop", func() {
	ginkgo.Describe("setpoint selection", func() {
		ginkgo.It("uses the latest non-stale setpoint", func() {
			h := newHarness(newZeroPlant(1), 1, 0, 100, 50)

			gomega.Expect(h.adapter.Submit([]float64{1}, 1, 10)).To(gomega.Succeed())
			gomega.Expect(h.loop.Tick(10).Commands).To(gomega.Equal([]float64{1}))

			gomega.Expect(h.adapter.Submit([]float64{2}, 1, 20)).To(gomega.Succeed())
			gomega.Expect(h.loop.Tick(20).Commands).To(gomega.Equal([]float64{2}))

			gomega.Expect(h.adapter.Submit([]float64{3}, 1, 15)).To(gomega.MatchError(setpoint.ErrOutOfOrder))
			gomega.Expect(h.loop.Tick(21).Commands).To(gomega.Equal([]float64{2}))
		})

		ginkgo.It("holds the setpoint right up to the timeout", func() {
			h := newHarness(newZeroPlant(1), 1, 0, 100, 50)
			gomega.Expect(h.adapter.Submit([]float64{7}, 1, 100)).To(gomega.Succeed())

			rec := h.loop.Tick(150)
			gomega.Expect(rec.Valid).To(gomega.BeTrue())
			gomega.Expect(rec.Commands).To(gomega.Equal([]float64{7}))
		})
	})

	ginkgo.Describe("watchdog", func() {
		ginkgo.It("reports exactly one fatal event and commands zero afterwards", func() {
			h := newHarness(newZeroPlant(2), 1, 0, 100, 50)
			gomega.Expect(h.adapter.Submit([]float64{4, 5}, 2, 0)).To(gomega.Succeed())

			for now := uint64(0); now <= 50; now++ {
				gomega.Expect(h.loop.Tick(now).Tripped).To(gomega.BeFalse())
			}
			gomega.Expect(h.loop.Tick(51).Tripped).To(gomega.BeTrue())
			for now := uint64(52); now < 300; now++ {
				rec := h.loop.Tick(now)
				gomega.Expect(rec.Commands).To(gomega.Equal([]float64{0, 0}))
				gomega.Expect(rec.Tripped).To(gomega.BeFalse())
			}

			gomega.Expect(h.stale.count()).To(gomega.Equal(1))
			gomega.Expect(h.wd.Trips()).To(gomega.Equal(uint64(1)))
		})

		ginkgo.It("resumes once a fresh setpoint arrives", func() {
			h := newHarness(newZeroPlant(1), 1, 0, 100, 50)
			gomega.Expect(h.adapter.Submit([]float64{1}, 1, 0)).To(gomega.Succeed())
			h.loop.Tick(60)

			gomega.Expect(h.adapter.Submit([]float64{9}, 1, 61)).To(gomega.Succeed())
			rec := h.loop.Tick(61)
			gomega.Expect(rec.Valid).To(gomega.BeTrue())
			gomega.Expect(rec.Commands).To(gomega.Equal([]float64{9}))
		})
	})

	ginkgo.Describe("oversized setpoints", func() {
		ginkgo.It("stores exactly sixteen values and never reads past the input", func() {
			h := newHarness(newZeroPlant(setpoint.MaxChannels), 1, 0, 1000, 50)
			values := make([]float64, 40)
			for i := range values {
				values[i] = float64(i + 1)
			}

			gomega.Expect(h.adapter.Submit(values, 40, 0)).To(gomega.Succeed())
			sp := h.store.Read()
			gomega.Expect(sp.Count).To(gomega.Equal(setpoint.MaxChannels))
			gomega.Expect(sp.Channels()).To(gomega.Equal(values[:setpoint.MaxChannels]))

			gomega.Expect(h.adapter.Submit(values[:3], 40, 1)).To(gomega.Succeed())
			gomega.Expect(h.store.Read().Count).To(gomega.Equal(3))
		})
	})

	ginkgo.Describe("concurrent submission", func() {
		ginkgo.It("never mixes two setpoints in one command vector", func() {
			const n = 8
			h := newHarness(newZeroPlant(n), 1, 0, 1e12, math.MaxUint32)

			var (
				clock atomic.Uint64
				stop  atomic.Bool
				wg    sync.WaitGroup
			)
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					values := make([]float64, n)
					for !stop.Load() {
						tick := clock.Add(1)
						id := float64(tick*4 + uint64(w))
						for i := range values {
							values[i] = id
						}
						_ = h.adapter.Submit(values, n, tick)
					}
				}(w)
			}

			for i := 0; i < 20000; i++ {
				rec := h.loop.Tick(clock.Load())
				if !rec.Valid {
					continue
				}
				for _, u := range rec.Commands[1:] {
					gomega.Expect(u).To(gomega.Equal(rec.Commands[0]))
				}
			}
			stop.Store(true)
			wg.Wait()
		})
	})

	ginkgo.Describe("determinism", func() {
		run := func() [][]float64 {
			h := newHarness(newJointsEngine(3), control.DefaultKp, control.DefaultKd, control.DefaultLimit, 50)
			trace := &commandTrace{}
			h.loop.AddObserver(trace)

			schedule := map[uint64][]float64{
				0:   {0.5, -0.5, 1},
				40:  {0.6, -0.4, 1.1},
				80:  {0.7, -0.3, 1.2},
				300: {0, 0, 0},
			}
			err := h.loop.Simulate(context.Background(), 0, 500, func(now uint64) {
				if v, ok := schedule[now]; ok {
					gomega.Expect(h.adapter.Submit(v, len(v), now)).To(gomega.Succeed())
				}
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			return trace.rows
		}

		ginkgo.It("produces bit-identical command traces across runs", func() {
			a, b := run(), run()
			gomega.Expect(a).To(gomega.HaveLen(500))
			for i := range a {
				for j := range a[i] {
					gomega.Expect(math.Float64bits(b[i][j])).To(gomega.Equal(math.Float64bits(a[i][j])), "tick %d channel %d", i, j)
				}
			}
		})

		ginkgo.It("falls to zero command while the gate is silent", func() {
			rows := run()
			gomega.Expect(rows[200]).To(gomega.Equal([]float64{0, 0, 0}))
			gomega.Expect(rows[299]).To(gomega.Equal([]float64{0, 0, 0}))
			gomega.Expect(rows[120]).NotTo(gomega.Equal([]float64{0, 0, 0}))
		})
	})

	ginkgo.Describe("wall-clock driving", func() {
		ginkgo.It("ticks until cancelled and leaves commands at zero", func() {
			plant := newZeroPlant(2)
			h := newHarness(plant, 1, 0, 100, math.MaxUint32)
			gomega.Expect(h.adapter.Submit([]float64{3, 3}, 2, 0)).To(gomega.Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- h.loop.Run(ctx, loop.NewMonotonicClock()) }()

			gomega.Eventually(h.loop.Ticks, time.Second, time.Millisecond).Should(gomega.BeNumerically(">", 10))
			gomega.Expect(h.loop.Simulate(ctx, 0, 1, nil)).To(gomega.MatchError(loop.ErrAlreadyRunning))

			cancel()
			gomega.Eventually(done, time.Second).Should(gomega.Receive(gomega.MatchError(context.Canceled)))
			gomega.Expect(plant.u).To(gomega.Equal([]float64{0, 0}))
		})
	})
})
