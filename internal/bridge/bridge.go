package bridge

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/gatebridge/internal/config"
	"github.com/san-kum/gatebridge/internal/control"
	"github.com/san-kum/gatebridge/internal/dynamo"
	"github.com/san-kum/gatebridge/internal/engine"
	"github.com/san-kum/gatebridge/internal/loop"
	"github.com/san-kum/gatebridge/internal/rt"
	"github.com/san-kum/gatebridge/internal/setpoint"
	"github.com/san-kum/gatebridge/internal/watchdog"
)

// Options carries the collaborators that sit outside the control path.
// Every field is optional.
type Options struct {
	Logger    logr.Logger
	Stale     watchdog.Reporter
	Anomalies setpoint.AnomalyReporter
	OnOverrun func(rt.Overrun)
	OnTiming  func(time.Duration)
}

// Bridge is one fully wired instance: store, adapter, watchdog, law, plant
// and loop, built from a validated config.
type Bridge struct {
	Config   *config.Config
	Store    *setpoint.Store
	Adapter  *setpoint.Adapter
	Watchdog *watchdog.Watchdog
	Law      *control.Law
	Engine   *engine.Engine
	Loop     *loop.Loop
}

func New(cfg *config.Config, opts Options) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	law, err := cfg.BuildLaw()
	if err != nil {
		return nil, err
	}

	store := setpoint.NewStore()
	capacity := min(setpoint.MaxChannels, eng.ActuatorCount())
	adapter := setpoint.NewAdapter(store, capacity, opts.Anomalies)
	wd, err := watchdog.New(cfg.Loop.WatchdogTimeoutMs, opts.Stale)
	if err != nil {
		return nil, err
	}

	l, err := loop.New(store, wd, law, eng, loop.Config{
		Period:       time.Duration(cfg.Loop.TickPeriodMs) * time.Millisecond,
		CPU:          cfg.Loop.CPU,
		LockOSThread: cfg.Loop.LockOSThread,
		Logger:       opts.Logger,
		OnOverrun:    opts.OnOverrun,
		OnTiming:     opts.OnTiming,
	})
	if err != nil {
		return nil, err
	}

	return &Bridge{
		Config:   cfg,
		Store:    store,
		Adapter:  adapter,
		Watchdog: wd,
		Law:      law,
		Engine:   eng,
		Loop:     l,
	}, nil
}

func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	reg := engine.NewRegistry()

	sys, err := reg.GetModel(cfg.Plant.Model, cfg.Plant.Actuators)
	if err != nil {
		return nil, err
	}
	if err := applyParams(sys, cfg.PlantParams()); err != nil {
		return nil, err
	}

	integ, err := reg.GetIntegrator(cfg.Plant.Integrator)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(sys, integ, cfg.Plant.Dt)
	if err != nil {
		return nil, err
	}
	if len(cfg.Plant.InitPositions) > 0 {
		if err := eng.SetInitialPositions(cfg.Plant.InitPositions); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func applyParams(sys dynamo.System, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := sys.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("model does not accept parameters")
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.SetParam(name, params[name]); err != nil {
			return fmt.Errorf("plant parameter %s: %w", name, err)
		}
	}
	return nil
}
