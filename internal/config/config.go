package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gatebridge/internal/control"
	"github.com/san-kum/gatebridge/internal/gate"
	"github.com/san-kum/gatebridge/internal/setpoint"
	"github.com/san-kum/gatebridge/internal/watchdog"
)

const (
	DefaultTickPeriodMs = 1
	DefaultActuators    = 6
	DefaultDt           = 0.001
	DefaultTicks        = 2000
	DefaultDataDir      = "data"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Loop    LoopConfig    `yaml:"loop"`
	Gains   GainsConfig   `yaml:"gains"`
	Limits  LimitsConfig  `yaml:"limits"`
	Plant   PlantConfig   `yaml:"plant"`
	Gate    GateConfig    `yaml:"gate"`
	Run     RunConfig     `yaml:"run"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LoopConfig struct {
	TickPeriodMs      uint64 `yaml:"tick_period_ms"`
	WatchdogTimeoutMs uint64 `yaml:"watchdog_timeout_ms"`
	CPU               int    `yaml:"cpu"`
	LockOSThread      bool   `yaml:"lock_os_thread"`
}

type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Kd float64 `yaml:"kd"`
}

type LimitsConfig struct {
	Min      float64         `yaml:"min"`
	Max      float64         `yaml:"max"`
	Channels []control.Bound `yaml:"channels,omitempty"`
}

type PlantConfig struct {
	Model         string    `yaml:"model"`
	Actuators     int       `yaml:"actuators"`
	Integrator    string    `yaml:"integrator"`
	Dt            float64   `yaml:"dt"`
	// Model parameters left nil keep the model's defaults; an explicit 0 is
	// applied.
	Inertia       *float64  `yaml:"inertia,omitempty"`
	Damping       *float64  `yaml:"damping,omitempty"`
	Stiffness     *float64  `yaml:"stiffness,omitempty"`
	InitPositions []float64 `yaml:"init_positions,omitempty"`
}

type GateConfig struct {
	Script        []gate.Entry `yaml:"script,omitempty"`
	FeedFile      string       `yaml:"feed_file,omitempty"`
	FeedRefreshMs uint64       `yaml:"feed_refresh_ms,omitempty"`
}

type RunConfig struct {
	Ticks   uint64 `yaml:"ticks"`
	DataDir string `yaml:"data_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Loop: LoopConfig{
			TickPeriodMs:      DefaultTickPeriodMs,
			WatchdogTimeoutMs: watchdog.DefaultTimeoutMs,
			CPU:               -1,
			LockOSThread:      true,
		},
		Gains: GainsConfig{
			Kp: control.DefaultKp,
			Kd: control.DefaultKd,
		},
		Limits: LimitsConfig{
			Min: -control.DefaultLimit,
			Max: control.DefaultLimit,
		},
		Plant: PlantConfig{
			Model:      "joints",
			Actuators:  DefaultActuators,
			Integrator: "rk4",
			Dt:         DefaultDt,
		},
		Run: RunConfig{
			Ticks:   DefaultTicks,
			DataDir: DefaultDataDir,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate rejects configurations the bridge cannot run safely. A zero
// watchdog timeout is rejected rather than defaulted so the watchdog can
// never be configured away.
func (c *Config) Validate() error {
	if c.Loop.TickPeriodMs == 0 {
		return invalid("loop.tick_period_ms must be positive")
	}
	if c.Loop.WatchdogTimeoutMs == 0 {
		return invalid("loop.watchdog_timeout_ms must be positive")
	}
	if c.Loop.WatchdogTimeoutMs < c.Loop.TickPeriodMs {
		return invalid("loop.watchdog_timeout_ms %d shorter than tick period %d", c.Loop.WatchdogTimeoutMs, c.Loop.TickPeriodMs)
	}
	if c.Gains.Kp < 0 || c.Gains.Kd < 0 || !finite(c.Gains.Kp) || !finite(c.Gains.Kd) {
		return invalid("gains must be finite and non-negative")
	}
	if c.Plant.Actuators <= 0 || c.Plant.Actuators > setpoint.MaxChannels {
		return invalid("plant.actuators must be in 1..%d, got %d", setpoint.MaxChannels, c.Plant.Actuators)
	}
	if c.Plant.Dt <= 0 || !finite(c.Plant.Dt) {
		return invalid("plant.dt must be positive")
	}
	if len(c.Plant.InitPositions) > c.Plant.Actuators {
		return invalid("plant.init_positions has %d values for %d actuators", len(c.Plant.InitPositions), c.Plant.Actuators)
	}
	if len(c.Limits.Channels) > 0 && len(c.Limits.Channels) != c.Plant.Actuators {
		return invalid("limits.channels has %d entries for %d actuators", len(c.Limits.Channels), c.Plant.Actuators)
	}
	if _, err := c.BuildLimits(); err != nil {
		return invalid("limits: %v", err)
	}
	script := gate.Script{Entries: c.Gate.Script}
	if err := script.Validate(); err != nil {
		return invalid("gate.script: %v", err)
	}
	return nil
}

// BuildLimits returns per-channel overrides when given, uniform limits
// otherwise.
func (c *Config) BuildLimits() (*control.Limits, error) {
	if len(c.Limits.Channels) > 0 {
		return control.NewLimits(c.Limits.Channels)
	}
	return control.UniformLimits(c.Plant.Actuators, c.Limits.Min, c.Limits.Max)
}

func (c *Config) BuildLaw() (*control.Law, error) {
	pd, err := control.NewPD(c.Gains.Kp, c.Gains.Kd)
	if err != nil {
		return nil, err
	}
	limits, err := c.BuildLimits()
	if err != nil {
		return nil, err
	}
	return control.NewLaw(pd, limits), nil
}

// PlantParams lists the model parameters set explicitly in the config.
func (c *Config) PlantParams() map[string]float64 {
	params := make(map[string]float64)
	set := func(name string, v *float64) {
		if v != nil {
			params[name] = *v
		}
	}
	set("inertia", c.Plant.Inertia)
	set("damping", c.Plant.Damping)
	set("stiffness", c.Plant.Stiffness)
	return params
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SetParam sets one tunable value by name. Plant parameters are applied to
// the model when the bridge is built.
func (c *Config) SetParam(name string, v float64) error {
	switch name {
	case "kp":
		c.Gains.Kp = v
	case "kd":
		c.Gains.Kd = v
	case "inertia":
		c.Plant.Inertia = &v
	case "damping":
		c.Plant.Damping = &v
	case "stiffness":
		c.Plant.Stiffness = &v
	case "limit":
		c.Limits.Min, c.Limits.Max = -v, v
	case "watchdog_timeout_ms":
		if v < 0 || v != math.Trunc(v) {
			return invalid("watchdog_timeout_ms must be a whole number, got %v", v)
		}
		c.Loop.WatchdogTimeoutMs = uint64(v)
	default:
		return fmt.Errorf("unknown parameter: %s", name)
	}
	return nil
}
