package config

import (
	"sort"

	"github.com/san-kum/gatebridge/internal/control"
	"github.com/san-kum/gatebridge/internal/gate"
)

// Presets are complete scenarios keyed by plant model, then scenario name.
var Presets = map[string]map[string]*Config{
	"joints": {
		"hold": preset(func(c *Config) {
			c.Plant.Actuators = 2
			c.Gate.Script = []gate.Entry{
				{At: 0, Values: []float64{1, 2}, RefreshMs: 20, Until: 1980},
			}
		}),
		"handoff": preset(func(c *Config) {
			c.Plant.Actuators = 3
			c.Gate.Script = []gate.Entry{
				{At: 0, Values: []float64{0.5, -0.5, 1}, RefreshMs: 20, Until: 780},
				{At: 800, Values: []float64{-1, 1, 0}, RefreshMs: 20, Until: 1980},
			}
		}),
		"gate-loss": preset(func(c *Config) {
			c.Plant.Actuators = 2
			c.Gate.Script = []gate.Entry{
				{At: 100, Values: []float64{1, 2}, RefreshMs: 25, Until: 600},
				{At: 1200, Values: []float64{0, 0}, RefreshMs: 25, Until: 1975},
			}
		}),
		"overflow": preset(func(c *Config) {
			c.Plant.Actuators = 4
			c.Gate.Script = []gate.Entry{
				{At: 0, Values: []float64{1, 1, 1, 1, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}, RefreshMs: 40, Until: 1960},
			}
		}),
	},
	"chain": {
		"wave": preset(func(c *Config) {
			c.Plant.Model = "chain"
			c.Plant.Actuators = 5
			c.Gain(200, 40)
			c.Gate.Script = []gate.Entry{
				{At: 0, Values: []float64{0.2, 0, 0, 0, 0}, RefreshMs: 20, Until: 480},
				{At: 500, Values: []float64{0, 0, 0.2, 0, 0}, RefreshMs: 20, Until: 980},
				{At: 1000, Values: []float64{0, 0, 0, 0, 0.2}, RefreshMs: 20, Until: 1980},
			}
		}),
		"saturate": preset(func(c *Config) {
			c.Plant.Model = "chain"
			c.Plant.Actuators = 3
			c.Limits.Channels = []control.Bound{{Min: -50, Max: 50}, {Min: -100, Max: 100}, {Min: -10, Max: 200}}
			c.Gate.Script = []gate.Entry{
				{At: 0, Values: []float64{2, -2, 2}, RefreshMs: 20, Until: 1980},
			}
		}),
	},
}

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

// Gain sets both feedback gains.
func (c *Config) Gain(kp, kd float64) {
	c.Gains.Kp = kp
	c.Gains.Kd = kd
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListModels() []string {
	models := make([]string, 0, len(Presets))
	for m := range Presets {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Clone deep-copies the slices so presets are never mutated by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Limits.Channels = append([]control.Bound(nil), c.Limits.Channels...)
	out.Plant.InitPositions = append([]float64(nil), c.Plant.InitPositions...)
	out.Plant.Inertia = clonePtr(c.Plant.Inertia)
	out.Plant.Damping = clonePtr(c.Plant.Damping)
	out.Plant.Stiffness = clonePtr(c.Plant.Stiffness)
	out.Gate.Script = make([]gate.Entry, len(c.Gate.Script))
	for i, e := range c.Gate.Script {
		e.Values = append([]float64(nil), e.Values...)
		out.Gate.Script[i] = e
	}
	return &out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
