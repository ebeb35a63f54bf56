package config

import (
	"slices"

	"github.com/san-kum/dpdsim/internal/commands"
)

func base(name string, side float64) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Box = BoxConfig{X: side, Y: side, Z: side}
	return cfg
}

func twoTypes(cfg *Config, aWP float64) {
	cfg.BeadTypes = []BeadTypeConfig{
		{Name: "W", Mass: 1, Radius: 0.5},
		{Name: "P", Mass: 1, Radius: 0.5},
	}
	cfg.Interactions = []InteractionConfig{
		{A: "W", B: "W", Conservative: 25, Dissipative: 4.5},
		{A: "P", B: "P", Conservative: 25, Dissipative: 4.5},
		{A: "W", B: "P", Conservative: aWP, Dissipative: 4.5},
	}
}

// Presets holds ready-made systems grouped by family.
var Presets = map[string]map[string]*Config{
	"fluid": {
		"water": base("water", 8),
		"hot": func() *Config {
			cfg := base("hot", 8)
			cfg.Temperature = 2
			return cfg
		}(),
		"quench": func() *Config {
			cfg := base("quench", 8)
			cfg.Commands = []commands.Spec{
				{Name: "toggle_thermostat", At: 200},
			}
			return cfg
		}(),
	},
	"polymer": {
		"melt": func() *Config {
			cfg := base("melt", 8)
			twoTypes(cfg, 25)
			cfg.Polymers = []PolymerConfig{{
				Name: "chain", Shape: repeat("P", 8), Count: 40,
				Spring: 128, Length: 0.5,
			}}
			return cfg
		}(),
		"stiff": func() *Config {
			cfg := base("stiff", 8)
			twoTypes(cfg, 40)
			cfg.Polymers = []PolymerConfig{{
				Name: "rod", Shape: repeat("P", 6), Count: 30,
				Spring: 128, Length: 0.5, Modulus: 20,
			}}
			return cfg
		}(),
		"rupture": func() *Config {
			cfg := base("rupture", 8)
			twoTypes(cfg, 25)
			cfg.Polymers = []PolymerConfig{{
				Name: "chain", Shape: repeat("P", 10), Count: 10,
				Spring: 64, Length: 0.5, MaxLength: 1.2,
			}}
			cfg.Commands = []commands.Spec{
				{Name: "radial_force", At: 100, Target: "P", Params: map[string]float64{
					"cx": 4, "cy": 4, "cz": 4, "magnitude": 6, "duration": 300,
				}},
			}
			return cfg
		}(),
	},
	"walls": {
		"sediment": func() *Config {
			cfg := base("sediment", 8)
			cfg.Box.Walls = []string{"x", "y", "z"}
			cfg.Boundary = "reflective"
			twoTypes(cfg, 25)
			cfg.BeadTypes[1].Mass = 3
			cfg.Solvent = []SolventConfig{{Type: "W", Density: 2.7}, {Type: "P", Density: 0.3}}
			cfg.Commands = []commands.Spec{
				{Name: "gravity_on", Params: map[string]float64{"z": -0.5}},
				{Name: "freeze_type", At: 500, Target: "P"},
				{Name: "gravity_off", At: 800},
			}
			return cfg
		}(),
		"shear": func() *Config {
			cfg := base("shear", 8)
			cfg.Box.Walls = []string{"z"}
			cfg.Commands = []commands.Spec{
				{Name: "sine_force", Params: map[string]float64{"x": 1, "amplitude": 0.5, "period": 250}},
			}
			return cfg
		}(),
	},
}

func repeat(t string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(family, preset string) *Config {
	familyPresets, ok := Presets[family]
	if !ok {
		return nil
	}
	cfg, ok := familyPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(family string) []string {
	familyPresets, ok := Presets[family]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(familyPresets))
	for name := range familyPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Families lists the preset families in sorted order.
func Families() []string {
	out := make([]string, 0, len(Presets))
	for f := range Presets {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
