package config

import (
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dpdsim/internal/commands"
	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/integrators"
	"github.com/san-kum/dpdsim/internal/sim"
)

const (
	DefaultBoxSide      = 10.0
	DefaultCutoff       = 1.0
	DefaultDt           = 0.02
	DefaultSteps        = 1000
	DefaultTemperature  = 1.0
	DefaultSamplePeriod = 10
	DefaultConservative = 25.0
	DefaultDissipative  = 4.5
	DefaultDensity      = 3.0
)

// Config is a complete run description. It is read from YAML or TOML.
type Config struct {
	Name             string              `yaml:"name" toml:"name"`
	Box              BoxConfig           `yaml:"box" toml:"box"`
	Cutoff           float64             `yaml:"cutoff" toml:"cutoff"`
	Dt               float64             `yaml:"dt" toml:"dt"`
	Steps            int64               `yaml:"steps" toml:"steps"`
	Temperature      float64             `yaml:"temperature" toml:"temperature"`
	Lambda           float64             `yaml:"lambda" toml:"lambda"`
	Seed             uint64              `yaml:"seed" toml:"seed"`
	Workers          int                 `yaml:"workers" toml:"workers"`
	Boundary         string              `yaml:"boundary" toml:"boundary"`
	ThermostatOff    bool                `yaml:"thermostat_off,omitempty" toml:"thermostat_off,omitempty"`
	SamplePeriod     int64               `yaml:"sample_period" toml:"sample_period"`
	CheckpointPeriod int64               `yaml:"checkpoint_period,omitempty" toml:"checkpoint_period,omitempty"`
	SkipInvariants   bool                `yaml:"skip_invariants,omitempty" toml:"skip_invariants,omitempty"`
	BeadTypes        []BeadTypeConfig    `yaml:"bead_types" toml:"bead_types"`
	Interactions     []InteractionConfig `yaml:"interactions" toml:"interactions"`
	Beads            []BeadConfig        `yaml:"beads,omitempty" toml:"beads,omitempty"`
	Solvent          []SolventConfig     `yaml:"solvent,omitempty" toml:"solvent,omitempty"`
	Polymers         []PolymerConfig     `yaml:"polymers,omitempty" toml:"polymers,omitempty"`
	Commands         []commands.Spec     `yaml:"commands,omitempty" toml:"commands,omitempty"`
}

// BoxConfig gives the side lengths. Walls lists the non-periodic axes by name.
type BoxConfig struct {
	X     float64  `yaml:"x" toml:"x"`
	Y     float64  `yaml:"y" toml:"y"`
	Z     float64  `yaml:"z" toml:"z"`
	Walls []string `yaml:"walls,omitempty" toml:"walls,omitempty"`
}

type BeadTypeConfig struct {
	Name   string  `yaml:"name" toml:"name"`
	Mass   float64 `yaml:"mass" toml:"mass"`
	Radius float64 `yaml:"radius" toml:"radius"`
}

// InteractionConfig sets the DPD parameters between two bead types.
type InteractionConfig struct {
	A            string  `yaml:"a" toml:"a"`
	B            string  `yaml:"b" toml:"b"`
	Conservative float64 `yaml:"conservative" toml:"conservative"`
	Dissipative  float64 `yaml:"dissipative" toml:"dissipative"`
}

// BeadConfig places one bead explicitly.
type BeadConfig struct {
	Type   string    `yaml:"type" toml:"type"`
	Pos    []float64 `yaml:"pos" toml:"pos"`
	Vel    []float64 `yaml:"vel,omitempty" toml:"vel,omitempty"`
	Frozen bool      `yaml:"frozen,omitempty" toml:"frozen,omitempty"`
}

// SolventConfig scatters Count free beads of Type uniformly in the box.
// Density > 0 overrides Count with density times the box volume.
type SolventConfig struct {
	Type    string  `yaml:"type" toml:"type"`
	Count   int     `yaml:"count,omitempty" toml:"count,omitempty"`
	Density float64 `yaml:"density,omitempty" toml:"density,omitempty"`
}

// PolymerConfig describes Count linear chains with the bead sequence Shape.
// Chains are bond type i, where i is the polymer's index in the config.
type PolymerConfig struct {
	Name      string   `yaml:"name" toml:"name"`
	Shape     []string `yaml:"shape" toml:"shape"`
	Count     int      `yaml:"count" toml:"count"`
	Spring    float64  `yaml:"spring" toml:"spring"`
	Length    float64  `yaml:"length" toml:"length"`
	MaxLength float64  `yaml:"max_length,omitempty" toml:"max_length,omitempty"`
	Modulus   float64  `yaml:"modulus,omitempty" toml:"modulus,omitempty"`
	Angle     float64  `yaml:"angle,omitempty" toml:"angle,omitempty"`
}

// NumBeads is the number of beads in one chain.
func (p PolymerConfig) NumBeads() int { return len(p.Shape) }

func DefaultConfig() *Config {
	return &Config{
		Name:         "water",
		Box:          BoxConfig{X: DefaultBoxSide, Y: DefaultBoxSide, Z: DefaultBoxSide},
		Cutoff:       DefaultCutoff,
		Dt:           DefaultDt,
		Steps:        DefaultSteps,
		Temperature:  DefaultTemperature,
		Lambda:       integrators.DefaultLambda,
		Seed:         1,
		Workers:      1,
		Boundary:     "periodic",
		SamplePeriod: DefaultSamplePeriod,
		BeadTypes:    []BeadTypeConfig{{Name: "W", Mass: 1, Radius: 0.5}},
		Interactions: []InteractionConfig{
			{A: "W", B: "W", Conservative: DefaultConservative, Dissipative: DefaultDissipative},
		},
		Solvent: []SolventConfig{{Type: "W", Density: DefaultDensity}},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
// List fields given in the file replace the default lists.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.BeadTypes, cfg.Interactions, cfg.Solvent = nil, nil, nil
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Periodicity returns the per-axis periodic flags.
func (b BoxConfig) Periodicity() [3]bool {
	p := dynamo.AllPeriodic
	for _, w := range b.Walls {
		switch strings.ToLower(w) {
		case "x":
			p[0] = false
		case "y":
			p[1] = false
		case "z":
			p[2] = false
		}
	}
	return p
}

// NewBox builds the simulation box.
func (b BoxConfig) NewBox() (dynamo.Box, error) {
	for _, w := range b.Walls {
		if !slices.Contains([]string{"x", "y", "z"}, strings.ToLower(w)) {
			return dynamo.Box{}, dynamo.Configf("unknown wall axis %q", w)
		}
	}
	return dynamo.NewBox(r3.Vec{X: b.X, Y: b.Y, Z: b.Z}, b.Periodicity())
}

// Validate checks the config for consistency without building the system.
func (c *Config) Validate() error {
	box, err := c.Box.NewBox()
	if err != nil {
		return err
	}
	if err := sim.CheckCutoff(box, c.Cutoff); err != nil {
		return err
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return dynamo.Configf("dt must be positive, got %g", c.Dt)
	}
	if c.Steps < 0 {
		return dynamo.Configf("steps must be >= 0, got %d", c.Steps)
	}
	if c.Temperature < 0 {
		return dynamo.Configf("temperature must be >= 0, got %g", c.Temperature)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return dynamo.Configf("lambda must be in [0, 1], got %g", c.Lambda)
	}
	if c.Workers < 0 {
		return dynamo.Configf("workers must be >= 0, got %d", c.Workers)
	}
	if c.SamplePeriod < 0 || c.CheckpointPeriod < 0 {
		return dynamo.Configf("sample and checkpoint periods must be >= 0")
	}
	if _, err := integrators.NewBoundary(c.Boundary); err != nil {
		return err
	}

	if len(c.BeadTypes) == 0 {
		return dynamo.Configf("no bead types declared")
	}
	types := make(map[string]bool, len(c.BeadTypes))
	for _, bt := range c.BeadTypes {
		if bt.Name == "" {
			return dynamo.Configf("bead type without a name")
		}
		if types[bt.Name] {
			return dynamo.Configf("duplicate bead type %q", bt.Name)
		}
		if !(bt.Mass > 0) {
			return dynamo.Configf("bead type %q: mass must be positive", bt.Name)
		}
		types[bt.Name] = true
	}
	known := func(name, where string) error {
		if !types[name] {
			return dynamo.Configf("%s: unknown bead type %q", where, name)
		}
		return nil
	}

	pairs := make(map[[2]string]bool)
	for i, in := range c.Interactions {
		where := fmt.Sprintf("interaction %d", i)
		if err := known(in.A, where); err != nil {
			return err
		}
		if err := known(in.B, where); err != nil {
			return err
		}
		if in.Dissipative < 0 {
			return dynamo.Configf("%s: negative dissipative coefficient", where)
		}
		pairs[[2]string{in.A, in.B}] = true
		pairs[[2]string{in.B, in.A}] = true
	}
	for _, a := range c.BeadTypes {
		for _, b := range c.BeadTypes {
			if !pairs[[2]string{a.Name, b.Name}] {
				return fmt.Errorf("%w: %s-%s", dynamo.ErrUnknownPair, a.Name, b.Name)
			}
		}
	}

	for i, b := range c.Beads {
		where := fmt.Sprintf("bead %d", i)
		if err := known(b.Type, where); err != nil {
			return err
		}
		if len(b.Pos) != 3 || (b.Vel != nil && len(b.Vel) != 3) {
			return dynamo.Configf("%s: position and velocity need three components", where)
		}
	}
	for i, s := range c.Solvent {
		if err := known(s.Type, fmt.Sprintf("solvent %d", i)); err != nil {
			return err
		}
		if s.Count < 0 || s.Density < 0 {
			return dynamo.Configf("solvent %d: negative count or density", i)
		}
	}
	for _, p := range c.Polymers {
		if len(p.Shape) == 0 {
			return dynamo.Configf("polymer %q has an empty shape", p.Name)
		}
		for _, t := range p.Shape {
			if err := known(t, fmt.Sprintf("polymer %q", p.Name)); err != nil {
				return err
			}
		}
		if p.Count < 0 || p.Spring < 0 || p.Length < 0 || p.Modulus < 0 {
			return dynamo.Configf("polymer %q: negative count or bond parameter", p.Name)
		}
		if p.MaxLength > 0 && p.MaxLength <= p.Length {
			return dynamo.Configf("polymer %q: max_length must exceed length", p.Name)
		}
	}

	reg := commands.NewRegistry()
	for i, spec := range c.Commands {
		if _, err := reg.Build(spec); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Box.Walls = slices.Clone(c.Box.Walls)
	out.BeadTypes = slices.Clone(c.BeadTypes)
	out.Interactions = slices.Clone(c.Interactions)
	out.Solvent = slices.Clone(c.Solvent)
	out.Beads = make([]BeadConfig, len(c.Beads))
	for i, b := range c.Beads {
		b.Pos = slices.Clone(b.Pos)
		b.Vel = slices.Clone(b.Vel)
		out.Beads[i] = b
	}
	out.Polymers = make([]PolymerConfig, len(c.Polymers))
	for i, p := range c.Polymers {
		p.Shape = slices.Clone(p.Shape)
		out.Polymers[i] = p
	}
	out.Commands = make([]commands.Spec, len(c.Commands))
	for i, s := range c.Commands {
		s.Params = maps.Clone(s.Params)
		out.Commands[i] = s
	}
	return &out
}
