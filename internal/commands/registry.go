// Package commands holds the scheduled runtime commands that reconfigure a
// running simulation: switching forces on and off, changing bond strengths,
// freezing bead types and ending the run.
package commands

import (
	"fmt"
	"slices"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/sim"
)

// Spec is the serialized form of a command as it appears in a run config.
type Spec struct {
	Name   string             `yaml:"name" toml:"name" json:"name"`
	At     int64              `yaml:"at" toml:"at" json:"at"`
	Target string             `yaml:"target,omitempty" toml:"target,omitempty" json:"target,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty" toml:"params,omitempty" json:"params,omitempty"`
}

func (s Spec) param(key string, def float64) float64 {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

// Command is a closed set of runtime mutations. Validate runs once against
// the initial state; Execute runs from the post-step hook of step At and
// only queues requests, which take effect at the next step.
type Command interface {
	Name() string
	At() int64
	Spec() Spec
	Validate(st *dynamo.State) error
	Execute(view *sim.View, ctl *sim.Control) error
}

// Factory builds a command from its spec, rejecting malformed parameters.
type Factory func(spec Spec) (Command, error)

// Registry maps command names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding every built-in command.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("gravity_on", newGravityOn)
	r.Register("gravity_off", newGravityOff)
	r.Register("constant_force", newConstantForce)
	r.Register("sine_force", newSineForce)
	r.Register("radial_force", newRadialForce)
	r.Register("planar_anchor", newPlanarAnchor)
	r.Register("set_bond_strength", newSetBondStrength)
	r.Register("toggle_thermostat", newToggleThermostat)
	r.Register("set_temperature", newSetTemperature)
	r.Register("charge_bead_type", newChargeBeadType)
	r.Register("freeze_type", newFreezeType)
	r.Register("set_sample_period", newSetSamplePeriod)
	r.Register("stop", newStop)

	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build creates the command described by spec.
func (r *Registry) Build(spec Spec) (Command, error) {
	fn, ok := r.factories[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command: %s", dynamo.ErrConfig, spec.Name)
	}
	if spec.At < 0 {
		return nil, dynamo.Configf("command %s scheduled at negative step %d", spec.Name, spec.At)
	}
	return fn(spec)
}

// BuildAll builds and validates every spec against st.
func (r *Registry) BuildAll(specs []Spec, st *dynamo.State) ([]Command, error) {
	cmds := make([]Command, 0, len(specs))
	for i, spec := range specs {
		c, err := r.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		if err := c.Validate(st); err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, spec.Name, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// Names lists the registered commands in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
