package commands

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/sim"
)

type base struct {
	spec Spec
}

func (b base) Name() string { return b.spec.Name }
func (b base) At() int64    { return b.spec.At }
func (b base) Spec() Spec   { return b.spec }

// Validate checks that the target bead type, if any, exists.
func (b base) Validate(st *dynamo.State) error {
	if b.spec.Target == "" {
		return nil
	}
	if _, ok := st.TypeIndex(b.spec.Target); !ok {
		return dynamo.Configf("unknown bead type %q", b.spec.Target)
	}
	return nil
}

func (b base) vec(x, y, z string) r3.Vec {
	return r3.Vec{X: b.spec.param(x, 0), Y: b.spec.param(y, 0), Z: b.spec.param(z, 0)}
}

func (b base) label() string {
	return fmt.Sprintf("%s@%d", b.spec.Name, b.spec.At)
}

// targetBeads resolves the target type to bead indices; nil means all beads.
func (b base) targetBeads(view *sim.View) ([]int, error) {
	if b.spec.Target == "" {
		return nil, nil
	}
	typ, ok := view.TypeIndex(b.spec.Target)
	if !ok {
		return nil, dynamo.Configf("unknown bead type %q", b.spec.Target)
	}
	var out []int
	for i, bd := range view.Beads() {
		if bd.Type == typ {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no beads of type %q", b.spec.Target)
	}
	return out, nil
}

func duration(spec Spec) (int64, error) {
	d := spec.param("duration", 0)
	if d < 0 || d != math.Trunc(d) {
		return 0, dynamo.Configf("%s: duration must be a whole number of steps >= 0, got %g", spec.Name, d)
	}
	return int64(d), nil
}

// forceCommand schedules an external force built at construction.
type forceCommand struct {
	base
	force forces.Spec
}

func newForceCommand(spec Spec, fs forces.Spec) (Command, error) {
	d, err := duration(spec)
	if err != nil {
		return nil, err
	}
	c := &forceCommand{base: base{spec: spec}}
	fs.Label = c.label()
	fs.Start = spec.At
	if d > 0 {
		fs.End = spec.At + d
	}
	if err := fs.Validate(0); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	c.force = fs
	return c, nil
}

func (c *forceCommand) Execute(view *sim.View, ctl *sim.Control) error {
	beads, err := c.targetBeads(view)
	if err != nil {
		return err
	}
	fs := c.force.Clone()
	fs.Beads = beads
	return ctl.AddForce(fs)
}

func newConstantForce(spec Spec) (Command, error) {
	b := base{spec: spec}
	return newForceCommand(spec, forces.Spec{Kind: forces.KindConstant, Vector: b.vec("x", "y", "z")})
}

func newSineForce(spec Spec) (Command, error) {
	b := base{spec: spec}
	return newForceCommand(spec, forces.Spec{
		Kind:      forces.KindSine,
		Vector:    b.vec("x", "y", "z"),
		Magnitude: spec.param("amplitude", 0),
		Period:    spec.param("period", 0),
	})
}

func newRadialForce(spec Spec) (Command, error) {
	b := base{spec: spec}
	return newForceCommand(spec, forces.Spec{
		Kind:      forces.KindRadial,
		Center:    b.vec("cx", "cy", "cz"),
		Vector:    b.vec("ax", "ay", "az"),
		Magnitude: spec.param("magnitude", 0),
	})
}

func newPlanarAnchor(spec Spec) (Command, error) {
	b := base{spec: spec}
	return newForceCommand(spec, forces.Spec{
		Kind:      forces.KindPlanarAnchor,
		Center:    b.vec("cx", "cy", "cz"),
		Vector:    b.vec("nx", "ny", "nz"),
		Magnitude: spec.param("k", 0),
	})
}

type gravityOn struct {
	base
	g r3.Vec
}

func newGravityOn(spec Spec) (Command, error) {
	c := &gravityOn{base: base{spec: spec}}
	c.g = c.vec("x", "y", "z")
	if r3.Norm2(c.g) == 0 || !dynamo.IsFinite(c.g) {
		return nil, dynamo.Configf("gravity_on needs a finite non-zero acceleration")
	}
	return c, nil
}

func (c *gravityOn) Execute(_ *sim.View, ctl *sim.Control) error {
	return ctl.SetGravity(c.g)
}

type gravityOff struct{ base }

func newGravityOff(spec Spec) (Command, error) { return &gravityOff{base{spec: spec}}, nil }

func (c *gravityOff) Execute(_ *sim.View, ctl *sim.Control) error {
	ctl.ClearGravity()
	return nil
}

type setBondStrength struct {
	base
	bondType       int
	spring, length float64
}

func newSetBondStrength(spec Spec) (Command, error) {
	bt := spec.param("bond_type", 0)
	if bt < 0 || bt != math.Trunc(bt) {
		return nil, dynamo.Configf("set_bond_strength: invalid bond type %g", bt)
	}
	spring, ok := spec.Params["spring"]
	if !ok || spring < 0 {
		return nil, dynamo.Configf("set_bond_strength needs a spring constant >= 0")
	}
	return &setBondStrength{
		base:     base{spec: spec},
		bondType: int(bt),
		spring:   spring,
		length:   spec.param("length", -1),
	}, nil
}

func (c *setBondStrength) Validate(st *dynamo.State) error {
	for _, b := range st.Bonds {
		if b.Type == c.bondType {
			return nil
		}
	}
	return dynamo.Configf("no bonds of type %d", c.bondType)
}

func (c *setBondStrength) Execute(_ *sim.View, ctl *sim.Control) error {
	return ctl.SetBondStrength(c.bondType, c.spring, c.length)
}

type toggleThermostat struct{ base }

func newToggleThermostat(spec Spec) (Command, error) { return &toggleThermostat{base{spec: spec}}, nil }

func (c *toggleThermostat) Execute(_ *sim.View, ctl *sim.Control) error {
	ctl.ToggleThermostat()
	return nil
}

type setTemperature struct {
	base
	kT float64
}

func newSetTemperature(spec Spec) (Command, error) {
	kT, ok := spec.Params["temperature"]
	if !ok || kT < 0 || math.IsNaN(kT) || math.IsInf(kT, 0) {
		return nil, dynamo.Configf("set_temperature needs a finite temperature >= 0")
	}
	return &setTemperature{base: base{spec: spec}, kT: kT}, nil
}

func (c *setTemperature) Execute(_ *sim.View, ctl *sim.Control) error {
	return ctl.SetTemperature(c.kT)
}

type chargeBeadType struct {
	base
	charge forces.Charge
}

func newChargeBeadType(spec Spec) (Command, error) {
	if spec.Target == "" {
		return nil, dynamo.Configf("charge_bead_type needs a target bead type")
	}
	ch := forces.Charge{Strength: spec.param("strength", 0), Range: spec.param("range", 0)}
	if err := ch.Validate(); err != nil {
		return nil, fmt.Errorf("charge_bead_type: %w", err)
	}
	return &chargeBeadType{base: base{spec: spec}, charge: ch}, nil
}

func (c *chargeBeadType) Execute(_ *sim.View, ctl *sim.Control) error {
	return ctl.ChargeBeadType(c.spec.Target, c.charge)
}

type freezeType struct {
	base
	frozen bool
}

func newFreezeType(spec Spec) (Command, error) {
	if spec.Target == "" {
		return nil, dynamo.Configf("freeze_type needs a target bead type")
	}
	return &freezeType{base: base{spec: spec}, frozen: spec.param("frozen", 1) != 0}, nil
}

func (c *freezeType) Execute(_ *sim.View, ctl *sim.Control) error {
	return ctl.FreezeType(c.spec.Target, c.frozen)
}

type setSamplePeriod struct {
	base
	period int64
}

func newSetSamplePeriod(spec Spec) (Command, error) {
	p, ok := spec.Params["period"]
	if !ok || p < 0 || p != math.Trunc(p) {
		return nil, dynamo.Configf("set_sample_period needs a whole period >= 0")
	}
	return &setSamplePeriod{base: base{spec: spec}, period: int64(p)}, nil
}

func (c *setSamplePeriod) Execute(_ *sim.View, ctl *sim.Control) error {
	return ctl.SetSamplePeriod(c.period)
}

type stop struct{ base }

func newStop(spec Spec) (Command, error) { return &stop{base{spec: spec}}, nil }

func (c *stop) Execute(_ *sim.View, ctl *sim.Control) error {
	ctl.Stop()
	return nil
}
