package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
)

// GravityLabel names the body force managed by SetGravity.
const GravityLabel = "gravity"

// Control is the write side offered to collaborators. Every request is
// validated immediately and applied at the start of the next step, so forces
// already accumulated for the current step are never touched.
type Control struct {
	s *Simulator
}

func (c *Control) enqueue(apply func()) {
	c.s.pending = append(c.s.pending, apply)
}

// AddForce schedules an external force.
func (c *Control) AddForce(spec forces.Spec) error {
	if err := spec.Validate(len(c.s.state.Beads)); err != nil {
		return err
	}
	spec = spec.Clone()
	c.enqueue(func() {
		c.s.external = append(c.s.external, spec)
		c.s.forcesDirty = true
	})
	return nil
}

// RemoveForce drops every external force with the given label.
func (c *Control) RemoveForce(label string) {
	c.enqueue(func() {
		kept := c.s.external[:0]
		for _, f := range c.s.external {
			if f.Label != label {
				kept = append(kept, f)
			}
		}
		c.s.external = kept
		c.s.forcesDirty = true
	})
}

// SetGravity replaces the gravitational acceleration acting on every bead.
func (c *Control) SetGravity(g r3.Vec) error {
	if !dynamo.IsFinite(g) {
		return dynamo.Configf("non-finite gravity %v", g)
	}
	c.RemoveForce(GravityLabel)
	return c.AddForce(forces.Spec{Kind: forces.KindBody, Label: GravityLabel, Vector: g})
}

// ClearGravity removes the gravitational body force.
func (c *Control) ClearGravity() { c.RemoveForce(GravityLabel) }

// RuptureBond breaks bond i and the bending constraints that span it.
func (c *Control) RuptureBond(i int) error {
	if i < 0 || i >= len(c.s.state.Bonds) {
		return dynamo.Configf("bond %d out of range", i)
	}
	c.enqueue(func() {
		if c.s.state.Bonds[i].Active {
			c.s.ruptureBond(i)
		}
	})
	return nil
}

// AddBond creates a new active bond.
func (c *Control) AddBond(b dynamo.Bond) error {
	n := len(c.s.state.Beads)
	if b.I < 0 || b.I >= n || b.J < 0 || b.J >= n || b.I == b.J {
		return dynamo.Configf("bond references invalid beads (%d, %d)", b.I, b.J)
	}
	if b.Spring < 0 || b.Length < 0 || math.IsNaN(b.Spring) {
		return dynamo.Configf("bond needs non-negative spring constant and length")
	}
	b.Active = true
	c.enqueue(func() {
		c.s.state.Bonds = append(c.s.state.Bonds, b)
		c.s.forcesDirty = true
	})
	return nil
}

// SetBondStrength changes the spring constant and unstretched length of
// every bond of the given type. A negative length leaves lengths unchanged.
func (c *Control) SetBondStrength(bondType int, spring, length float64) error {
	if spring < 0 || math.IsNaN(spring) {
		return dynamo.Configf("spring constant must be >= 0, got %g", spring)
	}
	found := false
	for _, b := range c.s.state.Bonds {
		if b.Type == bondType {
			found = true
			break
		}
	}
	if !found {
		return dynamo.Configf("no bonds of type %d", bondType)
	}
	c.enqueue(func() {
		for i := range c.s.state.Bonds {
			b := &c.s.state.Bonds[i]
			if b.Type != bondType {
				continue
			}
			b.Spring = spring
			if length >= 0 {
				b.Length = length
			}
		}
		c.s.forcesDirty = true
	})
	return nil
}

// SetThermostat switches the dissipative and random pair forces.
func (c *Control) SetThermostat(on bool) {
	c.enqueue(func() {
		if c.s.pair.Thermostat != on {
			c.s.pair.Thermostat = on
			c.s.forcesDirty = true
		}
	})
}

// ToggleThermostat flips the thermostat when the request is applied, so
// toggles queued in the same step compose.
func (c *Control) ToggleThermostat() {
	c.enqueue(func() {
		c.s.pair.Thermostat = !c.s.pair.Thermostat
		c.s.forcesDirty = true
	})
}

// SetTemperature changes the thermostat temperature kT.
func (c *Control) SetTemperature(kT float64) error {
	if kT < 0 || math.IsNaN(kT) || math.IsInf(kT, 0) {
		return dynamo.Configf("temperature must be finite and >= 0, got %g", kT)
	}
	c.enqueue(func() {
		if c.s.pair.Temperature == kT {
			return
		}
		if err := c.s.pair.SetTemperature(kT); err == nil {
			c.s.forcesDirty = true
		}
	})
	return nil
}

// ChargeBeadType gives every bead of the named type the charge ch. The zero
// Charge neutralises the type.
func (c *Control) ChargeBeadType(name string, ch forces.Charge) error {
	typ, ok := c.s.state.TypeIndex(name)
	if !ok {
		return dynamo.Configf("unknown bead type %q", name)
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	c.enqueue(func() {
		if err := c.s.pair.SetCharge(typ, ch); err == nil {
			c.s.forcesDirty = true
		}
	})
	return nil
}

// FreezeType fixes or releases every bead of the named type.
func (c *Control) FreezeType(name string, frozen bool) error {
	typ, ok := c.s.state.TypeIndex(name)
	if !ok {
		return dynamo.Configf("unknown bead type %q", name)
	}
	c.enqueue(func() {
		for i := range c.s.state.Beads {
			b := &c.s.state.Beads[i]
			if b.Type == typ {
				b.Frozen = frozen
				if frozen {
					b.Vel = r3.Vec{}
				}
			}
		}
	})
	return nil
}

// SetSamplePeriod changes how often samples are recorded; 0 disables it.
func (c *Control) SetSamplePeriod(p int64) error {
	if p < 0 {
		return fmt.Errorf("%w: sample period %d", dynamo.ErrConfig, p)
	}
	c.enqueue(func() { c.s.samplePeriod = p })
	return nil
}

// Stop ends the run once the current step has completed.
func (c *Control) Stop() { c.s.stopped = true }
