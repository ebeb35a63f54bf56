package dynamo

import "math"

// State is the complete mutable system advanced by a simulator.
type State struct {
	Step      int64
	Time      float64
	Box       Box
	BeadTypes []BeadType
	Beads     []Bead
	Bonds     []Bond
	BondPairs []BondPair
	Polymers  []Polymer
}

// Validate checks that every reference is in range and every parameter is
// physically meaningful.
func (s *State) Validate() error {
	if len(s.BeadTypes) == 0 {
		return Configf("no bead types declared")
	}
	for i, bt := range s.BeadTypes {
		if !(bt.Mass > 0) {
			return Configf("bead type %q: mass must be positive, got %g", bt.Name, bt.Mass)
		}
		if bt.Radius < 0 {
			return Configf("bead type %q: negative radius %g", bt.Name, bt.Radius)
		}
		for j := 0; j < i; j++ {
			if s.BeadTypes[j].Name == bt.Name {
				return Configf("duplicate bead type %q", bt.Name)
			}
		}
	}

	for i := range s.Beads {
		b := &s.Beads[i]
		if b.ID != i {
			return Configf("bead %d has id %d; ids must equal arena index", i, b.ID)
		}
		if b.Type < 0 || b.Type >= len(s.BeadTypes) {
			return Configf("bead %d: unknown type %d", i, b.Type)
		}
		if !IsFinite(b.Pos) || !IsFinite(b.Vel) {
			return Configf("bead %d: non-finite position or velocity", i)
		}
	}

	n := len(s.Beads)
	for i, bd := range s.Bonds {
		if bd.I < 0 || bd.I >= n || bd.J < 0 || bd.J >= n || bd.I == bd.J {
			return Configf("bond %d references invalid beads (%d, %d)", i, bd.I, bd.J)
		}
		if bd.Spring < 0 || math.IsNaN(bd.Spring) {
			return Configf("bond %d: spring constant must be >= 0, got %g", i, bd.Spring)
		}
		if bd.Length < 0 {
			return Configf("bond %d: negative unstretched length %g", i, bd.Length)
		}
	}
	for i, bp := range s.BondPairs {
		if bp.I < 0 || bp.I >= n || bp.J < 0 || bp.J >= n || bp.K < 0 || bp.K >= n {
			return Configf("bond pair %d references invalid beads", i)
		}
		if bp.I == bp.J || bp.J == bp.K || bp.I == bp.K {
			return Configf("bond pair %d needs three distinct beads", i)
		}
		if bp.Modulus < 0 {
			return Configf("bond pair %d: bending modulus must be >= 0, got %g", i, bp.Modulus)
		}
	}
	for _, p := range s.Polymers {
		for _, idx := range p.Beads {
			if idx < 0 || idx >= n {
				return Configf("polymer %q references bead %d out of range", p.Name, idx)
			}
		}
	}
	return nil
}

// TypeIndex returns the index of the named bead type.
func (s *State) TypeIndex(name string) (int, bool) {
	for i, bt := range s.BeadTypes {
		if bt.Name == name {
			return i, true
		}
	}
	return -1, false
}

// BeadsOfType returns the indices of all beads of type typ in id order.
func (s *State) BeadsOfType(typ int) []int {
	out := make([]int, 0)
	for i := range s.Beads {
		if s.Beads[i].Type == typ {
			out = append(out, i)
		}
	}
	return out
}

// Mass returns the mass of bead i.
func (s *State) Mass(i int) float64 {
	return s.BeadTypes[s.Beads[i].Type].Mass
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.BeadTypes = append([]BeadType(nil), s.BeadTypes...)
	c.Beads = append([]Bead(nil), s.Beads...)
	c.Bonds = append([]Bond(nil), s.Bonds...)
	c.BondPairs = append([]BondPair(nil), s.BondPairs...)
	c.Polymers = make([]Polymer, len(s.Polymers))
	for i, p := range s.Polymers {
		p.Beads = append([]int(nil), p.Beads...)
		c.Polymers[i] = p
	}
	return &c
}
