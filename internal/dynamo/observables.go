package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// KineticEnergy returns Σ ½ m v² over all beads.
func (s *State) KineticEnergy() float64 {
	ke := 0.0
	for i := range s.Beads {
		ke += 0.5 * s.BeadTypes[s.Beads[i].Type].Mass * r3.Norm2(s.Beads[i].Vel)
	}
	return ke
}

// FreeBeads counts the beads that are not frozen.
func (s *State) FreeBeads() int {
	n := 0
	for i := range s.Beads {
		if !s.Beads[i].Frozen {
			n++
		}
	}
	return n
}

// Temperature returns the kinetic temperature kT = 2 KE / (3 N) over free
// beads, in units where kB = 1.
func (s *State) Temperature() float64 {
	n := s.FreeBeads()
	if n == 0 {
		return 0
	}
	return 2 * s.KineticEnergy() / (3 * float64(n))
}

// Momentum returns the total linear momentum.
func (s *State) Momentum() r3.Vec {
	var p r3.Vec
	for i := range s.Beads {
		p = r3.Add(p, r3.Scale(s.BeadTypes[s.Beads[i].Type].Mass, s.Beads[i].Vel))
	}
	return p
}

// MaxSpeed returns the largest bead speed.
func (s *State) MaxSpeed() float64 {
	m := 0.0
	for i := range s.Beads {
		m = math.Max(m, r3.Norm(s.Beads[i].Vel))
	}
	return m
}
