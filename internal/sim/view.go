package sim

import (
	"iter"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// View is read-only access to the simulator state for collaborators.
type View struct {
	s *Simulator
}

func (v *View) Step() int64          { return v.s.state.Step }
func (v *View) Time() float64        { return v.s.state.Time }
func (v *View) Box() dynamo.Box      { return v.s.state.Box }
func (v *View) NumBeads() int        { return len(v.s.state.Beads) }
func (v *View) NumBonds() int        { return len(v.s.state.Bonds) }
func (v *View) Energies() Energies   { return v.s.energy }
func (v *View) Thermostat() bool     { return v.s.pair.Thermostat }
func (v *View) Temperature() float64 { return v.s.pair.Temperature }
func (v *View) SamplePeriod() int64  { return v.s.samplePeriod }

// Bead returns a copy of bead i.
func (v *View) Bead(i int) dynamo.Bead { return v.s.state.Beads[i] }

// Bond returns a copy of bond i.
func (v *View) Bond(i int) dynamo.Bond { return v.s.state.Bonds[i] }

func (v *View) TypeIndex(name string) (int, bool) { return v.s.state.TypeIndex(name) }

// Beads iterates over copies of all beads.
func (v *View) Beads() iter.Seq2[int, dynamo.Bead] {
	return func(yield func(int, dynamo.Bead) bool) {
		for i, b := range v.s.state.Beads {
			if !yield(i, b) {
				return
			}
		}
	}
}

// Sample computes the observables of the current state.
func (v *View) Sample() Sample { return v.s.sample() }

// BeadSnapshot is the exported per-bead record of a snapshot.
type BeadSnapshot struct {
	ID   int
	Type int
	Pos  r3.Vec
	Vel  r3.Vec
}

// Snapshot iterates over the current position, velocity and type of every
// bead in id order. It must not be held across a call to Step.
func (s *Simulator) Snapshot() iter.Seq[BeadSnapshot] {
	return func(yield func(BeadSnapshot) bool) {
		for _, b := range s.state.Beads {
			if !yield(BeadSnapshot{ID: b.ID, Type: b.Type, Pos: b.Pos, Vel: b.Vel}) {
				return
			}
		}
	}
}
