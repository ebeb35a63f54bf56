// Package dynamo provides the core data model of the DPD engine.
//
// The package defines the value types shared by every stage of a timestep:
//
//   - [Box]: simulation volume with per-axis periodicity and minimum image
//   - [Bead]: the simulated particle (position, velocity, force accumulator)
//   - [Bond]: Hookean spring between two beads
//   - [BondPair]: three-bead bending constraint built from two adjacent bonds
//   - [State]: the complete mutable system owned by a simulator
//
// Beads live in a flat arena ([State.Beads]); bonds, bond pairs and polymers
// refer to them by index and never own them.
//
// # Example
//
//	box, _ := dynamo.NewBox(r3.Vec{X: 10, Y: 10, Z: 10}, dynamo.AllPeriodic)
//	d := box.Separation(a.Pos, b.Pos) // minimum image
//
// # Thread Safety
//
// None of the types are safe for concurrent mutation. Parallel force
// evaluation writes into private buffers and merges them afterwards.
package dynamo
