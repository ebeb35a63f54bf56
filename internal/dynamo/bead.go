package dynamo

import "gonum.org/v1/gonum/spatial/r3"

// BeadType holds the per-type constants shared by all beads of that type.
type BeadType struct {
	Name   string  `json:"name"`
	Mass   float64 `json:"mass"`
	Radius float64 `json:"radius"`
}

// Bead is a single coarse-grained particle. Force is the accumulator for the
// current evaluation and is zeroed before every force pass.
type Bead struct {
	ID      int    `json:"id"`
	Type    int    `json:"type"`
	Polymer int    `json:"polymer"`
	Pos     r3.Vec `json:"pos"`
	Vel     r3.Vec `json:"vel"`
	Force   r3.Vec `json:"force"`
	Frozen  bool   `json:"frozen,omitempty"`
	Visible bool   `json:"visible"`
}

// NewBead returns a visible, free bead not belonging to any polymer.
func NewBead(id, typ int, pos, vel r3.Vec) Bead {
	return Bead{ID: id, Type: typ, Polymer: -1, Pos: pos, Vel: vel, Visible: true}
}
