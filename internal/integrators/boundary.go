package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// Boundary restores the box invariant after a drift.
type Boundary interface {
	Name() string
	Apply(box dynamo.Box, beads []dynamo.Bead)
}

// Periodic wraps coordinates on periodic axes by whole box lengths and
// reflects off the walls of any non-periodic axis.
type Periodic struct{}

func (Periodic) Name() string { return "periodic" }

func (Periodic) Apply(box dynamo.Box, beads []dynamo.Bead) {
	for i := range beads {
		b := &beads[i]
		b.Pos = box.Wrap(b.Pos)
		for axis := 0; axis < 3; axis++ {
			if !box.Periodic[axis] {
				reflectAxis(box, b, axis)
			}
		}
	}
}

// Reflective treats every face of the box as a hard wall.
type Reflective struct{}

func (Reflective) Name() string { return "reflective" }

func (Reflective) Apply(box dynamo.Box, beads []dynamo.Bead) {
	for i := range beads {
		for axis := 0; axis < 3; axis++ {
			reflectAxis(box, &beads[i], axis)
		}
	}
}

func reflectAxis(box dynamo.Box, b *dynamo.Bead, axis int) {
	l := box.Length(axis)
	x := dynamo.Component(b.Pos, axis)
	if x >= 0 && x < l {
		return
	}
	if x < 0 {
		x = -x
	} else {
		x = 2*l - x
	}
	if x >= l {
		x = math.Nextafter(l, 0)
	}
	if x < 0 {
		x = 0
	}
	b.Pos = dynamo.SetComponent(b.Pos, axis, x)
	b.Vel = dynamo.SetComponent(b.Vel, axis, -dynamo.Component(b.Vel, axis))
}

var boundaries = map[string]func() Boundary{
	"periodic":   func() Boundary { return Periodic{} },
	"reflective": func() Boundary { return Reflective{} },
}

// NewBoundary returns the policy registered under name.
func NewBoundary(name string) (Boundary, error) {
	ctor, ok := boundaries[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown boundary: %s", dynamo.ErrConfig, name)
	}
	return ctor(), nil
}
