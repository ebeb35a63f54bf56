package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AllPeriodic marks every axis as periodic.
var AllPeriodic = [3]bool{true, true, true}

// Box is the simulation volume [0, L) on each axis.
type Box struct {
	L        r3.Vec
	Periodic [3]bool
}

// NewBox validates the side lengths and returns a box.
func NewBox(l r3.Vec, periodic [3]bool) (Box, error) {
	for axis := 0; axis < 3; axis++ {
		v := Component(l, axis)
		if !(v > 0) || math.IsInf(v, 0) {
			return Box{}, Configf("box length on axis %d must be positive and finite, got %g", axis, v)
		}
	}
	return Box{L: l, Periodic: periodic}, nil
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	return b.L.X * b.L.Y * b.L.Z
}

// Length returns the side length along axis 0, 1 or 2.
func (b Box) Length(axis int) float64 {
	return Component(b.L, axis)
}

// MinImage maps a raw separation onto its nearest periodic image.
func (b Box) MinImage(d r3.Vec) r3.Vec {
	if b.Periodic[0] {
		d.X -= b.L.X * math.Round(d.X/b.L.X)
	}
	if b.Periodic[1] {
		d.Y -= b.L.Y * math.Round(d.Y/b.L.Y)
	}
	if b.Periodic[2] {
		d.Z -= b.L.Z * math.Round(d.Z/b.L.Z)
	}
	return d
}

// Separation returns a - b under the minimum image convention.
func (b Box) Separation(a, c r3.Vec) r3.Vec {
	return b.MinImage(r3.Sub(a, c))
}

// Wrap translates p back into [0, L) on every periodic axis. Coordinates
// already inside the box are returned unchanged.
func (b Box) Wrap(p r3.Vec) r3.Vec {
	if b.Periodic[0] {
		p.X = wrap(p.X, b.L.X)
	}
	if b.Periodic[1] {
		p.Y = wrap(p.Y, b.L.Y)
	}
	if b.Periodic[2] {
		p.Z = wrap(p.Z, b.L.Z)
	}
	return p
}

// Contains reports whether p lies in [0, L) on every axis.
func (b Box) Contains(p r3.Vec) bool {
	return p.X >= 0 && p.X < b.L.X &&
		p.Y >= 0 && p.Y < b.L.Y &&
		p.Z >= 0 && p.Z < b.L.Z
}

func wrap(x, l float64) float64 {
	if x >= 0 && x < l {
		return x
	}
	x -= l * math.Floor(x/l)
	// x/l rounding can land exactly on l
	if x >= l {
		x -= l
	}
	if x < 0 {
		x = 0
	}
	return x
}

// Component returns the axis-th coordinate of v.
func Component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetComponent returns v with its axis-th coordinate replaced.
func SetComponent(v r3.Vec, axis int, x float64) r3.Vec {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
	return v
}

// IsFinite reports whether all components of v are finite.
func IsFinite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
