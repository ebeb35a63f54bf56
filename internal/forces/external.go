package forces

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// Kind selects the shape of an external force.
type Kind string

const (
	// KindConstant adds Vector to every target bead.
	KindConstant Kind = "constant"
	// KindSine adds Magnitude·sin(2π(step-Start)/Period) along Vector.
	KindSine Kind = "sine"
	// KindRadial pushes beads away from Center with strength Magnitude. A
	// non-zero Vector restricts the push to the plane normal to it.
	KindRadial Kind = "radial"
	// KindPlanarAnchor pulls beads back onto the plane through Center with
	// normal Vector, with spring constant Magnitude.
	KindPlanarAnchor Kind = "planar_anchor"
	// KindBody applies mass·Vector, for example gravity.
	KindBody Kind = "body"
)

var kinds = map[Kind]bool{
	KindConstant:     true,
	KindSine:         true,
	KindRadial:       true,
	KindPlanarAnchor: true,
	KindBody:         true,
}

// Spec is an external force acting on a set of beads between two steps.
// Beads == nil targets every bead. End == 0 means the force never expires.
type Spec struct {
	Kind      Kind    `json:"kind"`
	Label     string  `json:"label,omitempty"`
	Beads     []int   `json:"beads,omitempty"`
	Vector    r3.Vec  `json:"vector"`
	Magnitude float64 `json:"magnitude,omitempty"`
	Period    float64 `json:"period,omitempty"`
	Center    r3.Vec  `json:"center"`
	Start     int64   `json:"start"`
	End       int64   `json:"end,omitempty"`
}

// Validate checks the force parameters against a system of n beads.
func (s *Spec) Validate(n int) error {
	if !kinds[s.Kind] {
		return dynamo.Configf("unknown force kind %q", s.Kind)
	}
	if s.Beads != nil && len(s.Beads) == 0 {
		return dynamo.Configf("force %q targets no beads", s.Label)
	}
	for _, i := range s.Beads {
		if i < 0 || i >= n {
			return dynamo.Configf("force %q targets bead %d out of range", s.Label, i)
		}
	}
	if s.End != 0 && s.End <= s.Start {
		return dynamo.Configf("force %q ends at %d before it starts at %d", s.Label, s.End, s.Start)
	}
	if !dynamo.IsFinite(s.Vector) || !dynamo.IsFinite(s.Center) || math.IsNaN(s.Magnitude) {
		return dynamo.Configf("force %q has non-finite parameters", s.Label)
	}
	switch s.Kind {
	case KindSine:
		if !(s.Period > 0) {
			return dynamo.Configf("sine force %q needs a positive period", s.Label)
		}
		if r3.Norm2(s.Vector) == 0 {
			return dynamo.Configf("sine force %q needs a direction", s.Label)
		}
	case KindPlanarAnchor:
		if r3.Norm2(s.Vector) == 0 {
			return dynamo.Configf("planar anchor %q needs a plane normal", s.Label)
		}
		if s.Magnitude < 0 {
			return dynamo.Configf("planar anchor %q: negative spring constant", s.Label)
		}
	}
	return nil
}

// Active reports whether the force applies at step.
func (s *Spec) Active(step int64) bool {
	return step >= s.Start && (s.End == 0 || step < s.End)
}

// Expired reports whether the force will never apply again.
func (s *Spec) Expired(step int64) bool {
	return s.End != 0 && step >= s.End
}

func (s *Spec) String() string {
	if s.Label != "" {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Label)
	}
	return string(s.Kind)
}

// Apply adds the force to the target beads of st at step. Frozen beads are
// skipped.
func (s *Spec) Apply(st *dynamo.State, step int64) {
	if !s.Active(step) {
		return
	}
	each := func(fn func(b *dynamo.Bead)) {
		if s.Beads == nil {
			for i := range st.Beads {
				if !st.Beads[i].Frozen {
					fn(&st.Beads[i])
				}
			}
			return
		}
		for _, i := range s.Beads {
			if !st.Beads[i].Frozen {
				fn(&st.Beads[i])
			}
		}
	}

	switch s.Kind {
	case KindConstant:
		each(func(b *dynamo.Bead) { b.Force = r3.Add(b.Force, s.Vector) })

	case KindSine:
		phase := 2 * math.Pi * float64(step-s.Start) / s.Period
		f := r3.Scale(s.Magnitude*math.Sin(phase), r3.Unit(s.Vector))
		each(func(b *dynamo.Bead) { b.Force = r3.Add(b.Force, f) })

	case KindRadial:
		var axis r3.Vec
		planar := r3.Norm2(s.Vector) > 0
		if planar {
			axis = r3.Unit(s.Vector)
		}
		each(func(b *dynamo.Bead) {
			d := st.Box.Separation(b.Pos, s.Center)
			if planar {
				d = r3.Sub(d, r3.Scale(r3.Dot(d, axis), axis))
			}
			if r := r3.Norm(d); r > 0 {
				b.Force = r3.Add(b.Force, r3.Scale(s.Magnitude/r, d))
			}
		})

	case KindPlanarAnchor:
		n := r3.Unit(s.Vector)
		each(func(b *dynamo.Bead) {
			h := r3.Dot(st.Box.Separation(b.Pos, s.Center), n)
			b.Force = r3.Add(b.Force, r3.Scale(-s.Magnitude*h, n))
		})

	case KindBody:
		each(func(b *dynamo.Bead) {
			m := st.BeadTypes[b.Type].Mass
			b.Force = r3.Add(b.Force, r3.Scale(m, s.Vector))
		})
	}
}

// Clone returns a copy with its own bead list.
func (s *Spec) Clone() Spec {
	c := *s
	if s.Beads != nil {
		c.Beads = append([]int(nil), s.Beads...)
	}
	return c
}
