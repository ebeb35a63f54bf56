package forces

import (
	"math"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// Charge turns a bead type into a charged type. Two charged beads closer than
// the cutoff repel with a screened force of the given strength whose decay
// length is Range. A zero Strength means uncharged.
type Charge struct {
	Strength float64 `json:"strength"`
	Range    float64 `json:"range"`
}

func (c Charge) Validate() error {
	if c.Strength < 0 || math.IsNaN(c.Strength) || math.IsInf(c.Strength, 0) {
		return dynamo.Configf("charge strength must be finite and >= 0, got %g", c.Strength)
	}
	if c.Strength > 0 && (!(c.Range > 0) || math.IsInf(c.Range, 0)) {
		return dynamo.Configf("charge range must be positive and finite, got %g", c.Range)
	}
	return nil
}

// combine mixes two type charges: geometric mean strength, mean range.
func combine(a, b Charge) Charge {
	if a.Strength == 0 || b.Strength == 0 {
		return Charge{}
	}
	return Charge{Strength: math.Sqrt(a.Strength * b.Strength), Range: (a.Range + b.Range) / 2}
}

// ScreenedForce returns the repulsive force magnitude and potential between
// two charged beads at distance r < rc:
//
//	F(r) = s e^(-r/λ) (1 - r/rc)
//	U(r) = s λ [λ e^(-rc/λ) / rc + e^(-r/λ) (1 - (r+λ)/rc)]
//
// U(rc) = 0 and F = -dU/dr. The force stays finite as r goes to 0.
func ScreenedForce(s, lambda, r, rc float64) (f, u float64) {
	e := math.Exp(-r / lambda)
	f = s * e * (1 - r/rc)
	u = s * lambda * (lambda*math.Exp(-rc/lambda)/rc + e*(1-(r+lambda)/rc))
	return f, u
}

// SetCharge charges bead type typ; the zero Charge removes it.
func (nb *NonBonded) SetCharge(typ int, c Charge) error {
	n := nb.Table.NumTypes()
	if typ < 0 || typ >= n {
		return dynamo.Configf("bead type %d outside %d types", typ, n)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if len(nb.charges) != n {
		nb.charges = make([]Charge, n)
		nb.screen = make([]Charge, n*n)
	}
	nb.charges[typ] = c
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			nb.screen[a*n+b] = combine(nb.charges[a], nb.charges[b])
		}
	}
	return nil
}

// Charges returns the charge of every bead type, or nil if none is charged.
func (nb *NonBonded) Charges() []Charge {
	for _, c := range nb.charges {
		if c.Strength > 0 {
			return append([]Charge(nil), nb.charges...)
		}
	}
	return nil
}
