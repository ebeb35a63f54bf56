package forces

import (
	"fmt"
	"math"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// PairParams are the DPD coefficients for one bead-type pair.
type PairParams struct {
	Conservative float64 `json:"conservative" yaml:"conservative"`
	Dissipative  float64 `json:"dissipative" yaml:"dissipative"`
}

// PairTable is a symmetric bead-type x bead-type parameter matrix.
type PairTable struct {
	n      int
	params []PairParams
	set    []bool
}

func NewPairTable(numTypes int) *PairTable {
	return &PairTable{
		n:      numTypes,
		params: make([]PairParams, numTypes*numTypes),
		set:    make([]bool, numTypes*numTypes),
	}
}

// Set registers p for the unordered pair (a, b).
func (t *PairTable) Set(a, b int, p PairParams) error {
	if a < 0 || a >= t.n || b < 0 || b >= t.n {
		return dynamo.Configf("pair (%d, %d) outside %d bead types", a, b, t.n)
	}
	if p.Dissipative < 0 || math.IsNaN(p.Conservative) || math.IsNaN(p.Dissipative) {
		return dynamo.Configf("pair (%d, %d): dissipative coefficient must be >= 0", a, b)
	}
	t.params[a*t.n+b] = p
	t.params[b*t.n+a] = p
	t.set[a*t.n+b] = true
	t.set[b*t.n+a] = true
	return nil
}

// Get returns the parameters for (a, b). The table must have passed Validate.
func (t *PairTable) Get(a, b int) PairParams {
	return t.params[a*t.n+b]
}

// Has reports whether (a, b) was registered.
func (t *PairTable) Has(a, b int) bool {
	return t.set[a*t.n+b]
}

// NumTypes returns the number of bead types the table covers.
func (t *PairTable) NumTypes() int { return t.n }

// Validate fails with ErrUnknownPair if any type pair is missing.
func (t *PairTable) Validate() error {
	for a := 0; a < t.n; a++ {
		for b := a; b < t.n; b++ {
			if !t.set[a*t.n+b] {
				return fmt.Errorf("%w: types %d and %d", dynamo.ErrUnknownPair, a, b)
			}
		}
	}
	return nil
}

// Clone returns an independent copy.
func (t *PairTable) Clone() *PairTable {
	c := NewPairTable(t.n)
	copy(c.params, t.params)
	copy(c.set, t.set)
	return c
}
