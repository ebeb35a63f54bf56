// Package forces accumulates the non-bonded DPD, bonded and external forces
// acting on each bead.
package forces

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/grid"
)

// NonBonded evaluates the Groot-Warren DPD pair force
//
//	F = [a w(r) - γ w(r)² (r̂·v) + σ w(r) θ / √dt] r̂,  w(r) = 1 - r/rc
//
// over every interacting pair reported by a cell grid.
type NonBonded struct {
	Table       *PairTable
	Cutoff      float64
	Temperature float64
	Dt          float64
	// Thermostat enables the dissipative and random terms.
	Thermostat bool
	Workers    int

	pool  *BufferPool
	sigma []float64

	// charges per bead type and the mixed value per type pair
	charges []Charge
	screen  []Charge
}

func NewNonBonded(table *PairTable, cutoff, kT, dt float64, workers int) (*NonBonded, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if !(cutoff > 0) {
		return nil, dynamo.Configf("cutoff radius must be positive, got %g", cutoff)
	}
	if !(dt > 0) {
		return nil, dynamo.Configf("timestep must be positive, got %g", dt)
	}
	if kT < 0 || math.IsNaN(kT) {
		return nil, dynamo.Configf("temperature must be >= 0, got %g", kT)
	}
	if workers < 1 {
		workers = 1
	}
	nb := &NonBonded{
		Table:       table,
		Cutoff:      cutoff,
		Temperature: kT,
		Dt:          dt,
		Thermostat:  true,
		Workers:     workers,
	}
	nb.refreshSigma()
	return nb, nil
}

func (nb *NonBonded) refreshSigma() {
	n := nb.Table.NumTypes()
	if len(nb.sigma) != n*n {
		nb.sigma = make([]float64, n*n)
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			nb.sigma[a*n+b] = NoiseAmplitude(nb.Table.Get(a, b).Dissipative, nb.Temperature)
		}
	}
}

// SetTemperature changes kT and the derived noise amplitudes.
func (nb *NonBonded) SetTemperature(kT float64) error {
	if kT < 0 || math.IsNaN(kT) || math.IsInf(kT, 0) {
		return dynamo.Configf("temperature must be finite and >= 0, got %g", kT)
	}
	nb.Temperature = kT
	nb.refreshSigma()
	return nil
}

// Compute adds the pair forces into st.Beads[i].Force and returns the total
// conservative potential energy. vel supplies the velocities used by the
// dissipative term; nil means the beads' own velocities. key seeds the pair
// noise for this evaluation.
func (nb *NonBonded) Compute(g *grid.Grid, st *dynamo.State, vel []r3.Vec, key uint64) float64 {
	n := len(st.Beads)
	if vel == nil {
		vel = make([]r3.Vec, n)
		for i := range st.Beads {
			vel[i] = st.Beads[i].Vel
		}
	}

	chunks := dynamo.Chunks(g.NumCells(), nb.Workers)
	if chunks == 1 {
		return nb.computeRange(g, st, vel, key, 0, g.NumCells(), func(i int, f r3.Vec) {
			st.Beads[i].Force = r3.Add(st.Beads[i].Force, f)
		})
	}

	if nb.pool == nil || nb.pool.Size() != n {
		nb.pool = NewBufferPool(n)
	}
	bufs := make([][]r3.Vec, chunks)
	energies := make([]float64, chunks)

	dynamo.ParallelFor(g.NumCells(), nb.Workers, func(worker, start, end int) {
		buf := nb.pool.Get()
		bufs[worker] = buf
		energies[worker] = nb.computeRange(g, st, vel, key, start, end, func(i int, f r3.Vec) {
			buf[i] = r3.Add(buf[i], f)
		})
	})

	// merge in worker order so the sum is reproducible
	energy := 0.0
	for w := 0; w < chunks; w++ {
		buf := bufs[w]
		for i := range st.Beads {
			st.Beads[i].Force = r3.Add(st.Beads[i].Force, buf[i])
		}
		energy += energies[w]
		nb.pool.Put(buf)
	}
	return energy
}

func (nb *NonBonded) computeRange(g *grid.Grid, st *dynamo.State, vel []r3.Vec, key uint64, start, end int, add func(int, r3.Vec)) float64 {
	box := st.Box
	beads := st.Beads
	rc := nb.Cutoff
	rc2 := rc * rc
	invRc := 1 / rc
	invSqrtDt := 1 / math.Sqrt(nb.Dt)
	nt := nb.Table.NumTypes()
	thermostat := nb.Thermostat
	screen := nb.screen

	energy := 0.0
	g.ForEachInteractingPairInCells(start, end, func(i, j int) {
		d := box.Separation(beads[i].Pos, beads[j].Pos)
		r2 := d.X*d.X + d.Y*d.Y + d.Z*d.Z
		if r2 >= rc2 || r2 == 0 {
			return
		}
		r := math.Sqrt(r2)
		w := 1 - r*invRc
		ex, ey, ez := d.X/r, d.Y/r, d.Z/r

		ti, tj := beads[i].Type, beads[j].Type
		p := nb.Table.params[ti*nt+tj]

		fmag := p.Conservative * w
		energy += 0.5 * p.Conservative * rc * w * w

		if screen != nil {
			if q := screen[ti*nt+tj]; q.Strength > 0 {
				f, u := ScreenedForce(q.Strength, q.Range, r, rc)
				fmag += f
				energy += u
			}
		}

		if thermostat && p.Dissipative > 0 {
			vi, vj := vel[i], vel[j]
			rv := ex*(vi.X-vj.X) + ey*(vi.Y-vj.Y) + ez*(vi.Z-vj.Z)
			fmag -= p.Dissipative * w * w * rv
			fmag += nb.sigma[ti*nt+tj] * w * PairNoise(key, i, j) * invSqrtDt
		}

		f := r3.Vec{X: fmag * ex, Y: fmag * ey, Z: fmag * ez}
		add(i, f)
		add(j, r3.Scale(-1, f))
	})
	return energy
}

// ResetForces zeroes every bead's force accumulator.
func ResetForces(beads []dynamo.Bead) {
	for i := range beads {
		beads[i].Force = r3.Vec{}
	}
}
