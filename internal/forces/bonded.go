package forces

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// minSin keeps the bending prefactor finite for nearly straight or folded
// triplets when the preferred angle is non-zero.
const minSin = 1e-8

// ComputeBondedForces accumulates Hookean bond and bending forces over the
// active bonds and bond pairs of st. It returns the spring and bending
// potential energies.
func ComputeBondedForces(st *dynamo.State) (bondEnergy, bendEnergy float64) {
	beads := st.Beads
	box := st.Box

	for _, bd := range st.Bonds {
		if !bd.Active {
			continue
		}
		f, u := HookeanForce(box, beads[bd.I].Pos, beads[bd.J].Pos, bd.Spring, bd.Length)
		beads[bd.I].Force = r3.Add(beads[bd.I].Force, f)
		beads[bd.J].Force = r3.Sub(beads[bd.J].Force, f)
		bondEnergy += u
	}

	for _, bp := range st.BondPairs {
		if !bp.Active || bp.Modulus == 0 {
			continue
		}
		fi, fj, fk, u := BendingForce(box, beads[bp.I].Pos, beads[bp.J].Pos, beads[bp.K].Pos, bp.Modulus, bp.Angle)
		beads[bp.I].Force = r3.Add(beads[bp.I].Force, fi)
		beads[bp.J].Force = r3.Add(beads[bp.J].Force, fj)
		beads[bp.K].Force = r3.Add(beads[bp.K].Force, fk)
		bendEnergy += u
	}
	return bondEnergy, bendEnergy
}

// HookeanForce returns the spring force on the bead at pi due to the bead at
// pj and the spring energy 0.5 k (r - l0)².
func HookeanForce(box dynamo.Box, pi, pj r3.Vec, k, l0 float64) (r3.Vec, float64) {
	d := box.Separation(pj, pi)
	r := r3.Norm(d)
	if r == 0 {
		return r3.Vec{}, 0.5 * k * l0 * l0
	}
	stretch := r - l0
	return r3.Scale(k*stretch/r, d), 0.5 * k * stretch * stretch
}

// BendingForce evaluates U = κ (1 - cos(θ - θ0)) for the triplet i-j-k, where
// θ is the angle between the bond vectors j-i and k-j. It returns the force on
// each bead and U. The three forces sum to zero.
func BendingForce(box dynamo.Box, pi, pj, pk r3.Vec, kappa, theta0 float64) (fi, fj, fk r3.Vec, u float64) {
	b1 := box.Separation(pj, pi)
	b2 := box.Separation(pk, pj)
	l1 := r3.Norm(b1)
	l2 := r3.Norm(b2)
	if l1 == 0 || l2 == 0 {
		return r3.Vec{}, r3.Vec{}, r3.Vec{}, 0
	}

	c := r3.Dot(b1, b2) / (l1 * l2)
	c = math.Max(-1, math.Min(1, c))

	var coef float64
	if theta0 == 0 {
		coef = kappa
		u = kappa * (1 - c)
	} else {
		theta := math.Acos(c)
		s := math.Max(math.Sqrt(1-c*c), minSin)
		coef = kappa * math.Sin(theta-theta0) / s
		u = kappa * (1 - math.Cos(theta-theta0))
	}

	// dc/db1 and dc/db2
	inv12 := 1 / (l1 * l2)
	dc1 := r3.Sub(r3.Scale(inv12, b2), r3.Scale(c/(l1*l1), b1))
	dc2 := r3.Sub(r3.Scale(inv12, b1), r3.Scale(c/(l2*l2), b2))

	fi = r3.Scale(-coef, dc1)
	fk = r3.Scale(coef, dc2)
	fj = r3.Scale(-1, r3.Add(fi, fk))
	return fi, fj, fk, u
}
