package analysis

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// RDF is a radial distribution function sampled at bin centres.
type RDF struct {
	R []float64
	G []float64
}

// RadialDistribution computes g(r) up to rmax over bins bins from one
// configuration, using minimum-image separations. It is quadratic in the
// number of beads and meant for snapshots, not for every step.
func RadialDistribution(box dynamo.Box, pos []r3.Vec, rmax float64, bins int) RDF {
	out := RDF{R: make([]float64, bins), G: make([]float64, bins)}
	n := len(pos)
	if n < 2 || bins <= 0 || rmax <= 0 {
		return out
	}
	dr := rmax / float64(bins)
	counts := make([]float64, bins)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := r3.Norm(box.Separation(pos[j], pos[i]))
			if k := int(r / dr); k < bins {
				counts[k] += 2
			}
		}
	}

	density := float64(n) / box.Volume()
	for k := range counts {
		lo, hi := float64(k)*dr, float64(k+1)*dr
		shell := 4.0 / 3.0 * math.Pi * (hi*hi*hi - lo*lo*lo)
		out.R[k] = lo + dr/2
		out.G[k] = counts[k] / (float64(n) * density * shell)
	}
	return out
}
