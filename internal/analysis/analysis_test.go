package analysis

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

func TestDominantFrequency(t *testing.T) {
	const dt = 0.1
	data := make([]float64, 200)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*0.5*float64(i)*dt)
	}

	f, amp := DominantFrequency(data, dt)
	if math.Abs(f-0.5) > 1e-12 {
		t.Errorf("expected frequency 0.5, got %g", f)
	}
	if amp < 90 {
		t.Errorf("expected amplitude near n/2, got %g", amp)
	}
}

func TestPowerSpectrumConstant(t *testing.T) {
	ps := PowerSpectrum([]float64{2, 2, 2, 2, 2, 2, 2})
	if len(ps) != 4 {
		t.Fatalf("expected 4 bins, got %d", len(ps))
	}
	for k, v := range ps {
		if v > 1e-12 {
			t.Errorf("bin %d: expected 0, got %g", k, v)
		}
	}
	if PowerSpectrum([]float64{1}) != nil {
		t.Error("expected nil for a single sample")
	}
}

func TestBlockStats(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s := BlockStats(values, 5)

	tests := []struct {
		name      string
		got, want float64
	}{
		{"mean", s.Mean, 5.5},
		{"stddev", s.StdDev, math.Sqrt(55.0 / 6.0)},
		{"stderr", s.StdErr, math.Sqrt2},
		{"min", s.Min, 1},
		{"max", s.Max, 10},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-12 {
			t.Errorf("%s: expected %g, got %g", tt.name, tt.want, tt.got)
		}
	}

	if BlockStats(nil, 5).N != 0 {
		t.Error("expected empty summary")
	}
	if s := BlockStats([]float64{4}, 5); s.Mean != 4 || s.StdDev != 0 || s.StdErr != 0 {
		t.Errorf("unexpected single-sample summary %+v", s)
	}
}

func TestRadialDistributionLattice(t *testing.T) {
	box, err := dynamo.NewBox(r3.Vec{X: 4, Y: 4, Z: 4}, dynamo.AllPeriodic)
	if err != nil {
		t.Fatal(err)
	}
	var pos []r3.Vec
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				pos = append(pos, r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)})
			}
		}
	}

	rdf := RadialDistribution(box, pos, 1.5, 3)
	if rdf.G[0] != 0 || rdf.G[1] != 0 {
		t.Errorf("expected no pairs below the lattice spacing, got %v", rdf.G)
	}
	shell := 4.0 / 3.0 * math.Pi * (1.5*1.5*1.5 - 1)
	// 6 neighbours at 1 and 12 at sqrt(2) share the last bin.
	if want := 18 / shell; math.Abs(rdf.G[2]-want) > 1e-12 {
		t.Errorf("expected g = %g at the first shell, got %g", want, rdf.G[2])
	}
	if rdf.R[2] != 1.25 {
		t.Errorf("expected bin centre 1.25, got %g", rdf.R[2])
	}
}

func TestRadialDistributionIdealGas(t *testing.T) {
	box, err := dynamo.NewBox(r3.Vec{X: 10, Y: 10, Z: 10}, dynamo.AllPeriodic)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(3))
	pos := make([]r3.Vec, 3000)
	for i := range pos {
		pos[i] = r3.Vec{X: 10 * rng.Float64(), Y: 10 * rng.Float64(), Z: 10 * rng.Float64()}
	}

	rdf := RadialDistribution(box, pos, 3, 6)
	for k := 2; k < 6; k++ {
		if math.Abs(rdf.G[k]-1) > 0.1 {
			t.Errorf("bin %d: expected g near 1, got %g", k, rdf.G[k])
		}
	}
}
