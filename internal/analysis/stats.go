package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a series of samples.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	// StdErr is the standard error of the mean from block averages, which
	// accounts for correlation between neighbouring samples.
	StdErr float64
	Min    float64
	Max    float64
}

// BlockStats summarises values, estimating the error of the mean from
// blocks equal-sized contiguous blocks. Trailing samples that do not fill a
// block only contribute to Mean, StdDev, Min and Max.
func BlockStats(values []float64, blocks int) Summary {
	s := Summary{N: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)

	if blocks < 2 {
		blocks = 2
	}
	size := len(values) / blocks
	if size == 0 {
		return s
	}
	means := make([]float64, blocks)
	for b := range means {
		means[b] = stat.Mean(values[b*size:(b+1)*size], nil)
	}
	s.StdErr = stat.StdDev(means, nil) / math.Sqrt(float64(blocks))
	return s
}
