package metrics

import (
	"math"

	"github.com/san-kum/dpdsim/internal/sim"
)

// Stability is the fraction of observed steps in which every bead stayed
// below threshold speed and the energy stayed finite.
type Stability struct {
	threshold  float64
	violations int
	steps      int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(smp sim.Sample) {
	s.steps++
	total := smp.Total()
	if smp.MaxSpeed > s.threshold || math.IsNaN(total) || math.IsInf(total, 0) {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.steps == 0 {
		return 1
	}
	return 1 - float64(s.violations)/float64(s.steps)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.steps = 0
}
