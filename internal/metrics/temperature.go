package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/sim"
)

// Temperature is the mean kinetic temperature over observed steps.
type Temperature struct{ running }

func NewTemperature() *Temperature { return &Temperature{} }

func (t *Temperature) Name() string         { return "temperature" }
func (t *Temperature) Observe(s sim.Sample) { t.add(s.Temperature) }
func (t *Temperature) Value() float64       { return t.mean() }
func (t *Temperature) Reset()               { t.running = running{} }

// MomentumDrift is the largest distance of the total momentum from its first
// observed value. Pairwise forces conserve momentum, so only external forces
// and walls should move it.
type MomentumDrift struct {
	initial  r3.Vec
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift { return &MomentumDrift{} }

func (m *MomentumDrift) Name() string { return "momentum_drift" }

func (m *MomentumDrift) Observe(s sim.Sample) {
	if m.samples == 0 {
		m.initial = s.Momentum
	}
	m.samples++
	if d := r3.Norm(r3.Sub(s.Momentum, m.initial)); d > m.maxDrift {
		m.maxDrift = d
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = r3.Vec{}
	m.maxDrift = 0
	m.samples = 0
}

// Registry maps metric names to constructors.
var Registry = map[string]func() sim.Metric{
	"energy":         func() sim.Metric { return NewEnergy() },
	"energy_drift":   func() sim.Metric { return NewEnergyDrift() },
	"energy_rate":    func() sim.Metric { return NewEnergyRate() },
	"temperature":    func() sim.Metric { return NewTemperature() },
	"momentum_drift": func() sim.Metric { return NewMomentumDrift() },
	"stability":      func() sim.Metric { return NewStability(50) },
}
