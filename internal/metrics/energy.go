// Package metrics holds the per-step observers a run reports at its end.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/dpdsim/internal/sim"
)

// running is a running mean of one sample field.
type running struct {
	sum float64
	n   int
}

func (r *running) add(v float64) {
	r.sum += v
	r.n++
}

func (r *running) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

// Energy is the mean total energy over observed steps.
type Energy struct{ running }

func NewEnergy() *Energy { return &Energy{} }

func (e *Energy) Name() string         { return "energy" }
func (e *Energy) Observe(s sim.Sample) { e.add(s.Total()) }
func (e *Energy) Value() float64       { return e.mean() }
func (e *Energy) Reset()               { e.running = running{} }

// EnergyDrift is the largest relative deviation of the total energy from its
// first observed value. Only meaningful with the thermostat off.
type EnergyDrift struct {
	initial  float64
	maxDrift float64
	seen     bool
}

func NewEnergyDrift() *EnergyDrift { return &EnergyDrift{} }

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(s sim.Sample) {
	energy := s.Total()
	if !e.seen {
		e.initial, e.seen = energy, true
	}
	if e.initial != 0 {
		e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial)/math.Abs(e.initial))
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() { *e = EnergyDrift{} }

// EnergyRate is the least-squares slope of total energy against time,
// relative to the mean energy. A systematic heating or cooling shows up here
// even when EnergyDrift is dominated by noise.
type EnergyRate struct {
	times, energies []float64
}

func NewEnergyRate() *EnergyRate { return &EnergyRate{} }

func (e *EnergyRate) Name() string { return "energy_rate" }

func (e *EnergyRate) Observe(s sim.Sample) {
	e.times = append(e.times, s.Time)
	e.energies = append(e.energies, s.Total())
}

func (e *EnergyRate) Value() float64 {
	if len(e.times) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(e.times, e.energies, nil, false)
	mean := stat.Mean(e.energies, nil)
	if mean == 0 {
		return slope
	}
	return slope / math.Abs(mean)
}

func (e *EnergyRate) Reset() {
	e.times = e.times[:0]
	e.energies = e.energies[:0]
}
