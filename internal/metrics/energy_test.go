package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/sim"
)

func TestEnergyMean(t *testing.T) {
	m := NewEnergy()

	m.Observe(sim.Sample{Kinetic: 1, PairEnergy: 2})
	m.Observe(sim.Sample{Kinetic: 3, BondEnergy: 1, BendEnergy: 1})

	if got := m.Value(); math.Abs(got-4) > 1e-12 {
		t.Errorf("expected mean energy 4, got %f", got)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy()

	m.Observe(sim.Sample{Kinetic: 1})
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()

	for _, e := range []float64{10, 10.5, 9.8, 10.1} {
		m.Observe(sim.Sample{Kinetic: e})
	}

	if got := m.Value(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("expected drift 0.05, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestEnergyRate(t *testing.T) {
	m := NewEnergyRate()
	if m.Value() != 0 {
		t.Errorf("expected 0 before two samples, got %f", m.Value())
	}

	// E = 10 + 0.5 t, mean 11 over t in [0, 4]
	for _, tm := range []float64{0, 1, 2, 3, 4} {
		m.Observe(sim.Sample{Time: tm, Kinetic: 10 + 0.5*tm})
	}
	if got, want := m.Value(), 0.5/11; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected rate %f, got %f", want, got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero rate after reset")
	}
}

func TestStability(t *testing.T) {
	m := NewStability(5)
	if m.Value() != 1 {
		t.Errorf("expected 1 before any sample, got %f", m.Value())
	}

	m.Observe(sim.Sample{MaxSpeed: 1})
	m.Observe(sim.Sample{MaxSpeed: 7})
	m.Observe(sim.Sample{MaxSpeed: 2})
	m.Observe(sim.Sample{MaxSpeed: 3})

	if got := m.Value(); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("expected stability 0.75, got %f", got)
	}

	m.Observe(sim.Sample{MaxSpeed: 1, PairEnergy: math.NaN()})
	if got := m.Value(); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("expected non-finite energy to count, got %f", got)
	}
}

func TestTemperatureAndMomentum(t *testing.T) {
	temp := NewTemperature()
	mom := NewMomentumDrift()

	samples := []sim.Sample{
		{Temperature: 0.9, Momentum: r3.Vec{X: 1}},
		{Temperature: 1.1, Momentum: r3.Vec{X: 1, Y: 0.5}},
		{Temperature: 1.0, Momentum: r3.Vec{X: 1}},
	}
	for _, s := range samples {
		temp.Observe(s)
		mom.Observe(s)
	}

	if got := temp.Value(); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("expected mean temperature 1.0, got %f", got)
	}
	if got := mom.Value(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected momentum drift 0.5, got %f", got)
	}
}

func TestRegistry(t *testing.T) {
	for name, ctor := range Registry {
		if got := ctor().Name(); got != name {
			t.Errorf("registry entry %s builds metric %s", name, got)
		}
	}
}
