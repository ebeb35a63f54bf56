package sim

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/integrators"
)

// Phase is the stage of a timestep the controller is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRebuildGrid
	PhaseEvaluateForces
	PhaseIntegrate
	PhasePostStepHooks
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRebuildGrid:
		return "rebuild-grid"
	case PhaseEvaluateForces:
		return "evaluate-forces"
	case PhaseIntegrate:
		return "integrate"
	case PhasePostStepHooks:
		return "post-step-hooks"
	}
	return "unknown"
}

// Options configure a Simulator. Zero values select defaults where noted.
type Options struct {
	Cutoff      float64
	Dt          float64
	Temperature float64
	// Lambda is the integrator predictor weight; 0 selects 0.65.
	Lambda  float64
	Seed    uint64
	Workers int
	Table   *forces.PairTable
	// Boundary defaults to integrators.Periodic.
	Boundary integrators.Boundary
	// Forces are external forces present from the first step.
	Forces []forces.Spec
	// ThermostatOff starts the run with conservative forces only.
	ThermostatOff bool
	// Charges holds a charge per bead type index; nil means no charges.
	Charges []forces.Charge
	// SamplePeriod records a Sample every that many steps; 0 disables it.
	SamplePeriod int64
	// SkipInvariants turns off the grid membership check run after every
	// rebuild.
	SkipInvariants bool
	Logger         *slog.Logger
}

// Energies are the potential energies of the last force evaluation.
type Energies struct {
	Pair float64 `json:"pair"`
	Bond float64 `json:"bond"`
	Bend float64 `json:"bend"`
}

// Sample is a snapshot of the scalar observables at the end of a step.
type Sample struct {
	Step        int64   `json:"step"`
	Time        float64 `json:"time"`
	Temperature float64 `json:"temperature"`
	Kinetic     float64 `json:"kinetic"`
	PairEnergy  float64 `json:"pair_energy"`
	BondEnergy  float64 `json:"bond_energy"`
	BendEnergy  float64 `json:"bend_energy"`
	Momentum    r3.Vec  `json:"momentum"`
	MaxSpeed    float64 `json:"max_speed"`
}

// Total returns kinetic plus all potential energies.
func (s Sample) Total() float64 {
	return s.Kinetic + s.PairEnergy + s.BondEnergy + s.BendEnergy
}

// Field returns a named scalar of the sample, as used by plots and exports.
func (s Sample) Field(name string) (float64, bool) {
	switch name {
	case "time":
		return s.Time, true
	case "temperature":
		return s.Temperature, true
	case "kinetic":
		return s.Kinetic, true
	case "pair_energy":
		return s.PairEnergy, true
	case "bond_energy":
		return s.BondEnergy, true
	case "bend_energy":
		return s.BendEnergy, true
	case "total_energy":
		return s.Total(), true
	case "momentum":
		return r3.Norm(s.Momentum), true
	case "max_speed":
		return s.MaxSpeed, true
	}
	return 0, false
}

// SampleFields lists the names accepted by Sample.Field.
var SampleFields = []string{
	"time", "temperature", "kinetic", "pair_energy", "bond_energy",
	"bend_energy", "total_energy", "momentum", "max_speed",
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

// Hook is a post-step collaborator. It reads the state through view and may
// queue mutations through ctl; they are applied at the start of the next
// step. Returning an error wrapping dynamo.ErrStopped ends the run after the
// current step and one wrapping dynamo.ErrHookFatal aborts it. Any other error
// is logged and ignored.
type Hook interface {
	OnStep(step int64, view *View, ctl *Control) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(step int64, view *View, ctl *Control) error

func (f HookFunc) OnStep(step int64, view *View, ctl *Control) error {
	return f(step, view, ctl)
}

// Result summarises a call to Run.
type Result struct {
	StepsTaken int64
	Stopped    bool
	Samples    []Sample
	Metrics    map[string]float64
}
