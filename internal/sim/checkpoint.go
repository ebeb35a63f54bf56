package sim

import (
	"fmt"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
)

// Checkpoint is the complete restartable state of a simulator between steps.
type Checkpoint struct {
	Step         int64             `json:"step"`
	Time         float64           `json:"time"`
	Box          dynamo.Box        `json:"box"`
	BeadTypes    []dynamo.BeadType `json:"bead_types"`
	Beads        []dynamo.Bead     `json:"beads"`
	Bonds        []dynamo.Bond     `json:"bonds"`
	BondPairs    []dynamo.BondPair `json:"bond_pairs"`
	Polymers     []dynamo.Polymer  `json:"polymers"`
	Forces       []forces.Spec     `json:"forces"`
	Thermostat   bool              `json:"thermostat"`
	Temperature  float64           `json:"temperature"`
	Charges      []forces.Charge   `json:"charges,omitempty"`
	SamplePeriod int64             `json:"sample_period"`
	RNG          []byte            `json:"rng"`
}

// Checkpoint applies any queued requests and captures the state, including
// the force accumulators and the random stream, so Restore can continue the
// run bit-identically.
func (s *Simulator) Checkpoint() (*Checkpoint, error) {
	s.backup()
	if err := s.flush(); err != nil {
		return nil, err
	}
	rng, err := s.rng.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal random stream: %w", err)
	}
	st := s.state.Clone()
	return &Checkpoint{
		Step:         st.Step,
		Time:         st.Time,
		Box:          st.Box,
		BeadTypes:    st.BeadTypes,
		Beads:        st.Beads,
		Bonds:        st.Bonds,
		BondPairs:    st.BondPairs,
		Polymers:     st.Polymers,
		Forces:       s.Forces(),
		Thermostat:   s.pair.Thermostat,
		Temperature:  s.pair.Temperature,
		Charges:      s.pair.Charges(),
		SamplePeriod: s.samplePeriod,
		RNG:          rng,
	}, nil
}

// State returns the checkpointed system.
func (cp *Checkpoint) State() *dynamo.State {
	st := &dynamo.State{
		Step:      cp.Step,
		Time:      cp.Time,
		Box:       cp.Box,
		BeadTypes: cp.BeadTypes,
		Beads:     cp.Beads,
		Bonds:     cp.Bonds,
		BondPairs: cp.BondPairs,
		Polymers:  cp.Polymers,
	}
	return st.Clone()
}

// Restore rebuilds a simulator from cp. opts supplies the physical
// parameters and collaborators; its Seed, Forces, ThermostatOff, Temperature,
// Charges and SamplePeriod are taken from the checkpoint instead.
func Restore(cp *Checkpoint, opts Options) (*Simulator, error) {
	opts.Forces = cp.Forces
	opts.ThermostatOff = !cp.Thermostat
	opts.Temperature = cp.Temperature
	opts.Charges = cp.Charges
	opts.SamplePeriod = cp.SamplePeriod

	s, err := build(cp.State(), opts)
	if err != nil {
		return nil, err
	}
	if err := s.rng.UnmarshalBinary(cp.RNG); err != nil {
		return nil, fmt.Errorf("%w: random stream: %v", dynamo.ErrConfig, err)
	}
	// sampling resumes after the checkpointed step
	s.lastSampled = cp.Step
	return s, nil
}
