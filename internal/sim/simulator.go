package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/grid"
	"github.com/san-kum/dpdsim/internal/integrators"
)

// Simulator is the step controller. It owns the state for the lifetime of a
// run and drives every timestep through
//
//	Idle → RebuildGrid → EvaluateForces → Integrate → PostStepHooks → Idle
//
// With velocity Verlet the grid rebuild and force evaluation happen inside
// Integrate, between the two half kicks; forces for step zero are evaluated
// by New.
type Simulator struct {
	state    *dynamo.State
	opts     Options
	grid     *grid.Grid
	pair     *forces.NonBonded
	integ    *integrators.DPDVerlet
	boundary integrators.Boundary
	rng      *rand.PCGSource

	external     []forces.Spec
	samplePeriod int64
	energy       Energies

	hooks     []Hook
	metrics   []Metric
	observers []Observer
	listeners []Listener

	pending     []func()
	forcesDirty bool
	stopped     bool
	phase       Phase

	backupPos, backupVel, backupForce []r3.Vec

	samples     []Sample
	lastSampled int64

	log *slog.Logger
}

// New validates opts against st and evaluates the initial forces. The
// simulator works on a copy of st.
func New(st *dynamo.State, opts Options) (*Simulator, error) {
	s, err := build(st, opts)
	if err != nil {
		return nil, err
	}
	s.rng.Seed(opts.Seed)
	if err := s.evaluate(nil, s.state.Step); err != nil {
		return nil, err
	}
	s.phase = PhaseIdle
	return s, nil
}

func build(st *dynamo.State, opts Options) (*Simulator, error) {
	if st == nil {
		return nil, dynamo.Configf("no initial state")
	}
	if opts.Table == nil {
		return nil, dynamo.Configf("no pair parameter table")
	}
	if !(opts.Dt > 0) {
		return nil, dynamo.Configf("timestep must be positive, got %g", opts.Dt)
	}
	if opts.SamplePeriod < 0 {
		return nil, dynamo.Configf("sample period must be >= 0, got %d", opts.SamplePeriod)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if opts.Table.NumTypes() != len(st.BeadTypes) {
		return nil, dynamo.Configf("pair table covers %d bead types, state declares %d",
			opts.Table.NumTypes(), len(st.BeadTypes))
	}
	if err := CheckCutoff(st.Box, opts.Cutoff); err != nil {
		return nil, err
	}

	state := st.Clone()
	if opts.Boundary == nil {
		opts.Boundary = integrators.Periodic{}
	}
	if _, ok := opts.Boundary.(integrators.Reflective); ok {
		for axis, p := range state.Box.Periodic {
			if p {
				return nil, dynamo.Configf("reflective boundary with periodic axis %d", axis)
			}
		}
	}
	for i := range state.Beads {
		b := &state.Beads[i]
		b.Pos = state.Box.Wrap(b.Pos)
		if !state.Box.Contains(b.Pos) {
			return nil, dynamo.Configf("bead %d at %v lies outside the walls", i, b.Pos)
		}
		if b.Frozen {
			b.Vel = r3.Vec{}
		}
	}

	g, err := grid.Build(state.Box, opts.Cutoff)
	if err != nil {
		return nil, err
	}
	pair, err := forces.NewNonBonded(opts.Table, opts.Cutoff, opts.Temperature, opts.Dt, opts.Workers)
	if err != nil {
		return nil, err
	}
	pair.Thermostat = !opts.ThermostatOff
	if len(opts.Charges) > len(state.BeadTypes) {
		return nil, dynamo.Configf("%d charges for %d bead types", len(opts.Charges), len(state.BeadTypes))
	}
	for typ, c := range opts.Charges {
		if err := pair.SetCharge(typ, c); err != nil {
			return nil, err
		}
	}

	if opts.Lambda == 0 {
		opts.Lambda = integrators.DefaultLambda
	}
	integ, err := integrators.NewDPDVerlet(opts.Lambda)
	if err != nil {
		return nil, err
	}

	external := make([]forces.Spec, 0, len(opts.Forces))
	for i := range opts.Forces {
		if err := opts.Forces[i].Validate(len(state.Beads)); err != nil {
			return nil, err
		}
		external = append(external, opts.Forces[i].Clone())
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Simulator{
		state:        state,
		opts:         opts,
		grid:         g,
		pair:         pair,
		integ:        integ,
		boundary:     opts.Boundary,
		rng:          &rand.PCGSource{},
		external:     external,
		samplePeriod: opts.SamplePeriod,
		lastSampled:  -1,
		log:          logger,
	}, nil
}

// CheckCutoff rejects cutoffs of half a periodic box length or more, which
// would let a bead see two images of the same neighbour.
func CheckCutoff(box dynamo.Box, cutoff float64) error {
	if !(cutoff > 0) {
		return dynamo.Configf("cutoff radius must be positive, got %g", cutoff)
	}
	for axis := 0; axis < 3; axis++ {
		l := box.Length(axis)
		if box.Periodic[axis] && cutoff >= l/2 {
			return fmt.Errorf("%w: cutoff %g, axis %d has length %g", dynamo.ErrCutoffTooLarge, cutoff, axis, l)
		}
	}
	return nil
}

func (s *Simulator) AddHook(h Hook)         { s.hooks = append(s.hooks, h) }
func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Step advances the system by one timestep. A returned *dynamo.SimulationError
// is fatal; the state is left at its last consistent value.
func (s *Simulator) Step() error {
	st := s.state
	s.backup()
	if err := s.flush(); err != nil {
		return err
	}

	s.phase = PhaseIntegrate
	if err := s.integ.FirstHalfKick(st, s.opts.Dt); err != nil {
		return s.abort(err)
	}
	s.boundary.Apply(st.Box, st.Beads)
	if err := s.evaluate(s.integ.Predictor(), st.Step+1); err != nil {
		return s.abort(err)
	}
	s.phase = PhaseIntegrate
	s.integ.SecondHalfKick(st, s.opts.Dt)
	if i, err := integrators.CheckFinite(st.Beads); err != nil {
		return s.abort(&dynamo.SimulationError{Step: st.Step, Phase: PhaseIntegrate.String(), Bead: i, Wrapped: err})
	}

	st.Step++
	st.Time += s.opts.Dt
	s.checkBonds()
	s.expireForces()
	s.observe()

	s.phase = PhasePostStepHooks
	err := s.runHooks()
	s.phase = PhaseIdle
	return err
}

// Run performs up to steps timesteps. It returns early, with a nil error,
// when a collaborator requests termination, and with ctx.Err() when ctx is
// cancelled; the current step always completes first.
func (s *Simulator) Run(ctx context.Context, steps int64) (*Result, error) {
	if steps < 0 {
		return nil, dynamo.Configf("step count must be >= 0, got %d", steps)
	}
	res := &Result{Metrics: make(map[string]float64)}
	first := len(s.samples)
	s.sampleIfDue()

	finish := func() {
		res.Samples = append([]Sample(nil), s.samples[first:]...)
		for _, m := range s.metrics {
			res.Metrics[m.Name()] = m.Value()
		}
	}
	consumeStop := func() bool {
		if !s.stopped {
			return false
		}
		s.stopped = false
		res.Stopped = true
		s.emit(Event{Kind: EventStopped, Step: s.state.Step})
		return true
	}

	for res.StepsTaken < steps {
		if consumeStop() {
			break
		}
		select {
		case <-ctx.Done():
			finish()
			return res, ctx.Err()
		default:
		}

		if err := s.Step(); err != nil {
			finish()
			return res, err
		}
		res.StepsTaken++
	}
	if !res.Stopped {
		consumeStop()
	}
	finish()
	return res, nil
}

func (s *Simulator) evaluate(vel []r3.Vec, at int64) error {
	st := s.state

	s.phase = PhaseRebuildGrid
	if err := s.grid.AssignBeads(st.Beads); err != nil {
		return err
	}
	if !s.opts.SkipInvariants {
		if err := s.grid.Verify(len(st.Beads)); err != nil {
			return err
		}
	}

	s.phase = PhaseEvaluateForces
	forces.ResetForces(st.Beads)
	key := s.rng.Uint64()
	s.energy.Pair = s.pair.Compute(s.grid, st, vel, key)
	s.energy.Bond, s.energy.Bend = forces.ComputeBondedForces(st)
	for i := range s.external {
		s.external[i].Apply(st, at)
	}
	return nil
}

// flush applies the mutations queued by the previous step's hooks.
func (s *Simulator) flush() error {
	for len(s.pending) > 0 {
		reqs := s.pending
		s.pending = nil
		for _, apply := range reqs {
			apply()
		}
	}
	if !s.forcesDirty {
		return nil
	}
	s.forcesDirty = false
	if err := s.evaluate(nil, s.state.Step); err != nil {
		return s.abort(err)
	}
	s.phase = PhaseIdle
	return nil
}

func (s *Simulator) backup() {
	n := len(s.state.Beads)
	if len(s.backupPos) != n {
		s.backupPos = make([]r3.Vec, n)
		s.backupVel = make([]r3.Vec, n)
		s.backupForce = make([]r3.Vec, n)
	}
	for i := range s.state.Beads {
		b := &s.state.Beads[i]
		s.backupPos[i] = b.Pos
		s.backupVel[i] = b.Vel
		s.backupForce[i] = b.Force
	}
}

// abort restores the last-known-good bead state and reports err as fatal.
func (s *Simulator) abort(err error) error {
	var serr *dynamo.SimulationError
	if !errors.As(err, &serr) {
		serr = &dynamo.SimulationError{Step: s.state.Step, Phase: s.phase.String(), Bead: -1, Wrapped: err}
	}
	if len(s.backupPos) == len(s.state.Beads) {
		for i := range s.state.Beads {
			b := &s.state.Beads[i]
			b.Pos = s.backupPos[i]
			b.Vel = s.backupVel[i]
			b.Force = s.backupForce[i]
		}
	}
	s.phase = PhaseIdle
	s.emit(Event{Kind: EventFatal, Step: s.state.Step, Err: serr})
	return serr
}

func (s *Simulator) checkBonds() {
	st := s.state
	for i := range st.Bonds {
		bd := &st.Bonds[i]
		if !bd.Active || bd.MaxLength <= 0 {
			continue
		}
		d := st.Box.Separation(st.Beads[bd.J].Pos, st.Beads[bd.I].Pos)
		if r3.Norm(d) <= bd.MaxLength {
			continue
		}
		s.ruptureBond(i)
		s.emit(Event{Kind: EventBondRuptured, Step: st.Step, Bond: i})
	}
}

// ruptureBond deactivates bond i and every bending constraint spanning it.
// The change is visible from the next force evaluation.
func (s *Simulator) ruptureBond(i int) {
	st := s.state
	bd := &st.Bonds[i]
	bd.Active = false
	across := func(a, b int) bool {
		return (a == bd.I && b == bd.J) || (a == bd.J && b == bd.I)
	}
	for k := range st.BondPairs {
		bp := &st.BondPairs[k]
		if across(bp.I, bp.J) || across(bp.J, bp.K) {
			bp.Active = false
		}
	}
	s.forcesDirty = true
}

func (s *Simulator) expireForces() {
	step := s.state.Step
	kept := s.external[:0]
	for _, f := range s.external {
		if f.Expired(step) {
			s.emit(Event{Kind: EventForceExpired, Step: step, Label: f.String()})
			continue
		}
		kept = append(kept, f)
	}
	s.external = kept
}

func (s *Simulator) sample() Sample {
	st := s.state
	return Sample{
		Step:        st.Step,
		Time:        st.Time,
		Temperature: st.Temperature(),
		Kinetic:     st.KineticEnergy(),
		PairEnergy:  s.energy.Pair,
		BondEnergy:  s.energy.Bond,
		BendEnergy:  s.energy.Bend,
		Momentum:    st.Momentum(),
		MaxSpeed:    st.MaxSpeed(),
	}
}

func (s *Simulator) sampleIfDue() (Sample, bool) {
	step := s.state.Step
	if s.samplePeriod <= 0 || step%s.samplePeriod != 0 || step == s.lastSampled {
		return Sample{}, false
	}
	smp := s.sample()
	s.samples = append(s.samples, smp)
	s.lastSampled = step
	return smp, true
}

func (s *Simulator) observe() {
	smp, ok := s.sampleIfDue()
	if len(s.metrics) == 0 && len(s.observers) == 0 {
		return
	}
	if !ok {
		smp = s.sample()
	}
	for _, m := range s.metrics {
		m.Observe(smp)
	}
	for _, o := range s.observers {
		o.OnStep(smp)
	}
}

func (s *Simulator) runHooks() error {
	if len(s.hooks) == 0 {
		return nil
	}
	step := s.state.Step
	view := &View{s: s}
	ctl := &Control{s: s}
	for _, h := range s.hooks {
		err := h.OnStep(step, view, ctl)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, dynamo.ErrHookFatal):
			serr := &dynamo.SimulationError{Step: step, Phase: PhasePostStepHooks.String(), Bead: -1, Wrapped: err}
			s.emit(Event{Kind: EventFatal, Step: step, Err: serr})
			return serr
		case errors.Is(err, dynamo.ErrStopped):
			s.log.Info("run stop requested", "step", step, "reason", err)
			s.stopped = true
		default:
			s.log.Warn("post-step hook failed", "step", step, "err", err)
		}
	}
	return nil
}

// Control returns the request API for callers outside a hook. Requests are
// applied at the start of the next step.
func (s *Simulator) Control() *Control { return &Control{s: s} }

// View returns read-only access to the current state.
func (s *Simulator) View() *View { return &View{s: s} }

// State returns a deep copy of the current state.
func (s *Simulator) State() *dynamo.State { return s.state.Clone() }

func (s *Simulator) CurrentStep() int64 { return s.state.Step }
func (s *Simulator) Time() float64      { return s.state.Time }
func (s *Simulator) Energies() Energies { return s.energy }
func (s *Simulator) Phase() Phase       { return s.phase }
func (s *Simulator) Thermostat() bool   { return s.pair.Thermostat }
func (s *Simulator) Options() Options   { return s.opts }

// Temperature is the current thermostat temperature kT.
func (s *Simulator) Temperature() float64 { return s.pair.Temperature }

// Charges returns the charge of every bead type, or nil if none is charged.
func (s *Simulator) Charges() []forces.Charge { return s.pair.Charges() }

// Samples returns every sample recorded so far.
func (s *Simulator) Samples() []Sample {
	return append([]Sample(nil), s.samples...)
}

// Sample computes the observables of the current state.
func (s *Simulator) Sample() Sample { return s.sample() }

// Forces returns copies of the active external forces.
func (s *Simulator) Forces() []forces.Spec {
	out := make([]forces.Spec, len(s.external))
	for i := range s.external {
		out[i] = s.external[i].Clone()
	}
	return out
}
