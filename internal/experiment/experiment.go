// Package experiment turns a run config into an initial system and a
// configured simulator.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/commands"
	"github.com/san-kum/dpdsim/internal/config"
	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/sim"
)

// placementSalt separates the placement stream from the simulator's own.
const placementSalt = 0x9e3779b97f4a7c15

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	state     *dynamo.State
	opts      sim.Options
	cmds      []commands.Command
	simulator *sim.Simulator
	scheduler *commands.Scheduler
	log       *slog.Logger
}

// New validates cfg and builds the initial state, the simulator options and
// the scheduled commands.
func New(cfg *config.Config, log *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{cfg: cfg, registry: NewRegistry(), log: log}

	st, err := BuildState(cfg)
	if err != nil {
		return nil, err
	}
	e.state = st

	table, err := BuildTable(cfg)
	if err != nil {
		return nil, err
	}
	boundary, err := e.registry.GetBoundary(cfg.Boundary)
	if err != nil {
		return nil, err
	}
	e.opts = sim.Options{
		Cutoff:         cfg.Cutoff,
		Dt:             cfg.Dt,
		Temperature:    cfg.Temperature,
		Lambda:         cfg.Lambda,
		Seed:           cfg.Seed,
		Workers:        cfg.Workers,
		Table:          table,
		Boundary:       boundary,
		ThermostatOff:  cfg.ThermostatOff,
		SamplePeriod:   cfg.SamplePeriod,
		SkipInvariants: cfg.SkipInvariants,
		Logger:         log,
	}

	e.cmds, err = e.registry.Commands().BuildAll(cfg.Commands, st)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Setup creates a fresh simulator and queues the commands due at step 0.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	s, err := sim.New(e.state, e.opts)
	if err != nil {
		return err
	}
	e.attach(s, metrics)
	return e.scheduler.Start(s.View(), s.Control())
}

// Resume restores a simulator from cp. Commands due at or before the
// checkpoint step are skipped since their effects are part of cp.
func (e *Experiment) Resume(cp *sim.Checkpoint, metrics []sim.Metric) error {
	s, err := sim.Restore(cp, e.opts)
	if err != nil {
		return err
	}
	e.attach(s, metrics)
	e.scheduler.Skip(cp.Step)
	return nil
}

func (e *Experiment) attach(s *sim.Simulator, metrics []sim.Metric) {
	if metrics == nil {
		metrics = e.registry.DefaultMetrics()
	}
	for _, m := range metrics {
		s.AddMetric(m)
	}
	e.scheduler = commands.NewScheduler(e.cmds, e.log)
	s.AddHook(e.scheduler)
	e.simulator = s
}

// Run advances the simulator up to the configured step count.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	remaining := e.cfg.Steps - e.simulator.CurrentStep()
	if remaining < 0 {
		remaining = 0
	}
	return e.simulator.Run(ctx, remaining)
}

func (e *Experiment) GetSimulator() *sim.Simulator   { return e.simulator }
func (e *Experiment) Scheduler() *commands.Scheduler { return e.scheduler }
func (e *Experiment) State() *dynamo.State           { return e.state }
func (e *Experiment) Options() sim.Options           { return e.opts }
func (e *Experiment) Config() *config.Config         { return e.cfg }

// BuildTable fills the pair parameter table from the config interactions.
func BuildTable(cfg *config.Config) (*forces.PairTable, error) {
	index := make(map[string]int, len(cfg.BeadTypes))
	for i, bt := range cfg.BeadTypes {
		index[bt.Name] = i
	}
	tab := forces.NewPairTable(len(cfg.BeadTypes))
	for _, in := range cfg.Interactions {
		a, okA := index[in.A]
		b, okB := index[in.B]
		if !okA || !okB {
			return nil, dynamo.Configf("interaction %s-%s: unknown bead type", in.A, in.B)
		}
		p := forces.PairParams{Conservative: in.Conservative, Dissipative: in.Dissipative}
		if err := tab.Set(a, b, p); err != nil {
			return nil, err
		}
	}
	return tab, tab.Validate()
}

// BuildState creates the initial beads: explicit beads first, then polymer
// chains, then solvent. Placement and velocities come from a stream seeded
// by cfg.Seed, so a config always produces the same system.
func BuildState(cfg *config.Config) (*dynamo.State, error) {
	box, err := cfg.Box.NewBox()
	if err != nil {
		return nil, err
	}
	st := &dynamo.State{Box: box}
	index := make(map[string]int, len(cfg.BeadTypes))
	for i, bt := range cfg.BeadTypes {
		st.BeadTypes = append(st.BeadTypes, dynamo.BeadType{Name: bt.Name, Mass: bt.Mass, Radius: bt.Radius})
		index[bt.Name] = i
	}
	p := &placer{
		st:  st,
		kT:  cfg.Temperature,
		rng: rand.New(rand.NewSource(cfg.Seed ^ placementSalt)),
	}

	for i, bc := range cfg.Beads {
		typ, ok := index[bc.Type]
		if !ok {
			return nil, dynamo.Configf("bead %d: unknown bead type %q", i, bc.Type)
		}
		pos := r3.Vec{X: bc.Pos[0], Y: bc.Pos[1], Z: bc.Pos[2]}
		var vel r3.Vec
		if bc.Vel != nil {
			vel = r3.Vec{X: bc.Vel[0], Y: bc.Vel[1], Z: bc.Vel[2]}
		}
		b := dynamo.NewBead(len(st.Beads), typ, pos, vel)
		b.Frozen = bc.Frozen
		st.Beads = append(st.Beads, b)
	}

	explicit := len(st.Beads)
	for pi, pc := range cfg.Polymers {
		for c := 0; c < pc.Count; c++ {
			p.chain(pi, pc, index)
		}
	}

	for _, sc := range cfg.Solvent {
		n := sc.Count
		if sc.Density > 0 {
			n = int(math.Round(sc.Density * box.Volume()))
		}
		typ := index[sc.Type]
		for k := 0; k < n; k++ {
			p.add(typ, -1, p.random())
		}
	}
	p.removeDrift(explicit)

	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

type placer struct {
	st  *dynamo.State
	kT  float64
	rng *rand.Rand
}

func (p *placer) random() r3.Vec {
	l := p.st.Box.L
	return r3.Vec{X: p.rng.Float64() * l.X, Y: p.rng.Float64() * l.Y, Z: p.rng.Float64() * l.Z}
}

// add appends a bead with a Maxwell-Boltzmann velocity.
func (p *placer) add(typ, polymer int, pos r3.Vec) int {
	s := math.Sqrt(p.kT / p.st.BeadTypes[typ].Mass)
	vel := r3.Vec{X: s * p.rng.NormFloat64(), Y: s * p.rng.NormFloat64(), Z: s * p.rng.NormFloat64()}
	b := dynamo.NewBead(len(p.st.Beads), typ, pos, vel)
	b.Polymer = polymer
	p.st.Beads = append(p.st.Beads, b)
	return b.ID
}

// step moves from prev by length in a random direction, turning back at walls.
func (p *placer) step(prev r3.Vec, length float64) r3.Vec {
	dir := r3.Vec{X: p.rng.NormFloat64(), Y: p.rng.NormFloat64(), Z: p.rng.NormFloat64()}
	if r3.Norm2(dir) == 0 {
		dir = r3.Vec{X: 1}
	}
	d := r3.Scale(length, r3.Unit(dir))
	next := r3.Add(prev, d)
	box := p.st.Box
	for axis := 0; axis < 3; axis++ {
		if box.Periodic[axis] {
			continue
		}
		x := dynamo.Component(next, axis)
		if x < 0 || x >= box.Length(axis) {
			x = dynamo.Component(prev, axis) - dynamo.Component(d, axis)
			x = math.Min(math.Max(x, 0), math.Nextafter(box.Length(axis), 0))
			next = dynamo.SetComponent(next, axis, x)
		}
	}
	return box.Wrap(next)
}

// chain places one linear polymer as a random walk and bonds consecutive
// beads. The bond type is the polymer's config index.
func (p *placer) chain(typ int, pc config.PolymerConfig, index map[string]int) {
	st := p.st
	poly := dynamo.Polymer{Type: typ, Name: pc.Name}
	id := len(st.Polymers)
	length := pc.Length
	if length == 0 {
		length = 0.5
	}

	pos := p.random()
	for k, name := range pc.Shape {
		if k > 0 {
			pos = p.step(pos, length)
		}
		poly.Beads = append(poly.Beads, p.add(index[name], id, pos))
	}
	for k := 1; k < len(poly.Beads); k++ {
		st.Bonds = append(st.Bonds, dynamo.Bond{
			Type:      typ,
			I:         poly.Beads[k-1],
			J:         poly.Beads[k],
			Spring:    pc.Spring,
			Length:    pc.Length,
			MaxLength: pc.MaxLength,
			Active:    true,
		})
	}
	if pc.Modulus > 0 {
		for k := 2; k < len(poly.Beads); k++ {
			st.BondPairs = append(st.BondPairs, dynamo.BondPair{
				Type:    typ,
				I:       poly.Beads[k-2],
				J:       poly.Beads[k-1],
				K:       poly.Beads[k],
				Modulus: pc.Modulus,
				Angle:   pc.Angle,
				Active:  true,
			})
		}
	}
	st.Polymers = append(st.Polymers, poly)
}

// removeDrift subtracts the centre-of-mass velocity of the generated beads,
// those from index first on, so thermal initial conditions carry no net
// momentum.
func (p *placer) removeDrift(first int) {
	beads := p.st.Beads
	var mom r3.Vec
	var mass float64
	for i := first; i < len(beads); i++ {
		m := p.st.BeadTypes[beads[i].Type].Mass
		mom = r3.Add(mom, r3.Scale(m, beads[i].Vel))
		mass += m
	}
	if mass == 0 {
		return
	}
	v := r3.Scale(1/mass, mom)
	for i := first; i < len(beads); i++ {
		beads[i].Vel = r3.Sub(beads[i].Vel, v)
	}
}
