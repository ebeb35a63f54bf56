package sim_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/integrators"
	"github.com/san-kum/dpdsim/internal/metrics"
	"github.com/san-kum/dpdsim/internal/sim"
)

var _ = Describe("Simulator", func() {
	ctx := context.Background()

	Describe("setup validation", func() {
		It("rejects a cutoff larger than half a periodic box length", func() {
			st := twoBeads(newBox(1.5), r3.Vec{X: 0.2}, r3.Vec{X: 0.9})
			_, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0)})
			Expect(err).To(MatchError(dynamo.ErrCutoffTooLarge))
		})

		It("rejects a cutoff of exactly half a periodic box length", func() {
			st := twoBeads(newBox(2), r3.Vec{X: 0.2}, r3.Vec{X: 0.9})
			_, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0)})
			Expect(err).To(MatchError(dynamo.ErrCutoffTooLarge))
		})

		It("rejects a box that needs too many cells", func() {
			st := twoBeads(newBox(1e7), r3.Vec{X: 1}, r3.Vec{X: 2})
			_, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0)})
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		It("rejects more charges than bead types", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 1}, r3.Vec{X: 2})
			_, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0),
				Charges: []forces.Charge{{}, {Strength: 1, Range: 1}}})
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		It("rejects a missing pair parameter", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 1}, r3.Vec{X: 2})
			st.BeadTypes = append(st.BeadTypes, dynamo.BeadType{Name: "H", Mass: 1})
			tab := forces.NewPairTable(2)
			Expect(tab.Set(0, 0, forces.PairParams{Conservative: 25})).To(Succeed())
			_, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: tab})
			Expect(err).To(MatchError(dynamo.ErrUnknownPair))
		})

		It("rejects a table for the wrong number of types", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 1}, r3.Vec{X: 2})
			tab := forces.NewPairTable(2)
			for a := 0; a < 2; a++ {
				for b := a; b < 2; b++ {
					Expect(tab.Set(a, b, forces.PairParams{Conservative: 25})).To(Succeed())
				}
			}
			_, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: tab})
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		It("rejects a non-positive timestep and a reflective periodic box", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 1}, r3.Vec{X: 2})
			_, err := sim.New(st, sim.Options{Cutoff: 1, Table: singleTypeTable(25, 0)})
			Expect(err).To(MatchError(dynamo.ErrConfig))

			_, err = sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0),
				Boundary: integrators.Reflective{}})
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		It("wraps initial positions into the box", func() {
			st := twoBeads(newBox(10), r3.Vec{X: -1, Y: 12}, r3.Vec{X: 2})
			s, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0)})
			Expect(err).NotTo(HaveOccurred())
			b := s.View().Bead(0)
			Expect(b.Pos.X).To(BeNumerically("~", 9, 1e-12))
			Expect(b.Pos.Y).To(BeNumerically("~", 2, 1e-12))
			Expect(st.Beads[0].Pos.X).To(Equal(-1.0), "caller state is not modified")
		})
	})

	Describe("two beads at half the cutoff", func() {
		It("pushes them apart symmetrically", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 4.75, Y: 5, Z: 5}, r3.Vec{X: 5.25, Y: 5, Z: 5})
			s, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Step()).To(Succeed())

			a, b := s.View().Bead(0), s.View().Bead(1)
			Expect(a.Pos.X).To(BeNumerically("<", 4.75))
			Expect(b.Pos.X).To(BeNumerically(">", 5.25))
			Expect(a.Vel.X).To(BeNumerically("<", 0))
			Expect(b.Vel.X).To(BeNumerically(">", 0))
			Expect((a.Pos.X + b.Pos.X) / 2).To(BeNumerically("~", 5, 1e-12))
			Expect(a.Pos.Y).To(Equal(5.0))
			Expect(s.CurrentStep()).To(Equal(int64(1)))
			Expect(s.Time()).To(BeNumerically("~", 0.01, 1e-15))
		})
	})

	Describe("harmonic bond", func() {
		bonded := func(lambda, sep float64) *sim.Simulator {
			st := twoBeads(newBox(10), r3.Vec{X: 5 - sep/2, Y: 5, Z: 5}, r3.Vec{X: 5 + sep/2, Y: 5, Z: 5})
			st.Bonds = []dynamo.Bond{{I: 0, J: 1, Spring: 10, Length: 1, Active: true}}
			s, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.001, Lambda: lambda, Table: singleTypeTable(0, 0)})
			Expect(err).NotTo(HaveOccurred())
			return s
		}

		It("oscillates with the analytic period", func() {
			s := bonded(0.5, 2)
			var times, ext []float64
			s.AddHook(sim.HookFunc(func(step int64, v *sim.View, _ *sim.Control) error {
				d := v.Box().Separation(v.Bead(1).Pos, v.Bead(0).Pos)
				times = append(times, v.Time())
				ext = append(ext, r3.Norm(d)-1)
				return nil
			}))
			_, err := s.Run(ctx, 2000)
			Expect(err).NotTo(HaveOccurred())

			var crossings []float64
			prevT, prevX := 0.0, 1.0
			for i := range times {
				if prevX > 0 && ext[i] <= 0 {
					crossings = append(crossings, prevT+(times[i]-prevT)*prevX/(prevX-ext[i]))
				}
				prevT, prevX = times[i], ext[i]
			}
			Expect(len(crossings)).To(BeNumerically(">=", 2))

			// reduced mass 1/2, so ω² = 2k
			want := 2 * math.Pi / math.Sqrt(20)
			Expect(crossings[1] - crossings[0]).To(BeNumerically("~", want, 0.01*want))
		})

		It("conserves energy without a thermostat", func() {
			s := bonded(0.5, 1.6)
			drift := metrics.NewEnergyDrift()
			s.AddMetric(drift)
			res, err := s.Run(ctx, 5000)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics["energy_drift"]).To(BeNumerically("<", 1e-3))
		})
	})

	Describe("reproducibility", func() {
		run := func(seed uint64, workers int, steps int64) *dynamo.State {
			s, err := sim.New(fluid(400, 6, 3), fluidOptions(seed, workers))
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(ctx, steps)
			Expect(err).NotTo(HaveOccurred())
			return s.State()
		}

		It("gives bit-identical trajectories for the same seed", func() {
			a := run(7, 1, 40)
			b := run(7, 1, 40)
			Expect(a.Beads).To(Equal(b.Beads))
		})

		It("gives bit-identical trajectories in parallel", func() {
			a := run(7, 4, 40)
			b := run(7, 4, 40)
			Expect(a.Beads).To(Equal(b.Beads))
		})

		It("diverges for a different seed", func() {
			a := run(7, 1, 10)
			b := run(8, 1, 10)
			Expect(a.Beads[0].Vel).NotTo(Equal(b.Beads[0].Vel))
		})

		It("conserves total momentum", func() {
			s, err := sim.New(fluid(400, 6, 4), fluidOptions(1, 2))
			Expect(err).NotTo(HaveOccurred())
			p0 := s.Sample().Momentum
			_, err = s.Run(ctx, 30)
			Expect(err).NotTo(HaveOccurred())
			p1 := s.Sample().Momentum
			Expect(r3.Norm(r3.Sub(p1, p0))).To(BeNumerically("<", 1e-8))
		})

		It("checks grid membership every step without changing the trajectory", func() {
			opts := fluidOptions(3, 2)
			Expect(opts.SkipInvariants).To(BeFalse())
			checked, err := sim.New(fluid(300, 5, 6), opts)
			Expect(err).NotTo(HaveOccurred())
			_, err = checked.Run(ctx, 30)
			Expect(err).NotTo(HaveOccurred())

			opts.SkipInvariants = true
			unchecked, err := sim.New(fluid(300, 5, 6), opts)
			Expect(err).NotTo(HaveOccurred())
			_, err = unchecked.Run(ctx, 30)
			Expect(err).NotTo(HaveOccurred())

			Expect(checked.State().Beads).To(Equal(unchecked.State().Beads))
		})

		It("keeps every bead inside the box", func() {
			s, err := sim.New(fluid(300, 5, 5), fluidOptions(2, 1))
			Expect(err).NotTo(HaveOccurred())
			s.AddHook(sim.HookFunc(func(step int64, v *sim.View, _ *sim.Control) error {
				for i, b := range v.Beads() {
					if !v.Box().Contains(b.Pos) {
						return fmt.Errorf("%w: bead %d outside", dynamo.ErrHookFatal, i)
					}
				}
				return nil
			}))
			_, err = s.Run(ctx, 50)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("checkpoint", func() {
		It("restores a run bit-identically through JSON", func() {
			opts := fluidOptions(11, 2)
			opts.SamplePeriod = 5
			s, err := sim.New(fluid(300, 6, 6), opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Control().SetGravity(r3.Vec{Z: -0.1})).To(Succeed())
			_, err = s.Run(ctx, 15)
			Expect(err).NotTo(HaveOccurred())

			cp, err := s.Checkpoint()
			Expect(err).NotTo(HaveOccurred())
			data, err := json.Marshal(cp)
			Expect(err).NotTo(HaveOccurred())
			var decoded sim.Checkpoint
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())

			restored, err := sim.Restore(&decoded, fluidOptions(999, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Forces()).To(HaveLen(1))

			_, err = s.Run(ctx, 15)
			Expect(err).NotTo(HaveOccurred())
			_, err = restored.Run(ctx, 15)
			Expect(err).NotTo(HaveOccurred())

			Expect(restored.State().Beads).To(Equal(s.State().Beads))
			Expect(restored.CurrentStep()).To(Equal(int64(30)))
		})
	})

	Describe("post-step hooks", func() {
		var s *sim.Simulator

		BeforeEach(func() {
			var err error
			s, err = sim.New(fluid(100, 5, 8), fluidOptions(3, 1))
			Expect(err).NotTo(HaveOccurred())
		})

		It("logs and ignores ordinary hook errors", func() {
			calls := 0
			s.AddHook(sim.HookFunc(func(int64, *sim.View, *sim.Control) error {
				calls++
				return errors.New("disk full")
			}))
			res, err := s.Run(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(int64(5)))
			Expect(calls).To(Equal(5))
		})

		It("stops the run on request", func() {
			var events []sim.EventKind
			s.OnEvent(func(e sim.Event) { events = append(events, e.Kind) })
			s.AddHook(sim.HookFunc(func(step int64, _ *sim.View, _ *sim.Control) error {
				if step == 3 {
					return fmt.Errorf("target reached: %w", dynamo.ErrStopped)
				}
				return nil
			}))
			res, err := s.Run(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stopped).To(BeTrue())
			Expect(res.StepsTaken).To(Equal(int64(3)))
			Expect(events).To(ContainElement(sim.EventStopped))
		})

		It("stops through the control API", func() {
			s.AddHook(sim.HookFunc(func(step int64, _ *sim.View, ctl *sim.Control) error {
				if step == 2 {
					ctl.Stop()
				}
				return nil
			}))
			res, err := s.Run(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(int64(2)))
		})

		It("aborts on a fatal hook error", func() {
			s.AddHook(sim.HookFunc(func(step int64, _ *sim.View, _ *sim.Control) error {
				if step == 2 {
					return fmt.Errorf("analysis diverged: %w", dynamo.ErrHookFatal)
				}
				return nil
			}))
			_, err := s.Run(ctx, 10)
			var serr *dynamo.SimulationError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Step).To(Equal(int64(2)))
			Expect(serr.Phase).To(Equal(sim.PhasePostStepHooks.String()))
		})

		It("applies requests at the next step", func() {
			s.AddHook(sim.HookFunc(func(step int64, v *sim.View, ctl *sim.Control) error {
				if step == 1 {
					Expect(ctl.AddForce(forces.Spec{Kind: forces.KindConstant, Label: "push", Beads: []int{0}, Vector: r3.Vec{X: 5}})).To(Succeed())
					ctl.SetThermostat(false)
					Expect(s.Forces()).To(BeEmpty())
					Expect(v.Thermostat()).To(BeTrue())
				}
				return nil
			}))
			_, err := s.Run(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Forces()).To(HaveLen(1))
			Expect(s.Thermostat()).To(BeFalse())
		})

		It("honours cancellation after the current step", func() {
			cctx, cancel := context.WithCancel(ctx)
			s.AddHook(sim.HookFunc(func(step int64, _ *sim.View, _ *sim.Control) error {
				if step == 4 {
					cancel()
				}
				return nil
			}))
			res, err := s.Run(cctx, 10)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(Equal(int64(4)))
		})
	})

	Describe("events", func() {
		It("ruptures an over-stretched bond", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 4, Y: 5, Z: 5}, r3.Vec{X: 6, Y: 5, Z: 5})
			st.Beads[0].Vel = r3.Vec{X: -2}
			st.Beads[1].Vel = r3.Vec{X: 2}
			st.Bonds = []dynamo.Bond{{I: 0, J: 1, Spring: 1, Length: 2, MaxLength: 2.5, Active: true}}
			s, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(0, 0)})
			Expect(err).NotTo(HaveOccurred())

			var ruptured []sim.Event
			s.OnEvent(func(e sim.Event) {
				if e.Kind == sim.EventBondRuptured {
					ruptured = append(ruptured, e)
				}
			})
			_, err = s.Run(ctx, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(ruptured).To(HaveLen(1))
			Expect(s.View().Bond(0).Active).To(BeFalse())
			Expect(s.Energies().Bond).To(BeZero())
		})

		It("expires external forces", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 2, Y: 5, Z: 5}, r3.Vec{X: 8, Y: 5, Z: 5})
			opts := sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(0, 0),
				Forces: []forces.Spec{{Kind: forces.KindConstant, Label: "kick", Beads: []int{0}, Vector: r3.Vec{Y: 1}, End: 10}}}
			s, err := sim.New(st, opts)
			Expect(err).NotTo(HaveOccurred())

			var expired []string
			s.OnEvent(func(e sim.Event) {
				if e.Kind == sim.EventForceExpired {
					expired = append(expired, e.Label)
				}
			})
			_, err = s.Run(ctx, 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(expired).To(Equal([]string{"constant(kick)"}))
			Expect(s.Forces()).To(BeEmpty())
			// trapezoidal impulse: half weight on the last active evaluation
			Expect(s.View().Bead(0).Vel.Y).To(BeNumerically("~", 0.095, 1e-9))
		})
	})

	Describe("numerical blow-up", func() {
		It("returns a SimulationError and restores the last good state", func() {
			st := twoBeads(newBox(10), r3.Vec{X: 2, Y: 5, Z: 5}, r3.Vec{X: 8, Y: 5, Z: 5})
			st.Beads[1].Vel = r3.Vec{Z: 5000}
			s, err := sim.New(st, sim.Options{Cutoff: 1, Dt: 0.01, Table: singleTypeTable(25, 0)})
			Expect(err).NotTo(HaveOccurred())

			var fatal []sim.Event
			s.OnEvent(func(e sim.Event) {
				if e.Kind == sim.EventFatal {
					fatal = append(fatal, e)
				}
			})
			err = s.Step()
			Expect(err).To(MatchError(dynamo.ErrUnstable))
			var serr *dynamo.SimulationError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Bead).To(Equal(1))
			Expect(fatal).To(HaveLen(1))
			Expect(s.View().Bead(0).Pos).To(Equal(r3.Vec{X: 2, Y: 5, Z: 5}))
			Expect(s.CurrentStep()).To(BeZero())
		})
	})

	Describe("sampling", func() {
		It("records a sample every period", func() {
			opts := fluidOptions(1, 1)
			opts.SamplePeriod = 5
			s, err := sim.New(fluid(200, 5, 9), opts)
			Expect(err).NotTo(HaveOccurred())
			res, err := s.Run(ctx, 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(HaveLen(5))
			Expect(res.Samples[0].Step).To(BeZero())
			Expect(res.Samples[4].Step).To(Equal(int64(20)))
			Expect(res.Samples[4].Temperature).To(BeNumerically(">", 0))

			Expect(s.Control().SetSamplePeriod(2)).To(Succeed())
			res, err = s.Run(ctx, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(HaveLen(2))
		})

		It("iterates a snapshot in id order", func() {
			s, err := sim.New(fluid(50, 5, 9), fluidOptions(1, 1))
			Expect(err).NotTo(HaveOccurred())
			next := 0
			for b := range s.Snapshot() {
				Expect(b.ID).To(Equal(next))
				next++
			}
			Expect(next).To(Equal(50))
		})
	})
})

var _ = Describe("Control", func() {
	It("changes the temperature at the next step and checkpoints it", func() {
		s, err := sim.New(fluid(100, 5, 2), fluidOptions(4, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Control().SetTemperature(-1)).To(MatchError(dynamo.ErrConfig))
		Expect(s.Control().SetTemperature(2.5)).To(Succeed())
		Expect(s.Temperature()).To(Equal(1.0))
		Expect(s.Step()).To(Succeed())
		Expect(s.Temperature()).To(Equal(2.5))

		cp, err := s.Checkpoint()
		Expect(err).NotTo(HaveOccurred())
		Expect(cp.Temperature).To(Equal(2.5))
		restored, err := sim.Restore(cp, fluidOptions(4, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.Temperature()).To(Equal(2.5))
	})

	It("composes toggles queued in the same step", func() {
		s, err := sim.New(fluid(50, 5, 2), fluidOptions(4, 1))
		Expect(err).NotTo(HaveOccurred())
		s.Control().ToggleThermostat()
		s.Control().ToggleThermostat()
		s.Control().ToggleThermostat()
		Expect(s.Step()).To(Succeed())
		Expect(s.Thermostat()).To(BeFalse())
	})

	It("rejects charges for unknown types", func() {
		s, err := sim.New(fluid(50, 5, 2), fluidOptions(4, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Control().ChargeBeadType("Q", forces.Charge{Strength: 1, Range: 1})).To(MatchError(dynamo.ErrConfig))
		Expect(s.Control().ChargeBeadType("W", forces.Charge{Strength: 1})).To(MatchError(dynamo.ErrConfig))
	})
})

var _ = Describe("Ensemble", func() {
	It("rejects a non-positive replica count", func() {
		for _, n := range []int{0, -3} {
			_, err := sim.NewEnsemble(fluid(10, 5, 1), fluidOptions(0, 1), n, 1).Run(context.Background(), 5)
			Expect(err).To(MatchError(dynamo.ErrConfig))
		}
	})

	It("runs replicas with consecutive seeds", func() {
		e := sim.NewEnsemble(fluid(100, 5, 1), fluidOptions(0, 1), 3, 100)
		e.Limit = 2
		results, err := e.Run(context.Background(), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(int64(10)))
		}
	})
})
