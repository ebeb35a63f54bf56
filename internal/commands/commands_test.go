package commands_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dpdsim/internal/commands"
	"github.com/san-kum/dpdsim/internal/dynamo"
	"github.com/san-kum/dpdsim/internal/forces"
	"github.com/san-kum/dpdsim/internal/sim"
)

var _ = Describe("Registry", func() {
	var reg *commands.Registry

	BeforeEach(func() {
		reg = commands.NewRegistry()
	})

	It("lists the built-in commands in order", func() {
		Expect(reg.Names()).To(Equal([]string{
			"charge_bead_type", "constant_force", "freeze_type", "gravity_off",
			"gravity_on", "planar_anchor", "radial_force", "set_bond_strength",
			"set_sample_period", "set_temperature", "sine_force", "stop",
			"toggle_thermostat",
		}))
	})

	It("rejects unknown commands", func() {
		_, err := reg.Build(commands.Spec{Name: "teleport"})
		Expect(err).To(MatchError(dynamo.ErrConfig))
	})

	It("rejects negative steps", func() {
		_, err := reg.Build(commands.Spec{Name: "stop", At: -1})
		Expect(err).To(MatchError(dynamo.ErrConfig))
	})

	DescribeTable("parameter checks",
		func(spec commands.Spec, ok bool) {
			_, err := reg.Build(spec)
			if ok {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(dynamo.ErrConfig))
			}
		},
		Entry("gravity", commands.Spec{Name: "gravity_on", Params: map[string]float64{"z": -1}}, true),
		Entry("zero gravity", commands.Spec{Name: "gravity_on"}, false),
		Entry("sine without period", commands.Spec{Name: "sine_force", Params: map[string]float64{"x": 1, "amplitude": 2}}, false),
		Entry("sine", commands.Spec{Name: "sine_force", Params: map[string]float64{"x": 1, "amplitude": 2, "period": 50}}, true),
		Entry("fractional duration", commands.Spec{Name: "constant_force", Params: map[string]float64{"x": 1, "duration": 1.5}}, false),
		Entry("anchor without normal", commands.Spec{Name: "planar_anchor", Params: map[string]float64{"k": 1}}, false),
		Entry("negative spring", commands.Spec{Name: "set_bond_strength", Params: map[string]float64{"spring": -1}}, false),
		Entry("freeze without target", commands.Spec{Name: "freeze_type"}, false),
		Entry("sample period missing", commands.Spec{Name: "set_sample_period"}, false),
		Entry("sample period", commands.Spec{Name: "set_sample_period", Params: map[string]float64{"period": 10}}, true),
		Entry("temperature missing", commands.Spec{Name: "set_temperature"}, false),
		Entry("negative temperature", commands.Spec{Name: "set_temperature", Params: map[string]float64{"temperature": -1}}, false),
		Entry("temperature", commands.Spec{Name: "set_temperature", Params: map[string]float64{"temperature": 2}}, true),
		Entry("charge without target", commands.Spec{Name: "charge_bead_type", Params: map[string]float64{"strength": 1, "range": 0.5}}, false),
		Entry("charge without range", commands.Spec{Name: "charge_bead_type", Target: "P", Params: map[string]float64{"strength": 1}}, false),
		Entry("charge", commands.Spec{Name: "charge_bead_type", Target: "P", Params: map[string]float64{"strength": 1, "range": 0.5}}, true),
	)

	It("validates targets against the state", func() {
		_, err := reg.BuildAll([]commands.Spec{
			{Name: "freeze_type", Target: "Q"},
		}, dimer())
		Expect(err).To(MatchError(dynamo.ErrConfig))

		_, err = reg.BuildAll([]commands.Spec{
			{Name: "set_bond_strength", Params: map[string]float64{"bond_type": 3, "spring": 1}},
		}, dimer())
		Expect(err).To(MatchError(dynamo.ErrConfig))

		cmds, err := reg.BuildAll([]commands.Spec{
			{Name: "freeze_type", Target: "P", At: 4},
			{Name: "stop", At: 9},
		}, dimer())
		Expect(err).NotTo(HaveOccurred())
		Expect(cmds).To(HaveLen(2))
		Expect(cmds[0].At()).To(Equal(int64(4)))
	})
})

var _ = Describe("Scheduler", func() {
	var (
		reg *commands.Registry
		s   *sim.Simulator
	)

	BeforeEach(func() {
		reg = commands.NewRegistry()
		var err error
		s, err = sim.New(dimer(), options())
		Expect(err).NotTo(HaveOccurred())
	})

	schedule := func(specs ...commands.Spec) *commands.Scheduler {
		cmds, err := reg.BuildAll(specs, s.State())
		Expect(err).NotTo(HaveOccurred())
		sch := commands.NewScheduler(cmds, nil)
		s.AddHook(sch)
		return sch
	}

	It("adds a labelled force for its duration", func() {
		schedule(commands.Spec{Name: "constant_force", At: 2, Target: "P",
			Params: map[string]float64{"x": 1, "duration": 3}})

		_, err := s.Run(context.Background(), 3)
		Expect(err).NotTo(HaveOccurred())
		fs := s.Forces()
		Expect(fs).To(HaveLen(1))
		Expect(fs[0].Label).To(Equal("constant_force@2"))
		Expect(fs[0].Beads).To(Equal([]int{1}))

		_, err = s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Forces()).To(BeEmpty())
	})

	It("runs step zero commands from Start", func() {
		sch := schedule(
			commands.Spec{Name: "gravity_on", Params: map[string]float64{"z": -2}},
			commands.Spec{Name: "gravity_off", At: 5},
		)
		Expect(sch.Start(s.View(), s.Control())).To(Succeed())
		Expect(sch.Pending()).To(HaveLen(1))

		_, err := s.Run(context.Background(), 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Forces()).To(HaveLen(1))
		Expect(s.Forces()[0].Label).To(Equal(sim.GravityLabel))

		_, err = s.Run(context.Background(), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Forces()).To(BeEmpty())
		Expect(sch.Pending()).To(BeEmpty())
	})

	It("toggles the thermostat", func() {
		schedule(
			commands.Spec{Name: "toggle_thermostat", At: 1},
			commands.Spec{Name: "toggle_thermostat", At: 3},
		)
		_, err := s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Thermostat()).To(BeFalse())
		_, err = s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Thermostat()).To(BeTrue())
	})

	It("cancels two toggles queued in the same step", func() {
		schedule(
			commands.Spec{Name: "toggle_thermostat", At: 1},
			commands.Spec{Name: "toggle_thermostat", At: 1},
			commands.Spec{Name: "toggle_thermostat", At: 3},
		)
		_, err := s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Thermostat()).To(BeTrue())
		_, err = s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Thermostat()).To(BeFalse())
	})

	It("changes the temperature", func() {
		schedule(commands.Spec{Name: "set_temperature", At: 2,
			Params: map[string]float64{"temperature": 0.5}})
		_, err := s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Temperature()).To(Equal(1.0))
		_, err = s.Run(context.Background(), 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Temperature()).To(Equal(0.5))
	})

	It("charges a bead type", func() {
		schedule(commands.Spec{Name: "charge_bead_type", At: 1, Target: "P",
			Params: map[string]float64{"strength": 3, "range": 0.4}})
		Expect(s.Charges()).To(BeNil())
		_, err := s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Charges()).To(Equal([]forces.Charge{{}, {Strength: 3, Range: 0.4}}))

		cp, err := s.Checkpoint()
		Expect(err).NotTo(HaveOccurred())
		restored, err := sim.Restore(cp, options())
		Expect(err).NotTo(HaveOccurred())
		Expect(restored.Charges()).To(Equal(s.Charges()))
	})

	It("freezes a bead type", func() {
		schedule(commands.Spec{Name: "freeze_type", At: 1, Target: "P"})
		_, err := s.Run(context.Background(), 3)
		Expect(err).NotTo(HaveOccurred())
		st := s.State()
		Expect(st.Beads[1].Frozen).To(BeTrue())
		Expect(st.Beads[1].Vel.X).To(BeZero())
		Expect(st.Beads[0].Frozen).To(BeFalse())
	})

	It("changes bond strength", func() {
		schedule(commands.Spec{Name: "set_bond_strength", At: 1,
			Params: map[string]float64{"bond_type": 0, "spring": 40}})
		_, err := s.Run(context.Background(), 2)
		Expect(err).NotTo(HaveOccurred())
		b := s.State().Bonds[0]
		Expect(b.Spring).To(Equal(40.0))
		Expect(b.Length).To(Equal(0.5))
	})

	It("stops the run", func() {
		schedule(commands.Spec{Name: "stop", At: 4})
		res, err := s.Run(context.Background(), 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stopped).To(BeTrue())
		Expect(res.StepsTaken).To(Equal(int64(4)))
	})

	It("skips commands already applied before a resume", func() {
		sch := schedule(
			commands.Spec{Name: "stop", At: 2},
			commands.Spec{Name: "stop", At: 6},
		)
		sch.Skip(2)
		res, err := s.Run(context.Background(), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StepsTaken).To(Equal(int64(6)))
	})
})
