package integrators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// DefaultLambda is the Groot-Warren predictor weight.
const DefaultLambda = 0.65

// DPDVerlet is the modified velocity Verlet scheme of Groot and Warren:
//
//	v(t+dt/2) = v(t) + dt/2 f(t)/m
//	x(t+dt)   = x(t) + dt v(t+dt/2)
//	ṽ(t+dt)   = v(t+dt/2) + (λ - 1/2) dt f(t)/m
//	f(t+dt)   = f(x(t+dt), ṽ(t+dt))
//	v(t+dt)   = v(t+dt/2) + dt/2 f(t+dt)/m
//
// λ = 1/2 recovers plain velocity Verlet.
type DPDVerlet struct {
	Lambda float64

	pred []r3.Vec
}

func NewDPDVerlet(lambda float64) (*DPDVerlet, error) {
	if !(lambda >= 0 && lambda <= 1) {
		return nil, dynamo.Configf("verlet lambda must lie in [0, 1], got %g", lambda)
	}
	return &DPDVerlet{Lambda: lambda}, nil
}

func (v *DPDVerlet) Name() string {
	if v.Lambda == 0.5 {
		return "velocity-verlet"
	}
	return fmt.Sprintf("dpd-verlet(λ=%.2f)", v.Lambda)
}

// FirstHalfKick advances velocities by half a step with the current forces
// and drifts positions by a full step. It also records the predictor velocity
// returned by Predictor. Frozen beads are held at rest. A bead that would
// travel further than one box length fails with ErrUnstable.
func (v *DPDVerlet) FirstHalfKick(st *dynamo.State, dt float64) error {
	n := len(st.Beads)
	if cap(v.pred) < n {
		v.pred = make([]r3.Vec, n)
	}
	v.pred = v.pred[:n]

	halfDt := 0.5 * dt
	predDt := (v.Lambda - 0.5) * dt
	box := st.Box

	for i := range st.Beads {
		b := &st.Beads[i]
		if b.Frozen {
			b.Vel = r3.Vec{}
			v.pred[i] = r3.Vec{}
			continue
		}
		invM := 1 / st.BeadTypes[b.Type].Mass
		b.Vel = r3.Add(b.Vel, r3.Scale(halfDt*invM, b.Force))
		step := r3.Scale(dt, b.Vel)
		if math.Abs(step.X) > box.L.X || math.Abs(step.Y) > box.L.Y || math.Abs(step.Z) > box.L.Z {
			return &dynamo.SimulationError{Step: st.Step, Phase: "integrate", Bead: i,
				Wrapped: fmt.Errorf("%w: displacement %v", dynamo.ErrUnstable, step)}
		}
		b.Pos = r3.Add(b.Pos, step)
		v.pred[i] = r3.Add(b.Vel, r3.Scale(predDt*invM, b.Force))
	}
	return nil
}

// Predictor returns the velocities the dissipative force should see during
// the force recomputation that follows FirstHalfKick. The slice is reused.
func (v *DPDVerlet) Predictor() []r3.Vec {
	return v.pred
}

// SecondHalfKick completes the step with the freshly computed forces.
func (v *DPDVerlet) SecondHalfKick(st *dynamo.State, dt float64) {
	halfDt := 0.5 * dt
	for i := range st.Beads {
		b := &st.Beads[i]
		if b.Frozen {
			continue
		}
		invM := 1 / st.BeadTypes[b.Type].Mass
		b.Vel = r3.Add(b.Vel, r3.Scale(halfDt*invM, b.Force))
	}
}

// CheckFinite returns the index of the first bead with a NaN or Inf
// position, velocity or force, wrapped in ErrInvalidState.
func CheckFinite(beads []dynamo.Bead) (int, error) {
	for i := range beads {
		b := &beads[i]
		if !dynamo.IsFinite(b.Pos) || !dynamo.IsFinite(b.Vel) || !dynamo.IsFinite(b.Force) {
			return i, dynamo.ErrInvalidState
		}
	}
	return -1, nil
}
