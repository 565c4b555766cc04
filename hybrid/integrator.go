package hybrid

import (
	"math"
	"math/rand/v2"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/sim"
	"github.com/gillespy-xyz/go-gillespy/solver"
)

const (
	// implicitTol is the fixed-point convergence tolerance for TR-BDF2.
	implicitTol = 1e-8

	// minStep is the smallest macro step before the retry loop gives up.
	minStep = 1e-10

	// maxRetries bounds step halving within one macro step.
	maxRetries = 100

	// maxFireLoop bounds jump firings within one macro step.
	maxFireLoop = 100
)

// integrator advances the extended state vector
// [species 0..S-1, clock 0..R-1] through one macro step at a time.
// Stochastic reaction j carries a clock y[S+j] initialized to ln U for
// uniform U; its derivative is the reaction propensity, and the
// reaction fires when the clock reaches zero.
type integrator struct {
	m    *model.Model
	rng  *rand.Rand
	nS   int
	plan *fieldPlan

	env   []float64
	props []float64
	ynew  []float64
	snap  []float64
}

func newIntegrator(m *model.Model, rng *rand.Rand) *integrator {
	n := len(m.Species) + len(m.Reactions)
	return &integrator{
		m:     m,
		rng:   rng,
		nS:    len(m.Species),
		env:   m.NewEnv(),
		props: make([]float64, len(m.Reactions)),
		ynew:  make([]float64, n),
		snap:  make([]float64, n),
	}
}

// initState builds the initial extended state vector.
func (in *integrator) initState() []float64 {
	y := make([]float64, in.nS+len(in.m.Reactions))
	for i, s := range in.m.Species {
		y[i] = s.Initial
	}
	for j := range in.m.Reactions {
		y[in.nS+j] = sim.LogUniform(in.rng)
	}
	return y
}

// field is the vector field for the current plan. Deterministic
// reactions contribute net flux to their species; stochastic reactions
// advance their clocks at the propensity rate. Rate rules override the
// species derivative.
func (in *integrator) field(t float64, y, dy []float64) {
	m := in.m
	copy(in.env, y[:in.nS])
	in.env[m.TimeIndex()] = t
	m.Propensities(in.env, in.props)

	for i := range dy {
		dy[i] = 0
	}
	for _, j := range in.plan.det {
		if in.props[j] == 0 {
			continue
		}
		for _, st := range m.Reactions[j].Net {
			dy[st.Species] += float64(st.Coeff) * in.props[j]
		}
	}
	for k, rr := range m.RateRules {
		dy[rr.Species] = m.RateRuleDeriv(k, in.env)
	}
	for _, j := range in.plan.stoch {
		dy[in.nS+j] = in.props[j]
	}
}

// step advances y by one macro step of at most tau. An attempt is the
// implicit solve, the jump firings it triggers, and the population
// check on the fired state; an attempt that breaches a floor is
// rejected and retried at tau/2 from the snapshot. When the implicit
// solve itself fails, a single explicit Euler step over the same
// interval stands in and the population check judges its result. It
// returns the committed step size and the number of jump firings.
func (in *integrator) step(t float64, y []float64, tau float64) (float64, int, int, error) {
	copy(in.snap, y)
	rejections := 0
	for {
		if err := solver.StepTRBDF2(in.field, t, in.snap, tau, implicitTol, in.ynew); err != nil {
			solver.StepEuler(in.field, t, in.snap, tau, in.ynew)
		}
		fired, err := in.fire(in.ynew)
		if err != nil {
			return 0, 0, rejections, err
		}
		if !in.rejected(in.ynew) {
			copy(y, in.ynew)
			return tau, fired, rejections, nil
		}
		rejections++
		tau /= 2
		if tau < minStep || rejections > maxRetries {
			return 0, 0, rejections, &sim.ExecutionError{Solver: Name, Time: t,
				Reason: "step size underflow while avoiding negative populations"}
		}
	}
}

// rejected reports whether the proposed post-firing state breaches a
// population floor. Species without the allow_negative flag must stay
// non-negative; clocks are exempt.
func (in *integrator) rejected(y []float64) bool {
	for i, s := range in.m.Species {
		if math.IsNaN(y[i]) {
			return true
		}
		if y[i] < 0 && !s.AllowNegative {
			return true
		}
	}
	return false
}

// fire applies every stochastic reaction whose clock has reached zero,
// redrawing its offset, and repeats until no clock is ready.
func (in *integrator) fire(y []float64) (int, error) {
	fired := 0
	for loop := 0; ; loop++ {
		if loop >= maxFireLoop {
			return fired, &sim.ExecutionError{Solver: Name,
				Reason: "jump firing loop did not drain"}
		}
		ready := false
		for _, j := range in.plan.stoch {
			if y[in.nS+j] < 0 {
				continue
			}
			ready = true
			fired++
			for _, st := range in.m.Reactions[j].Net {
				y[st.Species] += float64(st.Coeff)
			}
			y[in.nS+j] = sim.LogUniform(in.rng)
		}
		if !ready {
			return fired, nil
		}
	}
}
