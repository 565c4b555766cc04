// Package solver integrates the deterministic rate equations of a
// reaction network with embedded Runge-Kutta methods, and provides the
// implicit steppers used for stiff and hybrid integration.
package solver

import (
	"math"

	"github.com/gillespy-xyz/go-gillespy/model"
)

// Field computes the derivative dy/dt into dy for the state y at time t.
// dy and y have the same length and must not alias.
type Field func(t float64, y, dy []float64)

// Problem is an initial value problem for a compiled model: every
// reaction is treated as a continuous flux, plus any rate rules.
type Problem struct {
	M     *model.Model
	Y0    []float64  // initial species vector
	Tspan [2]float64 // [t0, tf]

	env   []float64
	props []float64
}

// NewProblem builds the vectorized rate-equation problem for m over the
// given time span.
func NewProblem(m *model.Model, tspan [2]float64) *Problem {
	p := &Problem{
		M:     m,
		Tspan: tspan,
		env:   m.NewEnv(),
		props: make([]float64, len(m.Reactions)),
	}
	p.Y0 = make([]float64, len(m.Species))
	for i, s := range m.Species {
		p.Y0[i] = s.Initial
	}
	return p
}

// F evaluates the vector field. Not safe for concurrent use; each
// goroutine needs its own Problem.
func (p *Problem) F(t float64, y, dy []float64) {
	m := p.M
	for i := range y {
		p.env[i] = y[i]
	}
	p.env[m.TimeIndex()] = t
	m.Propensities(p.env, p.props)

	for i := range dy {
		dy[i] = 0
	}
	for j, r := range m.Reactions {
		if p.props[j] == 0 {
			continue
		}
		for _, st := range r.Net {
			dy[st.Species] += float64(st.Coeff) * p.props[j]
		}
	}
	for k, rr := range m.RateRules {
		dy[rr.Species] = m.RateRuleDeriv(k, p.env)
	}
}

// Solution holds the accepted integration steps.
type Solution struct {
	T       []float64
	Y       [][]float64
	Species []string
	Steps   int
}

// Variable extracts the time series of one species by name.
func (s *Solution) Variable(name string) []float64 {
	idx := -1
	for i, n := range s.Species {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(s.Y))
	for i, y := range s.Y {
		out[i] = y[idx]
	}
	return out
}

// Final returns the last state vector, or nil for an empty solution.
func (s *Solution) Final() []float64 {
	if len(s.Y) == 0 {
		return nil
	}
	return s.Y[len(s.Y)-1]
}

// Sample linearly interpolates the solution onto the given time grid.
func (s *Solution) Sample(times []float64) [][]float64 {
	out := make([][]float64, len(times))
	k := 0
	for i, t := range times {
		for k < len(s.T)-1 && s.T[k+1] < t {
			k++
		}
		row := make([]float64, len(s.Species))
		if k == len(s.T)-1 || t <= s.T[k] {
			copy(row, s.Y[k])
		} else {
			t0, t1 := s.T[k], s.T[k+1]
			w := (t - t0) / (t1 - t0)
			for j := range row {
				row[j] = s.Y[k][j]*(1-w) + s.Y[k+1][j]*w
			}
		}
		out[i] = row
	}
	return out
}

// Options holds integration parameters.
type Options struct {
	Dt       float64 // initial step
	Dtmin    float64 // smallest step before forcing acceptance
	Dtmax    float64 // largest step
	Abstol   float64 // absolute error tolerance
	Reltol   float64 // relative error tolerance
	Maxiters int     // step budget
	Adaptive bool    // embedded error control
}

// DefaultOptions returns balanced settings suitable for most models.
func DefaultOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.5,
		Abstol:   1e-6,
		Reltol:   1e-3,
		Maxiters: 100000,
		Adaptive: true,
	}
}

// AccurateOptions returns high-precision settings.
func AccurateOptions() *Options {
	return &Options{
		Dt:       0.001,
		Dtmin:    1e-8,
		Dtmax:    0.1,
		Abstol:   1e-9,
		Reltol:   1e-6,
		Maxiters: 1000000,
		Adaptive: true,
	}
}

// StiffOptions returns settings for systems with widely varying time
// scales.
func StiffOptions() *Options {
	return &Options{
		Dt:       0.001,
		Dtmin:    1e-10,
		Dtmax:    0.01,
		Abstol:   1e-8,
		Reltol:   1e-5,
		Maxiters: 500000,
		Adaptive: true,
	}
}

// Solve integrates the problem with the given method. A nil method
// selects Tsit5; nil options select DefaultOptions.
func Solve(prob *Problem, method *Method, opts *Options) *Solution {
	if method == nil {
		method = Tsit5()
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	t0, tf := prob.Tspan[0], prob.Tspan[1]
	n := len(prob.Y0)
	stages := len(method.C)

	sol := &Solution{
		T:       []float64{t0},
		Y:       [][]float64{append([]float64(nil), prob.Y0...)},
		Species: speciesNames(prob.M),
	}
	tcur := t0
	ucur := append([]float64(nil), prob.Y0...)
	dtcur := opts.Dt

	k := make([][]float64, stages)
	for i := range k {
		k[i] = make([]float64, n)
	}
	ustage := make([]float64, n)

	for tcur < tf && sol.Steps < opts.Maxiters {
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		prob.F(tcur, ucur, k[0])
		for stage := 1; stage < stages; stage++ {
			copy(ustage, ucur)
			for j := 0; j < stage && j < len(method.A[stage]); j++ {
				if a := method.A[stage][j]; a != 0 {
					scale := dtcur * a
					for i := 0; i < n; i++ {
						ustage[i] += scale * k[j][i]
					}
				}
			}
			prob.F(tcur+method.C[stage]*dtcur, ustage, k[stage])
		}

		unext := append([]float64(nil), ucur...)
		for j, b := range method.B {
			if b != 0 {
				scale := dtcur * b
				for i := 0; i < n; i++ {
					unext[i] += scale * k[j][i]
				}
			}
		}

		errNorm := 0.0
		if opts.Adaptive {
			for i := 0; i < n; i++ {
				est := 0.0
				for j, bh := range method.Bhat {
					est += dtcur * bh * k[j][i]
				}
				scale := opts.Abstol + opts.Reltol*math.Max(math.Abs(ucur[i]), math.Abs(unext[i]))
				if scale == 0 {
					scale = opts.Abstol
				}
				if v := math.Abs(est) / scale; v > errNorm {
					errNorm = v
				}
			}
		}

		if !opts.Adaptive || errNorm <= 1.0 || dtcur <= opts.Dtmin {
			tcur += dtcur
			ucur = unext
			sol.T = append(sol.T, tcur)
			sol.Y = append(sol.Y, append([]float64(nil), ucur...))
			sol.Steps++
			if opts.Adaptive && errNorm > 0 {
				factor := 0.9 * math.Pow(1.0/errNorm, 1.0/float64(method.Order+1))
				factor = math.Min(factor, 5.0)
				dtcur = math.Min(opts.Dtmax, math.Max(opts.Dtmin, dtcur*factor))
			}
		} else {
			factor := 0.9 * math.Pow(1.0/errNorm, 1.0/float64(method.Order+1))
			factor = math.Max(factor, 0.1)
			dtcur = math.Max(opts.Dtmin, dtcur*factor)
		}
	}
	return sol
}

func speciesNames(m *model.Model) []string {
	out := make([]string, len(m.Species))
	for i, s := range m.Species {
		out[i] = s.Name
	}
	return out
}
