package solver

import (
	"fmt"
	"math"
)

const (
	maxFixedPoint = 50
)

// StepEuler advances y by one explicit Euler step of size dt, writing
// the result into out. out may alias y.
func StepEuler(f Field, t float64, y []float64, dt float64, out []float64) {
	dy := make([]float64, len(y))
	f(t, y, dy)
	for i := range y {
		out[i] = y[i] + dt*dy[i]
	}
}

// StepTRBDF2 advances y by one TR-BDF2 step of size dt, writing the
// result into out. The method is a trapezoidal stage to t+gamma*dt
// followed by a BDF2 stage to t+dt, each solved by fixed-point
// iteration seeded with a forward Euler guess. An error is returned
// when an iteration fails to converge or produces a non-finite state;
// callers typically respond by halving dt and retrying.
func StepTRBDF2(f Field, t float64, y []float64, dt, tol float64, out []float64) error {
	n := len(y)
	gamma := 2.0 - math.Sqrt(2.0)

	dy0 := make([]float64, n)
	dyk := make([]float64, n)
	cur := make([]float64, n)
	next := make([]float64, n)

	f(t, y, dy0)

	// Trapezoidal stage to t + gamma*dt, forward Euler seed.
	tg := t + gamma*dt
	for i := range cur {
		cur[i] = y[i] + gamma*dt*dy0[i]
	}
	if err := fixedPoint(cur, next, tol, func() {
		f(tg, cur, dyk)
		for i := range next {
			next[i] = y[i] + 0.5*gamma*dt*(dy0[i]+dyk[i])
		}
	}); err != nil {
		return fmt.Errorf("trapezoidal stage at t=%g: %w", t, err)
	}
	ug := append([]float64(nil), cur...)

	// BDF2 stage to t + dt.
	// u_{n+1} = w1*u_gamma + w0*u_n + wf*dt*f(t+dt, u_{n+1})
	w1 := 1.0 / (gamma * (2 - gamma))
	w0 := -((1 - gamma) * (1 - gamma)) / (gamma * (2 - gamma))
	wf := (1 - gamma) / (2 - gamma)

	tn := t + dt
	f(tg, ug, dyk)
	for i := range cur {
		cur[i] = ug[i] + (1-gamma)*dt*dyk[i]
	}
	if err := fixedPoint(cur, next, tol, func() {
		f(tn, cur, dyk)
		for i := range next {
			next[i] = w1*ug[i] + w0*y[i] + wf*dt*dyk[i]
		}
	}); err != nil {
		return fmt.Errorf("bdf2 stage at t=%g: %w", t, err)
	}
	copy(out, cur)
	return nil
}

// fixedPoint iterates step, which reads cur and fills next, until the
// max-norm update falls below tol.
func fixedPoint(cur, next []float64, tol float64, step func()) error {
	for iter := 0; iter < maxFixedPoint; iter++ {
		step()
		maxDiff := 0.0
		for i := range cur {
			if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
				return fmt.Errorf("non-finite state in fixed-point iteration")
			}
			if d := math.Abs(next[i] - cur[i]); d > maxDiff {
				maxDiff = d
			}
		}
		copy(cur, next)
		if maxDiff < tol {
			return nil
		}
	}
	return fmt.Errorf("fixed-point iteration did not converge in %d iterations", maxFixedPoint)
}
