// Package tauleap implements explicit tau-leaping with the
// critical-reaction channel of Cao, Gillespie and Petzold. Abundant
// reactions fire in Poisson-distributed batches; reactions close to
// exhausting a reactant fall back to one exact firing at a time.
package tauleap

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/results"
	"github.com/gillespy-xyz/go-gillespy/sim"
	"github.com/gillespy-xyz/go-gillespy/tau"
)

const Name = "tau-leaping"

// maxRejections bounds the tau-halving retry loop for a single step.
const maxRejections = 100

// Run simulates the configured number of approximate trajectories in
// parallel and assembles the ensemble.
func Run(ctx context.Context, m *model.Model, cfg sim.Config) (*results.Ensemble, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	names := make([]string, len(m.Species))
	for i, s := range m.Species {
		names[i] = s.Name
	}
	points := cfg.SavePoints()

	trajs := sim.RunParallel(ctx, cfg, func(ctx context.Context, idx int, rng *rand.Rand) *results.Trajectory {
		return simulate(ctx, m, cfg, names, points, rng)
	})

	ens := results.NewBuilder().
		WithModel(m.Name).
		WithSolver(Name).
		WithRun(cfg.Seed, cfg.EndTime, cfg.Increment).
		WithComputeTime(time.Since(start)).
		WithTrajectories(trajs).
		Build()
	return ens, nil
}

func simulate(ctx context.Context, m *model.Model, cfg sim.Config, names []string, points []float64, rng *rand.Rand) *results.Trajectory {
	tr := results.NewTrajectory(names, len(points))
	env := m.NewEnv()
	state := env[:len(m.Species)]
	props := make([]float64, len(m.Reactions))
	candidate := make([]float64, len(state))
	selector := tau.NewSelector(m, cfg.TauTol)
	endTime := points[len(points)-1]

	t := 0.0
	next := 0
	tr.Record(points[next], state, nil)
	next++

	for next < len(points) {
		if ctx.Err() != nil {
			tr.Status = results.StatusTimedOut
			return tr
		}
		env[m.TimeIndex()] = t
		total := m.Propensities(env, props)
		if total <= 0 {
			for ; next < len(points); next++ {
				tr.Record(points[next], state, nil)
			}
			return tr
		}

		step, critical := selector.Choose(state, props, endTime-t)

		// The critical channel fires at most one reaction per leap,
		// scheduled with its own exponential clock.
		critSum := 0.0
		for j, c := range critical {
			if c {
				critSum += props[j]
			}
		}
		critTime := endTime - t + 1
		if critSum > 0 {
			critTime = sim.Exponential(rng, critSum)
		}
		if critTime < step {
			step = critTime
		}

		rejections := 0
		firings := 0
		for {
			copy(candidate, state)
			firings = 0
			for j := range props {
				if critical[j] || props[j] <= 0 {
					continue
				}
				n := sim.Poisson(rng, props[j]*step)
				if n == 0 {
					continue
				}
				firings += int(n)
				for _, st := range m.Reactions[j].Net {
					candidate[st.Species] += float64(n) * float64(st.Coeff)
				}
			}
			if critSum > 0 && critTime <= step {
				j := pickReaction(rng, props, critical, critSum)
				firings++
				for _, st := range m.Reactions[j].Net {
					candidate[st.Species] += float64(st.Coeff)
				}
			}
			if !wentNegative(m, candidate) {
				break
			}
			rejections++
			step /= 2
			if step < tau.MinTau || rejections > maxRejections {
				err := &sim.ExecutionError{Solver: Name, Time: t,
					Reason: "leap size underflow while avoiding negative populations"}
				tr.Status = results.StatusError
				tr.Error = err.Error()
				return tr
			}
		}

		copy(state, candidate)
		t += step
		if cfg.Debug {
			tr.Steps = append(tr.Steps, results.StepTrace{Time: t, Tau: step, Rejections: rejections, Firings: firings})
		}
		for next < len(points) && points[next] <= t {
			tr.Record(points[next], state, nil)
			next++
		}
	}
	return tr
}

// pickReaction samples one critical reaction proportional to propensity.
func pickReaction(rng *rand.Rand, props []float64, critical []bool, critSum float64) int {
	target := rng.Float64() * critSum
	cum := 0.0
	last := 0
	for j := range props {
		if !critical[j] {
			continue
		}
		last = j
		cum += props[j]
		if target < cum {
			return j
		}
	}
	return last
}

func wentNegative(m *model.Model, state []float64) bool {
	for i, v := range state {
		if v < 0 && !m.Species[i].AllowNegative {
			return true
		}
	}
	return false
}
