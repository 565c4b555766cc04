// Package ssa implements the Gillespie direct-method stochastic
// simulation algorithm.
package ssa

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/results"
	"github.com/gillespy-xyz/go-gillespy/sim"
)

const Name = "ssa"

// Run simulates the configured number of exact trajectories in
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
		return simulate(ctx, m, names, points, rng)
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

func simulate(ctx context.Context, m *model.Model, names []string, points []float64, rng *rand.Rand) *results.Trajectory {
	tr := results.NewTrajectory(names, len(points))
	env := m.NewEnv()
	state := env[:len(m.Species)]
	props := make([]float64, len(m.Reactions))
	endTime := points[len(points)-1]

	t := 0.0
	next := 0 // index of the next unrecorded save point
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
			// Nothing can fire again: the state holds to the end.
			for ; next < len(points); next++ {
				tr.Record(points[next], state, nil)
			}
			return tr
		}

		t += sim.Exponential(rng, total)

		// Save points crossed by the jump keep the pre-jump state.
		for next < len(points) && points[next] <= t {
			tr.Record(points[next], state, nil)
			next++
		}
		if t > endTime {
			return tr
		}

		target := rng.Float64() * total
		cum := 0.0
		for j := range props {
			cum += props[j]
			if target < cum || j == len(props)-1 {
				for _, st := range m.Reactions[j].Net {
					state[st.Species] += float64(st.Coeff)
				}
				break
			}
		}
	}
	return tr
}
