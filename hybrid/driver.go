package hybrid

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/results"
	"github.com/gillespy-xyz/go-gillespy/sim"
	"github.com/gillespy-xyz/go-gillespy/tau"
)

const Name = "hybrid"

// Run simulates the configured number of hybrid trajectories in
// parallel and assembles the ensemble.
func Run(ctx context.Context, m *model.Model, cfg sim.Config) (*results.Ensemble, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	names := make([]string, len(m.Species))
	rounded := make([]bool, len(m.Species))
	for i, s := range m.Species {
		names[i] = s.Name
		rounded[i] = s.Mode == model.ModeDiscrete
	}
	points := cfg.SavePoints()

	trajs := sim.RunParallel(ctx, cfg, func(ctx context.Context, idx int, rng *rand.Rand) *results.Trajectory {
		return simulate(ctx, m, cfg, names, rounded, points, rng)
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

// simulate runs one trajectory: every macro step selects a candidate
// step size, reclassifies the partition, and advances the jump-diffusion
// state with the implicit integrator.
func simulate(ctx context.Context, m *model.Model, cfg sim.Config, names []string, rounded []bool, points []float64, rng *rand.Rand) *results.Trajectory {
	tr := results.NewTrajectory(names, len(points))
	in := newIntegrator(m, rng)
	y := in.initState()
	state := y[:in.nS]

	selector := tau.NewSelector(m, cfg.TauTol)
	cls := newClassifier(m)
	cls.tolOverride = cfg.SwitchTol
	part := newPartition(m)
	prevDet := make([]bool, len(m.Species))
	cache := newPlanCache()

	env := m.NewEnv()
	props := make([]float64, len(m.Reactions))
	endTime := points[len(points)-1]

	t := 0.0
	next := 0
	tr.Record(points[next], state, rounded)
	next++

	for next < len(points) {
		if ctx.Err() != nil {
			tr.Status = results.StatusTimedOut
			return tr
		}
		copy(env, state)
		env[m.TimeIndex()] = t
		m.Propensities(env, props)

		candidate, _ := selector.Choose(state, props, endTime-t)
		if t+candidate > points[next] {
			candidate = points[next] - t
		}
		cls.classify(part, state, props, candidate)
		// A species leaving continuous treatment resumes discrete
		// firing from an integer population.
		for i := range prevDet {
			if prevDet[i] && !part.detSpecies[i] {
				y[i] = math.Floor(y[i])
			}
		}
		copy(prevDet, part.detSpecies)
		in.plan = cache.get(m, part)

		committed, fired, rejections, err := in.step(t, y, candidate)
		if err != nil {
			tr.Status = results.StatusError
			tr.Error = err.Error()
			return tr
		}
		t += committed
		if cfg.Debug {
			tr.Steps = append(tr.Steps, results.StepTrace{Time: t, Tau: committed, Rejections: rejections, Firings: fired})
		}
		for next < len(points) && points[next] <= t+1e-9 {
			tr.Record(points[next], state, rounded)
			next++
		}
	}
	return tr
}
