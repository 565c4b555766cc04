package solver

import (
	"context"
	"time"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/results"
	"github.com/gillespy-xyz/go-gillespy/sim"
)

// Run integrates the deterministic rate equations and returns the
// trajectory sampled on the configured save-point grid. The run is
// deterministic, so a single trajectory is produced regardless of the
// configured trajectory count. The context is checked between save
// intervals; on expiry the partial trajectory is marked timed out.
func Run(ctx context.Context, m *model.Model, cfg sim.Config, method *Method, opts *Options) (*results.Ensemble, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	points := cfg.SavePoints()
	tr := results.NewTrajectory(speciesNames(m), len(points))

	y := make([]float64, len(m.Species))
	for i, s := range m.Species {
		y[i] = s.Initial
	}
	tr.Record(points[0], y, nil)

	for i := 1; i < len(points); i++ {
		if ctx.Err() != nil {
			tr.Status = results.StatusTimedOut
			break
		}
		prob := NewProblem(m, [2]float64{points[i-1], points[i]})
		copy(prob.Y0, y)
		sol := Solve(prob, method, opts)
		copy(y, sol.Final())
		tr.Record(points[i], y, nil)
	}

	name := "ode"
	if method != nil {
		name = "ode-" + method.Name
	}
	ens := results.NewBuilder().
		WithModel(m.Name).
		WithSolver(name).
		WithRun(cfg.Seed, cfg.EndTime, cfg.Increment).
		WithComputeTime(time.Since(start)).
		WithTrajectories([]*results.Trajectory{tr}).
		Build()
	return ens, nil
}
