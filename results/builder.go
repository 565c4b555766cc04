package results

import (
	"time"

	"github.com/google/uuid"
)

// Builder assembles an Ensemble from a finished run.
type Builder struct {
	e Ensemble
}

// NewBuilder creates a builder with a fresh run ID.
func NewBuilder() *Builder {
	return &Builder{e: Ensemble{
		Version:   SchemaVersion,
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}}
}

// WithModel sets the model name.
func (b *Builder) WithModel(name string) *Builder {
	b.e.Model = name
	return b
}

// WithSolver sets the generating solver's name.
func (b *Builder) WithSolver(name string) *Builder {
	b.e.Solver = name
	return b
}

// WithRun records the run parameters.
func (b *Builder) WithRun(seed int64, endTime, increment float64) *Builder {
	b.e.Seed = seed
	b.e.EndTime = endTime
	b.e.Increment = increment
	return b
}

// WithComputeTime records wall-clock duration.
func (b *Builder) WithComputeTime(d time.Duration) *Builder {
	b.e.ComputeTime = d.Seconds()
	return b
}

// WithTrajectories attaches the per-trajectory results.
func (b *Builder) WithTrajectories(trajs []*Trajectory) *Builder {
	b.e.Trajectories = trajs
	return b
}

// Build finalizes the ensemble. The run status aggregates trajectory
// statuses: any error wins, then any timeout, else completed.
func (b *Builder) Build() *Ensemble {
	status := StatusCompleted
	for _, tr := range b.e.Trajectories {
		switch tr.Status {
		case StatusError:
			status = StatusError
		case StatusTimedOut:
			if status != StatusError {
				status = StatusTimedOut
			}
		}
	}
	b.e.Status = status
	return &b.e
}
