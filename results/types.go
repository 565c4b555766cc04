// Package results defines the structured output format for stochastic
// and deterministic simulation runs.
package results

import (
	"math"
	"time"
)

const SchemaVersion = "1.0.0"

// Status describes how a run or trajectory finished.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
	StatusError     Status = "error"
)

// Trajectory is one realization of the system: species populations
// recorded at each save point.
type Trajectory struct {
	Time    []float64            `json:"time"`
	Species []string             `json:"species"`
	Values  map[string][]float64 `json:"values"`
	Status  Status               `json:"status"`
	Error   string               `json:"error,omitempty"`
	Steps   []StepTrace          `json:"steps,omitempty"`
}

// StepTrace records one macro-step of an adaptive solver, emitted only
// when debug tracing is enabled.
type StepTrace struct {
	Time       float64 `json:"time"`
	Tau        float64 `json:"tau"`
	Rejections int     `json:"rejections,omitempty"`
	Firings    int     `json:"firings,omitempty"`
}

// NewTrajectory creates an empty trajectory for the given species, with
// capacity for the expected number of save points.
func NewTrajectory(species []string, points int) *Trajectory {
	tr := &Trajectory{
		Time:    make([]float64, 0, points),
		Species: append([]string(nil), species...),
		Values:  make(map[string][]float64, len(species)),
		Status:  StatusCompleted,
	}
	for _, s := range species {
		tr.Values[s] = make([]float64, 0, points)
	}
	return tr
}

// Record appends a save point. Species flagged in rounded are emitted as
// integers; the rest keep their continuous value.
func (tr *Trajectory) Record(t float64, state []float64, rounded []bool) {
	tr.Time = append(tr.Time, t)
	for i, s := range tr.Species {
		v := state[i]
		if rounded != nil && rounded[i] {
			v = math.Round(v)
		}
		tr.Values[s] = append(tr.Values[s], v)
	}
}

// Points returns the number of recorded save points.
func (tr *Trajectory) Points() int { return len(tr.Time) }

// At returns the state at save point i as a name→value map.
func (tr *Trajectory) At(i int) map[string]float64 {
	if i < 0 || i >= len(tr.Time) {
		return nil
	}
	out := make(map[string]float64, len(tr.Species))
	for _, s := range tr.Species {
		out[s] = tr.Values[s][i]
	}
	return out
}

// Final returns the last recorded state, or nil for an empty trajectory.
func (tr *Trajectory) Final() map[string]float64 {
	return tr.At(len(tr.Time) - 1)
}

// Ensemble is the output of a multi-trajectory run.
type Ensemble struct {
	Version      string        `json:"version"`
	RunID        string        `json:"runId"`
	Model        string        `json:"model"`
	Solver       string        `json:"solver"`
	Status       Status        `json:"status"`
	Seed         int64         `json:"seed"`
	EndTime      float64       `json:"endTime"`
	Increment    float64       `json:"increment"`
	ComputeTime  float64       `json:"computeTime"` // seconds
	Timestamp    time.Time     `json:"timestamp"`
	Trajectories []*Trajectory `json:"trajectories"`
}

// Stat is a per-variable statistical summary.
type Stat struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// Conservation reports whether the summed population stayed constant.
type Conservation struct {
	Initial   float64 `json:"initial"`
	MaxDrift  float64 `json:"maxDrift"`
	Conserved bool    `json:"conserved"`
}
