// Package sim holds the shared run configuration, random number
// utilities, and the parallel trajectory driver used by every solver.
package sim

import (
	"fmt"
	"math"
	"time"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultEndTime      = 20.0
	DefaultIncrement    = 0.05
	DefaultTrajectories = 1
	DefaultTauTol       = 0.03
)

// Config controls a simulation run.
type Config struct {
	EndTime      float64       // simulated end time
	Increment    float64       // save-point spacing
	Trajectories int           // number of realizations
	Seed         int64         // base RNG seed; 0 means derive from clock
	TauTol       float64       // tau-selection error tolerance
	SwitchTol    float64       // default hybrid switching tolerance
	Timeout      time.Duration // wall-clock limit; 0 means none
	Debug        bool          // record per-step traces
}

// TimespanError reports an invalid time grid.
type TimespanError struct {
	Reason string
}

func (e *TimespanError) Error() string {
	return fmt.Sprintf("sim: invalid timespan: %s", e.Reason)
}

// ExecutionError reports a solver that could not make progress.
type ExecutionError struct {
	Solver string
	Time   float64
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sim: %s failed at t=%g: %s", e.Solver, e.Time, e.Reason)
}

// WithDefaults fills zero-valued fields and returns the updated config.
func (c Config) WithDefaults() Config {
	if c.EndTime == 0 {
		c.EndTime = DefaultEndTime
	}
	if c.Increment == 0 {
		c.Increment = DefaultIncrement
	}
	if c.Trajectories == 0 {
		c.Trajectories = DefaultTrajectories
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.TauTol == 0 {
		c.TauTol = DefaultTauTol
	}
	return c
}

// Validate checks the time grid.
func (c Config) Validate() error {
	if c.EndTime <= 0 || math.IsNaN(c.EndTime) || math.IsInf(c.EndTime, 0) {
		return &TimespanError{Reason: fmt.Sprintf("end time %g must be positive and finite", c.EndTime)}
	}
	if c.Increment <= 0 || math.IsNaN(c.Increment) {
		return &TimespanError{Reason: fmt.Sprintf("increment %g must be positive", c.Increment)}
	}
	n := c.EndTime / c.Increment
	if math.Abs(n-math.Round(n)) > 1e-9*n {
		return &TimespanError{Reason: fmt.Sprintf("increment %g does not divide end time %g", c.Increment, c.EndTime)}
	}
	if c.Trajectories < 1 {
		return &TimespanError{Reason: fmt.Sprintf("trajectory count %d must be at least 1", c.Trajectories)}
	}
	return nil
}

// SavePoints returns the output time grid, including t=0 and EndTime.
func (c Config) SavePoints() []float64 {
	n := int(math.Round(c.EndTime / c.Increment))
	pts := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = float64(i) * c.Increment
	}
	pts[n] = c.EndTime
	return pts
}
