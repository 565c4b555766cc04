package results

import (
	"fmt"
	"math"
	"sort"
)

// Mean returns the pointwise ensemble mean as a synthetic trajectory.
func (e *Ensemble) Mean() (*Trajectory, error) {
	return e.aggregate(func(vals []float64) float64 {
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals))
	})
}

// Std returns the pointwise ensemble standard deviation as a synthetic
// trajectory.
func (e *Ensemble) Std() (*Trajectory, error) {
	return e.aggregate(func(vals []float64) float64 {
		mean := 0.0
		for _, v := range vals {
			mean += v
		}
		mean /= float64(len(vals))
		ss := 0.0
		for _, v := range vals {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(vals)))
	})
}

func (e *Ensemble) aggregate(fn func([]float64) float64) (*Trajectory, error) {
	if len(e.Trajectories) == 0 {
		return nil, fmt.Errorf("ensemble %s has no trajectories", e.RunID)
	}
	first := e.Trajectories[0]
	n := first.Points()
	for _, tr := range e.Trajectories[1:] {
		if tr.Points() != n {
			return nil, fmt.Errorf("trajectories have unequal save points (%d vs %d)", n, tr.Points())
		}
	}
	out := NewTrajectory(first.Species, n)
	out.Time = append(out.Time, first.Time...)
	vals := make([]float64, len(e.Trajectories))
	for _, s := range first.Species {
		col := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			for k, tr := range e.Trajectories {
				vals[k] = tr.Values[s][i]
			}
			col = append(col, fn(vals))
		}
		out.Values[s] = col
	}
	return out, nil
}

// Stats computes a per-species summary over all trajectories and points.
func (e *Ensemble) Stats() map[string]Stat {
	if len(e.Trajectories) == 0 {
		return nil
	}
	out := make(map[string]Stat)
	for _, s := range e.Trajectories[0].Species {
		var all []float64
		for _, tr := range e.Trajectories {
			all = append(all, tr.Values[s]...)
		}
		out[s] = summarize(all)
	}
	return out
}

func summarize(vals []float64) Stat {
	st := Stat{Min: math.Inf(1), Max: math.Inf(-1)}
	if len(vals) == 0 {
		return Stat{}
	}
	sum := 0.0
	for _, v := range vals {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		sum += v
	}
	st.Mean = sum / float64(len(vals))
	ss := 0.0
	for _, v := range vals {
		d := v - st.Mean
		ss += d * d
	}
	st.Std = math.Sqrt(ss / float64(len(vals)))

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		st.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		st.Median = sorted[mid]
	}
	return st
}

// CheckConservation verifies that the summed population of the given
// species stays within tol of its initial value across every trajectory.
func (e *Ensemble) CheckConservation(species []string, tol float64) Conservation {
	c := Conservation{Conserved: true}
	if len(e.Trajectories) == 0 {
		return c
	}
	for _, s := range species {
		c.Initial += e.Trajectories[0].Values[s][0]
	}
	for _, tr := range e.Trajectories {
		for i := 0; i < tr.Points(); i++ {
			total := 0.0
			for _, s := range species {
				total += tr.Values[s][i]
			}
			drift := math.Abs(total - c.Initial)
			if drift > c.MaxDrift {
				c.MaxDrift = drift
			}
		}
	}
	if c.MaxDrift > tol {
		c.Conserved = false
	}
	return c
}
