package plotter

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/gillespy-xyz/go-gillespy/results"
)

// AsciiMean renders the ensemble mean of each named species as a
// terminal chart, one chart per species.
func AsciiMean(e *results.Ensemble, species []string, height, width int) (string, error) {
	mean, err := e.Mean()
	if err != nil {
		return "", err
	}
	if species == nil {
		species = mean.Species
	}
	out := ""
	for _, name := range species {
		vals, ok := mean.Values[name]
		if !ok {
			return "", fmt.Errorf("unknown species %q", name)
		}
		out += asciigraph.Plot(vals,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("%s (mean of %d trajectories)", name, len(e.Trajectories))),
		) + "\n\n"
	}
	return out, nil
}

// AsciiTrajectory renders one trajectory's species as terminal charts.
func AsciiTrajectory(tr *results.Trajectory, species []string, height, width int) (string, error) {
	if species == nil {
		species = tr.Species
	}
	out := ""
	for _, name := range species {
		vals, ok := tr.Values[name]
		if !ok {
			return "", fmt.Errorf("unknown species %q", name)
		}
		out += asciigraph.Plot(vals,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(name),
		) + "\n\n"
	}
	return out, nil
}
