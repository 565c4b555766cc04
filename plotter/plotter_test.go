package plotter

import (
	"strings"
	"testing"

	"github.com/gillespy-xyz/go-gillespy/results"
)

func sampleEnsemble() *results.Ensemble {
	a := results.NewTrajectory([]string{"A"}, 3)
	a.Record(0, []float64{10}, nil)
	a.Record(1, []float64{6}, nil)
	a.Record(2, []float64{2}, nil)
	b := results.NewTrajectory([]string{"A"}, 3)
	b.Record(0, []float64{10}, nil)
	b.Record(1, []float64{8}, nil)
	b.Record(2, []float64{4}, nil)
	return results.NewBuilder().
		WithModel("decay").
		WithSolver("ssa").
		WithTrajectories([]*results.Trajectory{a, b}).
		Build()
}

func TestRenderBasicSVG(t *testing.T) {
	p := NewSVGPlotter(400, 300).SetTitle("t<1 & done")
	p.AddSeries([]float64{0, 1, 2}, []float64{1, 4, 9}, "sq", "")
	svg := p.Render()
	if !strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg"`) {
		t.Error("missing svg root")
	}
	if !strings.Contains(svg, "<path d=") {
		t.Error("missing series path")
	}
	if !strings.Contains(svg, "t&lt;1 &amp; done") {
		t.Error("title should be escaped")
	}
	if !strings.Contains(svg, ">sq</text>") {
		t.Error("missing legend entry")
	}
}

func TestRenderEmptyPlotter(t *testing.T) {
	svg := NewSVGPlotter(200, 100).Render()
	if !strings.Contains(svg, "</svg>") {
		t.Error("empty plot should still close")
	}
}

func TestPlotEnsemble(t *testing.T) {
	svg := PlotEnsemble(sampleEnsemble(), nil, 640, 480)
	if got := strings.Count(svg, "<path d="); got != 2 {
		t.Errorf("paths = %d, want one per trajectory", got)
	}
	if !strings.Contains(svg, "decay (ssa)") {
		t.Error("missing title")
	}
	if got := strings.Count(svg, ">A</text>"); got != 1 {
		t.Errorf("legend entries = %d, want 1", got)
	}
}

func TestPlotMean(t *testing.T) {
	svg, err := PlotMean(sampleEnsemble(), []string{"A"}, 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	// Mean plus upper and lower envelope.
	if got := strings.Count(svg, "<path d="); got != 3 {
		t.Errorf("paths = %d, want 3", got)
	}
}

func TestAsciiMean(t *testing.T) {
	out, err := AsciiMean(sampleEnsemble(), nil, 8, 40)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "A (mean of 2 trajectories)") {
		t.Errorf("missing caption in:\n%s", out)
	}
	if _, err := AsciiMean(sampleEnsemble(), []string{"nope"}, 8, 40); err == nil {
		t.Error("unknown species should error")
	}
}

func TestAsciiTrajectory(t *testing.T) {
	e := sampleEnsemble()
	out, err := AsciiTrajectory(e.Trajectories[0], []string{"A"}, 8, 40)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "A") {
		t.Error("missing caption")
	}
}
