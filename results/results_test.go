package results

import (
	"math"
	"testing"
	"time"
)

func sampleTrajectory(scale float64) *Trajectory {
	tr := NewTrajectory([]string{"A", "B"}, 3)
	tr.Record(0, []float64{10 * scale, 0}, nil)
	tr.Record(1, []float64{6 * scale, 4 * scale}, nil)
	tr.Record(2, []float64{2 * scale, 8 * scale}, nil)
	return tr
}

func TestTrajectoryRecord(t *testing.T) {
	tr := NewTrajectory([]string{"X"}, 2)
	tr.Record(0, []float64{2.7}, []bool{true})
	tr.Record(1, []float64{2.7}, []bool{false})
	if got := tr.Values["X"][0]; got != 3 {
		t.Errorf("rounded value = %v, want 3", got)
	}
	if got := tr.Values["X"][1]; got != 2.7 {
		t.Errorf("continuous value = %v, want 2.7", got)
	}
	final := tr.Final()
	if final["X"] != 2.7 {
		t.Errorf("final = %v", final)
	}
}

func TestBuilderStatusAggregation(t *testing.T) {
	ok := sampleTrajectory(1)
	timedOut := sampleTrajectory(1)
	timedOut.Status = StatusTimedOut
	failed := sampleTrajectory(1)
	failed.Status = StatusError
	failed.Error = "tau underflow"

	cases := []struct {
		trajs []*Trajectory
		want  Status
	}{
		{[]*Trajectory{ok, ok}, StatusCompleted},
		{[]*Trajectory{ok, timedOut}, StatusTimedOut},
		{[]*Trajectory{timedOut, failed, ok}, StatusError},
	}
	for _, c := range cases {
		e := NewBuilder().
			WithModel("decay").
			WithSolver("ssa").
			WithRun(42, 2, 1).
			WithComputeTime(time.Millisecond).
			WithTrajectories(c.trajs).
			Build()
		if e.Status != c.want {
			t.Errorf("status = %q, want %q", e.Status, c.want)
		}
		if e.RunID == "" {
			t.Error("missing run ID")
		}
	}
}

func TestEnsembleMeanAndStd(t *testing.T) {
	e := NewBuilder().WithTrajectories([]*Trajectory{
		sampleTrajectory(1),
		sampleTrajectory(3),
	}).Build()

	mean, err := e.Mean()
	if err != nil {
		t.Fatal(err)
	}
	// A at t=0: mean(10, 30) = 20
	if got := mean.Values["A"][0]; got != 20 {
		t.Errorf("mean = %v, want 20", got)
	}
	std, err := e.Std()
	if err != nil {
		t.Fatal(err)
	}
	// std(10, 30) = 10
	if got := std.Values["A"][0]; got != 10 {
		t.Errorf("std = %v, want 10", got)
	}
}

func TestStats(t *testing.T) {
	e := NewBuilder().WithTrajectories([]*Trajectory{sampleTrajectory(1)}).Build()
	st := e.Stats()["A"]
	if st.Min != 2 || st.Max != 10 || st.Mean != 6 || st.Median != 6 {
		t.Errorf("stats = %+v", st)
	}
	want := math.Sqrt((16 + 0 + 16) / 3.0)
	if math.Abs(st.Std-want) > 1e-12 {
		t.Errorf("std = %v, want %v", st.Std, want)
	}
}

func TestCheckConservation(t *testing.T) {
	e := NewBuilder().WithTrajectories([]*Trajectory{sampleTrajectory(1)}).Build()
	c := e.CheckConservation([]string{"A", "B"}, 1e-9)
	if !c.Conserved || c.Initial != 10 {
		t.Errorf("conservation = %+v", c)
	}

	leaky := sampleTrajectory(1)
	leaky.Values["B"][2] = 7
	e2 := NewBuilder().WithTrajectories([]*Trajectory{leaky}).Build()
	c2 := e2.CheckConservation([]string{"A", "B"}, 1e-9)
	if c2.Conserved || c2.MaxDrift != 1 {
		t.Errorf("leaky conservation = %+v", c2)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	e := NewBuilder().
		WithModel("decay").
		WithSolver("hybrid").
		WithRun(7, 2, 1).
		WithTrajectories([]*Trajectory{sampleTrajectory(1)}).
		Build()

	s, err := ToJSON(e)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := FromJSON(s)
	if err != nil {
		t.Fatal(err)
	}
	if e2.RunID != e.RunID || e2.Solver != "hybrid" {
		t.Errorf("round trip lost metadata: %+v", e2)
	}
	if e2.Trajectories[0].Values["A"][2] != 2 {
		t.Error("round trip lost trajectory data")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	e := NewBuilder().
		WithModel("decay").
		WithSolver("ssa").
		WithRun(1, 2, 1).
		WithTrajectories([]*Trajectory{sampleTrajectory(1), sampleTrajectory(2)}).
		Build()
	if err := store.SaveEnsemble(e); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadEnsemble(e.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "decay" || got.Solver != "ssa" || len(got.Trajectories) != 2 {
		t.Errorf("loaded = %+v", got)
	}
	if got.Trajectories[1].Values["A"][0] != 20 {
		t.Error("loaded trajectory data mismatch")
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != e.RunID || runs[0].Trajectories != 2 {
		t.Errorf("runs = %+v", runs)
	}
}
