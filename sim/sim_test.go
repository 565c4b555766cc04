package sim

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gillespy-xyz/go-gillespy/results"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	if c.EndTime != DefaultEndTime || c.Increment != DefaultIncrement {
		t.Errorf("defaults = %+v", c)
	}
	if c.Trajectories != 1 || c.TauTol != DefaultTauTol {
		t.Errorf("defaults = %+v", c)
	}
	if c.Seed == 0 {
		t.Error("seed should be derived from clock")
	}
}

func TestConfigValidate(t *testing.T) {
	good := Config{EndTime: 20, Increment: 1, Trajectories: 1}
	if err := good.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	bad := []Config{
		{EndTime: 0, Increment: 1, Trajectories: 1},
		{EndTime: -5, Increment: 1, Trajectories: 1},
		{EndTime: 20, Increment: 0, Trajectories: 1},
		{EndTime: 20, Increment: 3, Trajectories: 1},
		{EndTime: 20, Increment: 1, Trajectories: 0},
		{EndTime: math.NaN(), Increment: 1, Trajectories: 1},
	}
	for _, c := range bad {
		err := c.Validate()
		var te *TimespanError
		if !errors.As(err, &te) {
			t.Errorf("config %+v: expected TimespanError, got %v", c, err)
		}
	}
}

func TestSavePoints(t *testing.T) {
	c := Config{EndTime: 2, Increment: 0.5, Trajectories: 1}
	pts := c.SavePoints()
	want := []float64{0, 0.5, 1, 1.5, 2}
	if len(pts) != len(want) {
		t.Fatalf("points = %v", pts)
	}
	for i := range want {
		if math.Abs(pts[i]-want[i]) > 1e-12 {
			t.Errorf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestRandReproducible(t *testing.T) {
	a, b := NewRand(42, 0), NewRand(42, 0)
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("same seed and stream should reproduce")
		}
	}
	c := NewRand(42, 1)
	if NewRand(42, 0).Float64() == c.Float64() {
		t.Error("different streams should diverge")
	}
}

func TestLogUniformNegative(t *testing.T) {
	rng := NewRand(1, 0)
	for i := 0; i < 1000; i++ {
		if v := LogUniform(rng); v >= 0 {
			t.Fatalf("LogUniform = %v, want < 0", v)
		}
	}
}

func TestPoissonMoments(t *testing.T) {
	rng := NewRand(7, 0)
	for _, mean := range []float64{0.5, 5, 100} {
		const n = 20000
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += float64(Poisson(rng, mean))
		}
		got := sum / n
		se := math.Sqrt(mean / n)
		if math.Abs(got-mean) > 5*se+0.05 {
			t.Errorf("Poisson(%g) sample mean = %g", mean, got)
		}
	}
	if Poisson(rng, 0) != 0 {
		t.Error("Poisson(0) should be 0")
	}
}

func TestRunParallel(t *testing.T) {
	cfg := Config{EndTime: 1, Increment: 1, Trajectories: 8, Seed: 3}
	trajs := RunParallel(context.Background(), cfg, func(ctx context.Context, idx int, rng *rand.Rand) *results.Trajectory {
		tr := results.NewTrajectory([]string{"X"}, 1)
		tr.Record(0, []float64{rng.Float64()}, nil)
		return tr
	})
	if len(trajs) != 8 {
		t.Fatalf("got %d trajectories", len(trajs))
	}
	// Same seed, same streams: rerun must match exactly.
	again := RunParallel(context.Background(), cfg, func(ctx context.Context, idx int, rng *rand.Rand) *results.Trajectory {
		tr := results.NewTrajectory([]string{"X"}, 1)
		tr.Record(0, []float64{rng.Float64()}, nil)
		return tr
	})
	for i := range trajs {
		if trajs[i].Values["X"][0] != again[i].Values["X"][0] {
			t.Errorf("trajectory %d not reproducible", i)
		}
	}
}
