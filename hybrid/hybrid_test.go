package hybrid

import (
	"context"
	"math"
	"testing"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/sim"
)

func decayModel(t *testing.T, initial float64, mode model.Mode) *model.Model {
	t.Helper()
	m := model.New("decay")
	if err := m.AddSpecies(model.Species{Name: "S", Initial: initial, Mode: mode}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddParameter("k", 1.0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMassAction("degrade", map[string]int{"S": 1}, nil, "k"); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDecayEnsembleMean(t *testing.T) {
	m := decayModel(t, 100, model.ModeDynamic)
	cfg := sim.Config{EndTime: 20, Increment: 1, Trajectories: 1000, Seed: 42, TauTol: 0.03}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ens.Status != "completed" {
		t.Fatalf("status = %q", ens.Status)
	}
	mean, err := ens.Mean()
	if err != nil {
		t.Fatal(err)
	}
	for i, tp := range mean.Time {
		p := math.Exp(-tp)
		want := 100 * p
		se := math.Sqrt(100*p*(1-p)) / math.Sqrt(1000)
		if diff := math.Abs(mean.Values["S"][i] - want); diff > 4*se+1.0 {
			t.Errorf("mean S(%g) = %v, want %v +/- %v", tp, mean.Values["S"][i], want, 4*se+1.0)
		}
	}
}

func TestForcedContinuousMatchesAnalytic(t *testing.T) {
	m := decayModel(t, 100, model.ModeContinuous)
	cfg := sim.Config{EndTime: 4, Increment: 0.5, Trajectories: 1, Seed: 1}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tr := ens.Trajectories[0]
	for i, tp := range tr.Time {
		want := 100 * math.Exp(-tp)
		if math.Abs(tr.Values["S"][i]-want) > 0.05 {
			t.Errorf("S(%g) = %v, want %v", tp, tr.Values["S"][i], want)
		}
	}
}

func TestConservationContinuous(t *testing.T) {
	m := model.New("convert")
	if err := m.AddSpecies(model.Species{Name: "A", Initial: 5000}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSpecies(model.Species{Name: "B", Initial: 5000}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddParameter("k", 0.2); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMassAction("fwd", map[string]int{"A": 1}, map[string]int{"B": 1}, "k"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMassAction("rev", map[string]int{"B": 1}, map[string]int{"A": 1}, "k"); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}

	cfg := sim.Config{EndTime: 10, Increment: 0.5, Trajectories: 5, Seed: 7}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := ens.CheckConservation([]string{"A", "B"}, 1e-6)
	if !c.Conserved {
		t.Errorf("A+B drifted by %v", c.MaxDrift)
	}
}

func TestClassification(t *testing.T) {
	m := model.New("mix")
	specs := []model.Species{
		{Name: "big", Initial: 100000},
		{Name: "small", Initial: 3},
		{Name: "forced", Initial: 5, Mode: model.ModeContinuous},
		{Name: "pinned", Initial: 100000, Mode: model.ModeDiscrete},
		{Name: "floor", Initial: 50, SwitchMin: 100},
	}
	for _, s := range specs {
		if err := m.AddSpecies(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.AddParameter("k", 1.0); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"big", "small", "forced", "pinned", "floor"} {
		if err := m.AddMassAction("use_"+name, map[string]int{name: 1}, nil, "k"); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}

	env := m.NewEnv()
	state := env[:len(m.Species)]
	props := make([]float64, len(m.Reactions))
	m.Propensities(env, props)

	cls := newClassifier(m)
	part := newPartition(m)
	cls.classify(part, state, props, 0.01)

	want := []bool{true, false, true, false, false}
	for i, w := range want {
		if part.detSpecies[i] != w {
			t.Errorf("species %s: continuous = %v, want %v", m.Species[i].Name, part.detSpecies[i], w)
		}
	}
	// A reaction is flux only when every touched species is continuous.
	for j := range m.Reactions {
		if part.detReaction[j] != want[j] {
			t.Errorf("reaction %s: det = %v, want %v", m.Reactions[j].Name, part.detReaction[j], want[j])
		}
	}
}

func TestRateRuleForcesContinuous(t *testing.T) {
	m := decayModel(t, 2, model.ModeDynamic)
	if err := m.AddRateRule("S", "1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}
	cls := newClassifier(m)
	part := newPartition(m)
	cls.classify(part, []float64{2}, []float64{2}, 0.1)
	if !part.detSpecies[0] {
		t.Error("rate-rule target must be continuous")
	}
}

func TestRejectionRetryCommits(t *testing.T) {
	m := model.New("pulse")
	if err := m.AddSpecies(model.Species{Name: "Y", Initial: 2, Mode: model.ModeContinuous}); err != nil {
		t.Fatal(err)
	}
	// A brief strong drain: the first trapezoidal step at the save
	// increment overshoots negative and must be halved before it
	// commits.
	if err := m.AddRateRule("Y", "0-200*(t<0.005)"); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}

	cfg := sim.Config{EndTime: 1, Increment: 0.05, Trajectories: 1, Seed: 1, Debug: true}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tr := ens.Trajectories[0]
	if tr.Status != "completed" {
		t.Fatalf("status = %q (%s)", tr.Status, tr.Error)
	}
	for _, v := range tr.Values["Y"] {
		if v < 0 {
			t.Fatalf("Y went negative: %v", v)
		}
	}
	sawRejection := false
	for _, s := range tr.Steps {
		if s.Rejections > 0 {
			sawRejection = true
		}
	}
	if !sawRejection {
		t.Error("expected at least one rejected step")
	}
}

func TestFiringsCannotOverdrawPopulation(t *testing.T) {
	// Two fast drains race for a single molecule. A macro step long
	// enough for both clocks to cross must be rejected and halved until
	// at most one firing lands.
	m := model.New("race")
	if err := m.AddSpecies(model.Species{Name: "X", Initial: 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddParameter("k", 1000.0); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"drain1", "drain2"} {
		if err := m.AddMassAction(name, map[string]int{"X": 1}, nil, "k"); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}

	cfg := sim.Config{EndTime: 1, Increment: 0.1, Trajectories: 50, Seed: 11}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ens.Status != "completed" {
		t.Fatalf("status = %q", ens.Status)
	}
	for i, tr := range ens.Trajectories {
		for j, v := range tr.Values["X"] {
			if v < 0 {
				t.Fatalf("trajectory %d: X(%g) = %v", i, tr.Time[j], v)
			}
		}
	}
}

func TestDemotionFloorsPopulation(t *testing.T) {
	// The population threshold makes the switch to discrete treatment a
	// one-way trip, so everything recorded well below it must sit on an
	// integer base.
	m := model.New("decay")
	if err := m.AddSpecies(model.Species{Name: "S", Initial: 10000, SwitchMin: 100}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddParameter("k", 1.0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddMassAction("degrade", map[string]int{"S": 1}, nil, "k"); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}

	cfg := sim.Config{EndTime: 10, Increment: 0.5, Trajectories: 1, Seed: 5}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tr := ens.Trajectories[0]
	if tr.Status != "completed" {
		t.Fatalf("status = %q (%s)", tr.Status, tr.Error)
	}
	sawFraction := false
	for i, v := range tr.Values["S"] {
		if v < 0 {
			t.Fatalf("S(%g) = %v", tr.Time[i], v)
		}
		if v != math.Floor(v) {
			sawFraction = true
			if v < 90 {
				t.Errorf("S(%g) = %v, want an integer in the discrete regime", tr.Time[i], v)
			}
		}
	}
	if !sawFraction {
		t.Error("expected fractional values during continuous treatment")
	}
}

func TestImplicitFailureFallsBackToEuler(t *testing.T) {
	// At this step size the fixed-point iteration diverges, so every
	// macro step is taken by the explicit fallback and commits the full
	// save interval without a rejection.
	m := model.New("stiff")
	if err := m.AddSpecies(model.Species{Name: "Y", Initial: 1, Mode: model.ModeContinuous, AllowNegative: true}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddRateRule("Y", "0-100*Y"); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}

	cfg := sim.Config{EndTime: 0.2, Increment: 0.05, Trajectories: 1, Seed: 9, Debug: true}
	ens, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tr := ens.Trajectories[0]
	if tr.Status != "completed" {
		t.Fatalf("status = %q (%s)", tr.Status, tr.Error)
	}
	if len(tr.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(tr.Steps))
	}
	for _, s := range tr.Steps {
		if s.Rejections != 0 {
			t.Errorf("step at t=%g had %d rejections", s.Time, s.Rejections)
		}
		if math.Abs(s.Tau-0.05) > 1e-12 {
			t.Errorf("step at t=%g committed tau %v, want 0.05", s.Time, s.Tau)
		}
	}
}

func TestRejectedHonorsAllowNegative(t *testing.T) {
	m := model.New("floors")
	if err := m.AddSpecies(model.Species{Name: "A", Initial: 1, AllowNegative: true}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSpecies(model.Species{Name: "B", Initial: 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(); err != nil {
		t.Fatal(err)
	}
	in := newIntegrator(m, sim.NewRand(1, 0))

	if in.rejected([]float64{-0.5, 1}) {
		t.Error("allow_negative species below zero must not reject")
	}
	if !in.rejected([]float64{-0.5, -1}) {
		t.Error("plain species below zero must reject")
	}
	if !in.rejected([]float64{math.NaN(), 1}) {
		t.Error("NaN state must reject")
	}
}

func TestFireAppliesNetAndRedraws(t *testing.T) {
	m := decayModel(t, 10, model.ModeDynamic)
	in := newIntegrator(m, sim.NewRand(1, 0))
	in.plan = &fieldPlan{stoch: []int{0}}
	y := in.initState()
	y[in.nS] = 0.5 // force the clock past its root
	fired, err := in.fire(y)
	if err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if y[0] != 9 {
		t.Errorf("S = %v, want 9", y[0])
	}
	if y[in.nS] >= 0 {
		t.Errorf("clock should be redrawn negative, got %v", y[in.nS])
	}
}

func TestPlanCache(t *testing.T) {
	m := decayModel(t, 100, model.ModeDynamic)
	cache := newPlanCache()
	part := newPartition(m)

	part.detReaction[0] = true
	part.detSpecies[0] = true
	a := cache.get(m, part)
	b := cache.get(m, part)
	if a != b {
		t.Error("identical partitions should share a plan")
	}
	part.detReaction[0] = false
	part.detSpecies[0] = false
	c := cache.get(m, part)
	if c == a {
		t.Error("different partitions should not share a plan")
	}
	st := cache.stats()
	if st.Hits != 1 || st.Misses != 2 {
		t.Errorf("stats = %+v", st)
	}
	if len(a.det) != 1 || len(c.stoch) != 1 {
		t.Errorf("plans = %+v / %+v", a, c)
	}
}

func TestReproducibleWithSeed(t *testing.T) {
	m := decayModel(t, 100, model.ModeDynamic)
	cfg := sim.Config{EndTime: 5, Increment: 1, Trajectories: 2, Seed: 9}
	a, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Trajectories {
		for j := range a.Trajectories[i].Time {
			if a.Trajectories[i].Values["S"][j] != b.Trajectories[i].Values["S"][j] {
				t.Fatalf("trajectory %d diverged at point %d", i, j)
			}
		}
	}
}
