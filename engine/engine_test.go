package engine

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gillespy-xyz/go-gillespy/model"
)

func decayModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New("decay")
	if err := m.AddSpecies(model.Species{Name: "S", Initial: 100, Mode: model.ModeContinuous}); err != nil {
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

func TestStepAdvancesState(t *testing.T) {
	e := New(decayModel(t))
	state := e.Step(1.0)
	want := 100 * math.Exp(-1)
	if math.Abs(state["S"]-want) > 0.1 {
		t.Errorf("S = %v, want %v", state["S"], want)
	}
}

func TestRuleTriggersOnThreshold(t *testing.T) {
	e := New(decayModel(t))
	var fired atomic.Int32
	e.AddRule("low-s", ThresholdBelow("S", 50), func(state map[string]float64) error {
		fired.Add(1)
		return nil
	})

	e.Step(0.1) // S ~ 90, rule quiet
	if fired.Load() != 0 {
		t.Error("rule fired above threshold")
	}
	e.Step(2.0) // S ~ 12
	if fired.Load() != 1 {
		t.Errorf("fired = %d, want 1", fired.Load())
	}
}

func TestConditionCombinators(t *testing.T) {
	state := map[string]float64{"A": 10, "B": 1}
	all := AllOf(ThresholdExceeded("A", 5), ThresholdBelow("B", 5))
	if !all(state) {
		t.Error("AllOf should hold")
	}
	any := AnyOf(ThresholdExceeded("A", 100), ThresholdBelow("B", 5))
	if !any(state) {
		t.Error("AnyOf should hold")
	}
	if AllOf(ThresholdExceeded("A", 100))(state) {
		t.Error("AllOf should fail")
	}
}

func TestSetSpeciesAndParameter(t *testing.T) {
	e := New(decayModel(t))
	if !e.SetSpecies("S", 500) {
		t.Fatal("SetSpecies failed")
	}
	if got := e.State()["S"]; got != 500 {
		t.Errorf("S = %v, want 500", got)
	}
	if e.SetSpecies("missing", 1) {
		t.Error("SetSpecies should reject unknown species")
	}

	// Freeze the decay and check the state holds.
	if !e.SetParameter("k", 0) {
		t.Fatal("SetParameter failed")
	}
	state := e.Step(1.0)
	if math.Abs(state["S"]-500) > 1e-6 {
		t.Errorf("S = %v, want 500 with k=0", state["S"])
	}
}

func TestRunAndStop(t *testing.T) {
	e := New(decayModel(t))
	ctx := context.Background()
	e.Run(ctx, time.Millisecond, 0.01)
	if !e.IsRunning() {
		t.Fatal("engine should be running")
	}
	time.Sleep(20 * time.Millisecond)
	e.Stop()
	if e.IsRunning() {
		t.Error("engine should stop")
	}
	if e.State()["S"] >= 100 {
		t.Error("background steps should have decayed S")
	}
}
