// Package engine maintains a live reaction network in memory: the
// deterministic rate equations advance continuously and registered
// rules trigger actions when the concentrations satisfy their
// conditions. This supports monitoring scenarios where a model tracks
// an external process and reacts to threshold crossings.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/gillespy-xyz/go-gillespy/model"
	"github.com/gillespy-xyz/go-gillespy/solver"
)

// Condition is a predicate on the named species state.
type Condition func(state map[string]float64) bool

// Action runs when its condition holds. It receives a copy of the
// state and may trigger external effects.
type Action func(state map[string]float64) error

// Rule pairs a condition with an action.
type Rule struct {
	Name      string
	Condition Condition
	Action    Action
	Enabled   bool
}

// Engine owns a compiled model and its evolving species state.
type Engine struct {
	m       *model.Model
	state   []float64
	rules   []*Rule
	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// New creates an engine starting from the model's initial populations.
func New(m *model.Model) *Engine {
	state := make([]float64, len(m.Species))
	for i, s := range m.Species {
		state[i] = s.Initial
	}
	return &Engine{m: m, state: state}
}

// AddRule registers a condition-action rule.
func (e *Engine) AddRule(name string, condition Condition, action Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, &Rule{Name: name, Condition: condition, Action: action, Enabled: true})
}

// State returns a copy of the current state keyed by species name.
func (e *Engine) State() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateMapLocked()
}

func (e *Engine) stateMapLocked() map[string]float64 {
	out := make(map[string]float64, len(e.state))
	for i, s := range e.m.Species {
		out[s.Name] = e.state[i]
	}
	return out
}

// SetSpecies overrides one species value, e.g. from an external sensor.
func (e *Engine) SetSpecies(name string, value float64) bool {
	idx, ok := e.m.SpeciesIndex(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	e.state[idx] = value
	e.mu.Unlock()
	return true
}

// SetParameter adjusts a model parameter for all subsequent steps.
func (e *Engine) SetParameter(name string, value float64) bool {
	idx, ok := e.m.ParameterIndex(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	e.m.Parameters[idx].Value = value
	e.mu.Unlock()
	return true
}

// Step advances the state by dt of simulated time and evaluates the
// rules against the new state.
func (e *Engine) Step(dt float64) map[string]float64 {
	e.mu.Lock()
	prob := solver.NewProblem(e.m, [2]float64{0, dt})
	copy(prob.Y0, e.state)
	opts := &solver.Options{
		Dt:       dt / 10,
		Dtmin:    1e-9,
		Dtmax:    dt,
		Abstol:   1e-9,
		Reltol:   1e-6,
		Maxiters: 1000,
		Adaptive: true,
	}
	sol := solver.Solve(prob, solver.Tsit5(), opts)
	copy(e.state, sol.Final())
	e.mu.Unlock()

	e.checkRules()
	return e.State()
}

// checkRules evaluates rules against a snapshot, outside the lock so
// actions may call back into the engine.
func (e *Engine) checkRules() {
	e.mu.RLock()
	snapshot := e.stateMapLocked()
	rules := make([]*Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	for _, rule := range rules {
		if rule.Enabled && rule.Condition(snapshot) {
			_ = rule.Action(snapshot)
		}
	}
}

// Run steps the engine on a wall-clock ticker until the context is
// cancelled or Stop is called. Each tick advances dt of simulated time.
func (e *Engine) Run(ctx context.Context, interval time.Duration, dt float64) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	childCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-childCtx.Done():
				e.mu.Lock()
				e.running = false
				e.mu.Unlock()
				return
			case <-ticker.C:
				e.Step(dt)
			}
		}
	}()
}

// Stop halts a running engine loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.running = false
}

// IsRunning reports whether the background loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// ThresholdExceeded triggers when a species rises above the threshold.
func ThresholdExceeded(species string, threshold float64) Condition {
	return func(state map[string]float64) bool {
		return state[species] > threshold
	}
}

// ThresholdBelow triggers when a species falls below the threshold.
func ThresholdBelow(species string, threshold float64) Condition {
	return func(state map[string]float64) bool {
		return state[species] < threshold
	}
}

// AllOf triggers when every condition holds.
func AllOf(conditions ...Condition) Condition {
	return func(state map[string]float64) bool {
		for _, c := range conditions {
			if !c(state) {
				return false
			}
		}
		return true
	}
}

// AnyOf triggers when at least one condition holds.
func AnyOf(conditions ...Condition) Condition {
	return func(state map[string]float64) bool {
		for _, c := range conditions {
			if c(state) {
				return true
			}
		}
		return false
	}
}
