// Package tau implements the Cao-Gillespie-Petzold adaptive step-size
// selection used by the tau-leaping and hybrid solvers.
package tau

import (
	"math"

	"github.com/gillespy-xyz/go-gillespy/model"
)

const (
	// CriticalThreshold is the firing headroom below which a reaction
	// is handled one event at a time.
	CriticalThreshold = 10

	// MinTau is the smallest step the selector will propose.
	MinTau = 1e-10
)

// horEntry records a species' highest-order reactant role.
type horEntry struct {
	order int
	coeff int
}

// Selector chooses leap sizes for a compiled model.
type Selector struct {
	m   *model.Model
	Tol float64 // relative error tolerance, typically 0.03

	hor      []horEntry // per species
	critical []bool     // scratch, per reaction
	mu       []float64  // scratch, per species
	sigma2   []float64  // scratch, per species
	reactant []bool     // species appearing as a reactant anywhere
}

// NewSelector precomputes per-species reaction-order data.
func NewSelector(m *model.Model, tol float64) *Selector {
	s := &Selector{
		m:        m,
		Tol:      tol,
		hor:      make([]horEntry, len(m.Species)),
		critical: make([]bool, len(m.Reactions)),
		mu:       make([]float64, len(m.Species)),
		sigma2:   make([]float64, len(m.Species)),
		reactant: make([]bool, len(m.Species)),
	}
	for _, r := range m.Reactions {
		order := r.Order()
		for _, st := range r.Reactants {
			s.reactant[st.Species] = true
			h := &s.hor[st.Species]
			if order > h.order || (order == h.order && st.Coeff > h.coeff) {
				h.order = order
				h.coeff = st.Coeff
			}
		}
	}
	return s
}

// Choose returns the leap size and the per-reaction critical flags for
// the given state. Reactions within CriticalThreshold firings of
// exhausting a reactant are critical and excluded from the leap bound;
// the caller fires them one at a time. The returned tau is clamped to
// [MinTau, timeRemaining]. When no non-critical reaction is active the
// full remaining time is returned.
func (s *Selector) Choose(state, props []float64, timeRemaining float64) (float64, []bool) {
	for j := range s.critical {
		s.critical[j] = false
	}
	for i := range s.mu {
		s.mu[i] = 0
		s.sigma2[i] = 0
	}

	active := false
	for j, r := range s.m.Reactions {
		if props[j] <= 0 {
			continue
		}
		for _, st := range r.Reactants {
			if state[st.Species]/float64(st.Coeff) <= CriticalThreshold {
				s.critical[j] = true
				break
			}
		}
		if s.critical[j] {
			continue
		}
		active = true
		for _, st := range r.Net {
			c := float64(st.Coeff)
			s.mu[st.Species] += c * props[j]
			s.sigma2[st.Species] += c * c * props[j]
		}
	}
	if !active {
		return timeRemaining, s.critical
	}

	tau := math.Inf(1)
	for i := range s.m.Species {
		if !s.reactant[i] {
			continue
		}
		g := gFactor(s.hor[i].order, s.hor[i].coeff, state[i])
		bound := math.Max(s.Tol*state[i]/g, 1)
		if mu := math.Abs(s.mu[i]); mu > 0 {
			tau = math.Min(tau, bound/mu)
		}
		if s.sigma2[i] > 0 {
			tau = math.Min(tau, bound*bound/s.sigma2[i])
		}
	}
	if math.IsInf(tau, 1) {
		tau = timeRemaining
	}
	tau = math.Min(tau, timeRemaining)
	if tau < MinTau {
		tau = MinTau
	}
	return tau, s.critical
}
