// Package hybrid implements the partitioned stochastic/deterministic
// solver. Species and reactions are reclassified every macro step:
// abundant, low-noise species are integrated as continuous quantities
// while the rest fire as discrete jump processes driven by integrated
// propensity clocks.
package hybrid

import (
	"math"

	"github.com/gillespy-xyz/go-gillespy/model"
)

// partition holds one step's classification.
type partition struct {
	detSpecies  []bool // continuous treatment per species
	detReaction []bool // integrated as flux per reaction
}

func newPartition(m *model.Model) *partition {
	return &partition{
		detSpecies:  make([]bool, len(m.Species)),
		detReaction: make([]bool, len(m.Reactions)),
	}
}

// classifier applies the coefficient-of-variation test over a candidate
// step to dynamic-mode species.
type classifier struct {
	m           *model.Model
	tolOverride float64 // run-level switching tolerance; 0 keeps per-species values
	mu          []float64
	sigma2      []float64
	rateRule    []bool
}

func newClassifier(m *model.Model) *classifier {
	c := &classifier{
		m:        m,
		mu:       make([]float64, len(m.Species)),
		sigma2:   make([]float64, len(m.Species)),
		rateRule: make([]bool, len(m.Species)),
	}
	for _, rr := range m.RateRules {
		c.rateRule[rr.Species] = true
	}
	return c
}

// classify fills p for the given state, propensities and candidate step.
//
// Species with a fixed mode keep it, and rate-rule targets are always
// continuous. Dynamic species use the projected change over tau: with a
// positive SwitchMin the population alone decides; otherwise a species
// is continuous when its projected coefficient of variation stays below
// its switching tolerance.
func (c *classifier) classify(p *partition, state, props []float64, tau float64) {
	m := c.m
	for i := range c.mu {
		c.mu[i] = 0
		c.sigma2[i] = 0
	}
	for j, r := range m.Reactions {
		if props[j] <= 0 {
			continue
		}
		for _, st := range r.Net {
			co := float64(st.Coeff)
			c.mu[st.Species] += co * props[j]
			c.sigma2[st.Species] += co * co * props[j]
		}
	}

	for i, s := range m.Species {
		switch {
		case s.Mode == model.ModeDiscrete:
			p.detSpecies[i] = false
		case s.Mode == model.ModeContinuous, c.rateRule[i]:
			p.detSpecies[i] = true
		case s.SwitchMin > 0:
			p.detSpecies[i] = state[i] > s.SwitchMin
		default:
			mean := state[i] + c.mu[i]*tau
			if mean <= 0 {
				p.detSpecies[i] = false
				continue
			}
			tol := s.SwitchTol
			if c.tolOverride > 0 {
				tol = c.tolOverride
			}
			cv := math.Sqrt(c.sigma2[i]*tau) / mean
			p.detSpecies[i] = cv < tol
		}
	}

	// A reaction integrates as flux only when every species it touches
	// is continuous; reactions touching no species stay stochastic.
	for j, r := range m.Reactions {
		det := len(r.Net) > 0 || len(r.Reactants) > 0
		for _, st := range r.Reactants {
			if !p.detSpecies[st.Species] {
				det = false
				break
			}
		}
		if det {
			for _, st := range r.Products {
				if !p.detSpecies[st.Species] {
					det = false
					break
				}
			}
		}
		p.detReaction[j] = det
	}
}
