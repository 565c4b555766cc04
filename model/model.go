// Package model implements the reaction-network data model: species,
// parameters, reactions and rate rules, with compiled propensity
// expressions. The Model owns arena slices of value objects; reactions
// reference species by stable integer index, never by pointer.
package model

import (
	"fmt"
	"sort"

	"github.com/gillespy-xyz/go-gillespy/expr"
)

// Mode controls how a species is treated by the hybrid solver.
type Mode string

const (
	// ModeDynamic lets the hybrid solver reclassify the species between
	// discrete and continuous treatment every macro-step.
	ModeDynamic Mode = "dynamic"
	// ModeDiscrete forces stochastic-discrete treatment.
	ModeDiscrete Mode = "discrete"
	// ModeContinuous forces deterministic-continuous treatment.
	ModeContinuous Mode = "continuous"
)

// DefaultSwitchTol is the coefficient-of-variation threshold below which
// a dynamic species is treated deterministically for a step.
const DefaultSwitchTol = 0.03

// Reserved identifiers available inside every expression.
const (
	VolumeName = "vol"
	TimeName   = "t"
)

// Species is a chemical species tracked by the simulation.
type Species struct {
	Name          string  `json:"name"`
	Initial       float64 `json:"initial"`
	Mode          Mode    `json:"mode"`
	SwitchTol     float64 `json:"switchTol"`
	SwitchMin     float64 `json:"switchMin,omitempty"`
	AllowNegative bool    `json:"allowNegative,omitempty"`
}

// Parameter is a named constant usable in expressions.
type Parameter struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Stoich pairs a species index with a stoichiometric coefficient.
type Stoich struct {
	Species int
	Coeff   int
}

// Reaction is a reaction channel. Reactants and Products hold positive
// coefficients; Net holds the signed per-species population change of a
// single firing.
type Reaction struct {
	Name       string
	Reactants  []Stoich
	Products   []Stoich
	Net        []Stoich
	Propensity string
	MassAction bool

	prog expr.Program
}

// Order returns the total reactant stoichiometry of the reaction.
func (r *Reaction) Order() int {
	order := 0
	for _, s := range r.Reactants {
		order += s.Coeff
	}
	return order
}

// RateRule drives a species with a symbolic ODE right-hand side,
// supplementing any reaction-derived dynamics.
type RateRule struct {
	Species int
	Formula string

	prog expr.Program
}

// Model is a complete reaction network definition.
type Model struct {
	Name       string
	Volume     float64
	Species    []Species
	Parameters []Parameter
	Reactions  []Reaction
	RateRules  []RateRule

	speciesIdx  map[string]int
	paramIdx    map[string]int
	reactionIdx map[string]int
	compiled    bool
}

// New creates an empty model with unit volume.
func New(name string) *Model {
	return &Model{
		Name:        name,
		Volume:      1.0,
		speciesIdx:  make(map[string]int),
		paramIdx:    make(map[string]int),
		reactionIdx: make(map[string]int),
	}
}

func (m *Model) checkName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if name == VolumeName || name == TimeName {
		return fmt.Errorf("name %q is reserved", name)
	}
	if _, ok := m.speciesIdx[name]; ok {
		return fmt.Errorf("name %q already used by a species", name)
	}
	if _, ok := m.paramIdx[name]; ok {
		return fmt.Errorf("name %q already used by a parameter", name)
	}
	if _, ok := m.reactionIdx[name]; ok {
		return fmt.Errorf("name %q already used by a reaction", name)
	}
	return nil
}

// AddSpecies adds a species to the model. Zero-valued Mode and SwitchTol
// default to dynamic and DefaultSwitchTol.
func (m *Model) AddSpecies(s Species) error {
	if err := m.checkName(s.Name); err != nil {
		return &SpeciesError{Species: s.Name, Reason: err.Error()}
	}
	if s.Mode == "" {
		s.Mode = ModeDynamic
	}
	switch s.Mode {
	case ModeDynamic, ModeDiscrete, ModeContinuous:
	default:
		return &SpeciesError{Species: s.Name, Reason: fmt.Sprintf("unknown mode %q", s.Mode)}
	}
	if s.SwitchTol == 0 {
		s.SwitchTol = DefaultSwitchTol
	}
	if s.Initial < 0 && !s.AllowNegative {
		return &SpeciesError{Species: s.Name, Reason: "negative initial population"}
	}
	m.speciesIdx[s.Name] = len(m.Species)
	m.Species = append(m.Species, s)
	m.compiled = false
	return nil
}

// AddParameter adds a named constant.
func (m *Model) AddParameter(name string, value float64) error {
	if err := m.checkName(name); err != nil {
		return &ParameterError{Parameter: name, Reason: err.Error()}
	}
	m.paramIdx[name] = len(m.Parameters)
	m.Parameters = append(m.Parameters, Parameter{Name: name, Value: value})
	m.compiled = false
	return nil
}

// stoichList converts a name→coefficient map to an index-ordered slice.
func (m *Model) stoichList(rxn string, coeffs map[string]int) ([]Stoich, error) {
	list := make([]Stoich, 0, len(coeffs))
	for name, c := range coeffs {
		idx, ok := m.speciesIdx[name]
		if !ok {
			return nil, &ReactionError{Reaction: rxn, Reason: fmt.Sprintf("unknown species %q", name)}
		}
		if c <= 0 {
			return nil, &ReactionError{Reaction: rxn, Reason: fmt.Sprintf("stoichiometry of %q must be a positive integer", name)}
		}
		list = append(list, Stoich{Species: idx, Coeff: c})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Species < list[j].Species })
	return list, nil
}

func netChange(reactants, products []Stoich) []Stoich {
	net := make(map[int]int)
	for _, s := range reactants {
		net[s.Species] -= s.Coeff
	}
	for _, s := range products {
		net[s.Species] += s.Coeff
	}
	list := make([]Stoich, 0, len(net))
	for idx, c := range net {
		if c != 0 {
			list = append(list, Stoich{Species: idx, Coeff: c})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Species < list[j].Species })
	return list
}

// AddMassAction adds a reaction whose propensity is derived from its
// reactant stoichiometry and the named rate parameter.
func (m *Model) AddMassAction(name string, reactants, products map[string]int, rate string) error {
	if err := m.checkName(name); err != nil {
		return &ReactionError{Reaction: name, Reason: err.Error()}
	}
	if _, ok := m.paramIdx[rate]; !ok {
		return &ReactionError{Reaction: name, Reason: fmt.Sprintf("unknown rate parameter %q", rate)}
	}
	rl, err := m.stoichList(name, reactants)
	if err != nil {
		return err
	}
	pl, err := m.stoichList(name, products)
	if err != nil {
		return err
	}
	propensity, err := m.MassActionPropensity(rate, rl)
	if err != nil {
		return &ReactionError{Reaction: name, Reason: err.Error()}
	}
	m.reactionIdx[name] = len(m.Reactions)
	m.Reactions = append(m.Reactions, Reaction{
		Name:       name,
		Reactants:  rl,
		Products:   pl,
		Net:        netChange(rl, pl),
		Propensity: propensity,
		MassAction: true,
	})
	m.compiled = false
	return nil
}

// AddReaction adds a reaction with a custom propensity expression.
func (m *Model) AddReaction(name string, reactants, products map[string]int, propensity string) error {
	if err := m.checkName(name); err != nil {
		return &ReactionError{Reaction: name, Reason: err.Error()}
	}
	if propensity == "" {
		return &ReactionError{Reaction: name, Reason: "missing propensity expression"}
	}
	rl, err := m.stoichList(name, reactants)
	if err != nil {
		return err
	}
	pl, err := m.stoichList(name, products)
	if err != nil {
		return err
	}
	m.reactionIdx[name] = len(m.Reactions)
	m.Reactions = append(m.Reactions, Reaction{
		Name:       name,
		Reactants:  rl,
		Products:   pl,
		Net:        netChange(rl, pl),
		Propensity: propensity,
	})
	m.compiled = false
	return nil
}

// AddRateRule drives the named species with a symbolic ODE right-hand
// side. The species is always treated as continuous by the hybrid
// solver.
func (m *Model) AddRateRule(species, formula string) error {
	idx, ok := m.speciesIdx[species]
	if !ok {
		return &SpeciesError{Species: species, Reason: "rate rule target is not a species"}
	}
	if formula == "" {
		return &SpeciesError{Species: species, Reason: "empty rate rule formula"}
	}
	for _, rr := range m.RateRules {
		if rr.Species == idx {
			return &SpeciesError{Species: species, Reason: "species already has a rate rule"}
		}
	}
	m.RateRules = append(m.RateRules, RateRule{Species: idx, Formula: formula})
	m.compiled = false
	return nil
}

// MassActionPropensity builds the canonical propensity expression for a
// mass-action reaction: order 0 scales by volume, a paired reactant uses
// combinatorial counting, and bimolecular collisions divide by volume.
// Total reactant stoichiometry above 2 requires a custom propensity.
func (m *Model) MassActionPropensity(rate string, reactants []Stoich) (string, error) {
	order := 0
	for _, s := range reactants {
		order += s.Coeff
	}
	if order > 2 {
		return "", fmt.Errorf("mass-action stoichiometry above 2 unsupported, use a custom propensity")
	}
	switch {
	case order == 0:
		return rate + "*" + VolumeName, nil
	case len(reactants) == 1 && reactants[0].Coeff == 1:
		return rate + "*" + m.Species[reactants[0].Species].Name, nil
	case len(reactants) == 1 && reactants[0].Coeff == 2:
		x := m.Species[reactants[0].Species].Name
		return fmt.Sprintf("%s*%s*(%s-1)/%s", rate, x, x, VolumeName), nil
	default:
		x := m.Species[reactants[0].Species].Name
		y := m.Species[reactants[1].Species].Name
		return fmt.Sprintf("%s*%s*%s/%s", rate, x, y, VolumeName), nil
	}
}

// NumSpecies returns the number of species in the model.
func (m *Model) NumSpecies() int { return len(m.Species) }

// SpeciesIndex returns the arena index of the named species.
func (m *Model) SpeciesIndex(name string) (int, bool) {
	idx, ok := m.speciesIdx[name]
	return idx, ok
}

// ParameterIndex returns the arena index of a parameter by name.
func (m *Model) ParameterIndex(name string) (int, bool) {
	idx, ok := m.paramIdx[name]
	return idx, ok
}

// SpeciesNames returns species names in declaration order.
func (m *Model) SpeciesNames() []string {
	names := make([]string, len(m.Species))
	for i, s := range m.Species {
		names[i] = s.Name
	}
	return names
}

// EnvIndex returns the environment layout used to bind expressions:
// species first, then parameters, then volume and time.
func (m *Model) EnvIndex() map[string]int {
	index := make(map[string]int, len(m.Species)+len(m.Parameters)+2)
	for i, s := range m.Species {
		index[s.Name] = i
	}
	for i, p := range m.Parameters {
		index[p.Name] = len(m.Species) + i
	}
	index[VolumeName] = m.VolumeIndex()
	index[TimeName] = m.TimeIndex()
	return index
}

// EnvSize returns the length of the environment vector.
func (m *Model) EnvSize() int { return len(m.Species) + len(m.Parameters) + 2 }

// VolumeIndex returns the env slot holding the system volume.
func (m *Model) VolumeIndex() int { return len(m.Species) + len(m.Parameters) }

// TimeIndex returns the env slot holding the current simulation time.
func (m *Model) TimeIndex() int { return len(m.Species) + len(m.Parameters) + 1 }

// NewEnv builds a fresh environment vector from the model's initial
// values. The species segment env[0:NumSpecies] is the mutable
// simulation state; the rest is constant except the time slot.
func (m *Model) NewEnv() []float64 {
	env := make([]float64, m.EnvSize())
	for i, s := range m.Species {
		env[i] = s.Initial
	}
	for i, p := range m.Parameters {
		env[len(m.Species)+i] = p.Value
	}
	env[m.VolumeIndex()] = m.Volume
	return env
}

// Compile validates the model and binds every propensity and rate-rule
// expression against the environment layout. It must succeed before any
// solver may run; all ModelError conditions surface here or earlier.
func (m *Model) Compile() error {
	if m.Volume <= 0 {
		return &ParameterError{Parameter: VolumeName, Reason: "volume must be positive"}
	}
	index := m.EnvIndex()
	for i := range m.Reactions {
		r := &m.Reactions[i]
		e, err := expr.Compile(r.Propensity)
		if err != nil {
			return &PropensityError{Owner: r.Name, Expr: r.Propensity, Err: err}
		}
		prog, err := e.Bind(index)
		if err != nil {
			return &PropensityError{Owner: r.Name, Expr: r.Propensity, Err: err}
		}
		r.prog = prog
	}
	for i := range m.RateRules {
		rr := &m.RateRules[i]
		e, err := expr.Compile(rr.Formula)
		if err != nil {
			return &PropensityError{Owner: m.Species[rr.Species].Name, Expr: rr.Formula, Err: err}
		}
		prog, err := e.Bind(index)
		if err != nil {
			return &PropensityError{Owner: m.Species[rr.Species].Name, Expr: rr.Formula, Err: err}
		}
		rr.prog = prog
	}
	m.compiled = true
	return nil
}

// Compiled reports whether Compile has succeeded since the last edit.
func (m *Model) Compiled() bool { return m.compiled }

// Propensity evaluates reaction j against the environment. Negative and
// NaN results clamp to zero: root-finding near boundary states evaluates
// propensities at slightly negative populations, which is not an error.
func (m *Model) Propensity(j int, env []float64) float64 {
	v := m.Reactions[j].prog(env)
	if v > 0 {
		return v
	}
	return 0
}

// Propensities evaluates all reaction propensities into out and
// returns their sum.
func (m *Model) Propensities(env, out []float64) float64 {
	total := 0.0
	for j := range m.Reactions {
		out[j] = m.Propensity(j, env)
		total += out[j]
	}
	return total
}

// RateRuleDeriv evaluates the right-hand side of rate rule k.
func (m *Model) RateRuleDeriv(k int, env []float64) float64 {
	return m.RateRules[k].prog(env)
}

// HasRateRule reports whether the species has a rate rule attached.
func (m *Model) HasRateRule(species int) bool {
	for _, rr := range m.RateRules {
		if rr.Species == species {
			return true
		}
	}
	return false
}
