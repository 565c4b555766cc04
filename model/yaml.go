package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileModel is the YAML representation of a model definition.
type fileModel struct {
	Name       string          `yaml:"name"`
	Volume     float64         `yaml:"volume,omitempty"`
	Species    []fileSpecies   `yaml:"species"`
	Parameters []fileParameter `yaml:"parameters,omitempty"`
	Reactions  []fileReaction  `yaml:"reactions"`
	RateRules  []fileRateRule  `yaml:"rate_rules,omitempty"`
}

type fileSpecies struct {
	Name          string  `yaml:"name"`
	Initial       float64 `yaml:"initial"`
	Mode          string  `yaml:"mode,omitempty"`
	SwitchTol     float64 `yaml:"switch_tol,omitempty"`
	SwitchMin     float64 `yaml:"switch_min,omitempty"`
	AllowNegative bool    `yaml:"allow_negative,omitempty"`
}

type fileParameter struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

type fileReaction struct {
	Name       string         `yaml:"name"`
	Reactants  map[string]int `yaml:"reactants,omitempty"`
	Products   map[string]int `yaml:"products,omitempty"`
	Rate       string         `yaml:"rate,omitempty"`
	Propensity string         `yaml:"propensity,omitempty"`
}

type fileRateRule struct {
	Species string `yaml:"species"`
	Formula string `yaml:"formula"`
}

// Load reads and compiles a model from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return FromYAML(data)
}

// FromYAML parses and compiles a model from YAML bytes.
func FromYAML(data []byte) (*Model, error) {
	var fm fileModel
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	m := New(fm.Name)
	if fm.Volume > 0 {
		m.Volume = fm.Volume
	}
	for _, s := range fm.Species {
		err := m.AddSpecies(Species{
			Name:          s.Name,
			Initial:       s.Initial,
			Mode:          Mode(s.Mode),
			SwitchTol:     s.SwitchTol,
			SwitchMin:     s.SwitchMin,
			AllowNegative: s.AllowNegative,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, p := range fm.Parameters {
		if err := m.AddParameter(p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	for _, r := range fm.Reactions {
		switch {
		case r.Propensity != "" && r.Rate != "":
			return nil, &ReactionError{Reaction: r.Name, Reason: "rate and propensity are mutually exclusive"}
		case r.Propensity != "":
			if err := m.AddReaction(r.Name, r.Reactants, r.Products, r.Propensity); err != nil {
				return nil, err
			}
		case r.Rate != "":
			if err := m.AddMassAction(r.Name, r.Reactants, r.Products, r.Rate); err != nil {
				return nil, err
			}
		default:
			return nil, &ReactionError{Reaction: r.Name, Reason: "missing rate or propensity"}
		}
	}
	for _, rr := range fm.RateRules {
		if err := m.AddRateRule(rr.Species, rr.Formula); err != nil {
			return nil, err
		}
	}
	if err := m.Compile(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the model definition to a YAML file.
func Save(m *Model, path string) error {
	data, err := ToYAML(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// ToYAML serializes the model definition to YAML bytes.
func ToYAML(m *Model) ([]byte, error) {
	fm := fileModel{Name: m.Name, Volume: m.Volume}
	for _, s := range m.Species {
		fm.Species = append(fm.Species, fileSpecies{
			Name:          s.Name,
			Initial:       s.Initial,
			Mode:          string(s.Mode),
			SwitchTol:     s.SwitchTol,
			SwitchMin:     s.SwitchMin,
			AllowNegative: s.AllowNegative,
		})
	}
	for _, p := range m.Parameters {
		fm.Parameters = append(fm.Parameters, fileParameter{Name: p.Name, Value: p.Value})
	}
	for _, r := range m.Reactions {
		fr := fileReaction{
			Name:      r.Name,
			Reactants: stoichMap(m, r.Reactants),
			Products:  stoichMap(m, r.Products),
		}
		// Mass-action reactions serialize their derived propensity;
		// reloading treats them as custom, which is semantically equal.
		fr.Propensity = r.Propensity
		fm.Reactions = append(fm.Reactions, fr)
	}
	for _, rr := range m.RateRules {
		fm.RateRules = append(fm.RateRules, fileRateRule{
			Species: m.Species[rr.Species].Name,
			Formula: rr.Formula,
		})
	}
	data, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("marshal model: %w", err)
	}
	return data, nil
}

func stoichMap(m *Model, list []Stoich) map[string]int {
	if len(list) == 0 {
		return nil
	}
	out := make(map[string]int, len(list))
	for _, s := range list {
		out[m.Species[s.Species].Name] = s.Coeff
	}
	return out
}
