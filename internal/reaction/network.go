package reaction

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidNetwork = errors.New("reaction: invalid network")

type Species struct {
	Name    string  `yaml:"name"`
	Initial float64 `yaml:"initial"`
	// Bound is the rate change bound passed to the leap size selection;
	// zero means 1.
	Bound float64 `yaml:"bound,omitempty"`
}

type Reaction struct {
	Name      string         `yaml:"name"`
	Reactants map[string]int `yaml:"reactants,omitempty"`
	Products  map[string]int `yaml:"products,omitempty"`
	Rate      float64        `yaml:"rate"`
	// Param names a network parameter that replaces Rate when set.
	Param         string `yaml:"param,omitempty"`
	Deterministic bool   `yaml:"deterministic,omitempty"`
	Halting       bool   `yaml:"halting,omitempty"`
}

// Network is a mass-action reaction network as written in a model file.
// Species may be referenced by name or by 1-based index.
type Network struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Species     []Species          `yaml:"species"`
	Reactions   []Reaction         `yaml:"reactions"`
	Parameters  map[string]float64 `yaml:"parameters,omitempty"`
}

func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func Parse(data []byte) (*Network, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var n Network
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Network) Save(path string) error {
	data, err := n.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (n *Network) Marshal() ([]byte, error) {
	return yaml.Marshal(n)
}

// Validate checks everything that can be checked without resolving species
// references; Compile checks the rest.
func (n *Network) Validate() error {
	if len(n.Species) == 0 {
		return fmt.Errorf("%w: no species", ErrInvalidNetwork)
	}
	if len(n.Reactions) == 0 {
		return fmt.Errorf("%w: no reactions", ErrInvalidNetwork)
	}
	seen := make(map[string]bool, len(n.Species))
	for i, s := range n.Species {
		if s.Name == "" {
			return fmt.Errorf("%w: species %d has no name", ErrInvalidNetwork, i+1)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate species %q", ErrInvalidNetwork, s.Name)
		}
		seen[s.Name] = true
		if s.Bound < 0 {
			return fmt.Errorf("%w: species %q has negative bound", ErrInvalidNetwork, s.Name)
		}
	}
	for j, r := range n.Reactions {
		label := r.Name
		if label == "" {
			label = fmt.Sprintf("#%d", j+1)
		}
		if r.Rate < 0 || math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
			return fmt.Errorf("%w: reaction %s has rate %g", ErrInvalidNetwork, label, r.Rate)
		}
		if r.Deterministic && r.Halting {
			return fmt.Errorf("%w: reaction %s cannot be both deterministic and halting", ErrInvalidNetwork, label)
		}
		for s, k := range r.Reactants {
			if k <= 0 {
				return fmt.Errorf("%w: reaction %s consumes %d of %s", ErrInvalidNetwork, label, k, s)
			}
		}
		for s, k := range r.Products {
			if k <= 0 {
				return fmt.Errorf("%w: reaction %s produces %d of %s", ErrInvalidNetwork, label, k, s)
			}
		}
	}
	return nil
}

// Clone returns a deep copy, so presets can be handed out and modified.
func (n *Network) Clone() *Network {
	c := *n
	c.Species = append([]Species(nil), n.Species...)
	c.Reactions = make([]Reaction, len(n.Reactions))
	for j, r := range n.Reactions {
		r.Reactants = cloneCounts(r.Reactants)
		r.Products = cloneCounts(r.Products)
		c.Reactions[j] = r
	}
	if n.Parameters != nil {
		c.Parameters = make(map[string]float64, len(n.Parameters))
		for k, v := range n.Parameters {
			c.Parameters[k] = v
		}
	}
	return &c
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
