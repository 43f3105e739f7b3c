package config

import (
	"slices"

	"github.com/san-kum/tauleap/internal/reaction"
)

type counts = map[string]int

var presets = map[string]*reaction.Network{
	"decay": {
		Name:        "decay",
		Description: "first-order decay X -> 0",
		Species:     []reaction.Species{{Name: "X", Initial: 1000}},
		Reactions: []reaction.Reaction{
			{Name: "decay", Reactants: counts{"X": 1}, Param: "k"},
		},
		Parameters: map[string]float64{"k": 0.1},
	},
	"birth_death": {
		Name:        "birth_death",
		Description: "immigration and death; stationary distribution is Poisson(birth/death)",
		Species:     []reaction.Species{{Name: "X", Initial: 0}},
		Reactions: []reaction.Reaction{
			{Name: "birth", Products: counts{"X": 1}, Param: "birth"},
			{Name: "death", Reactants: counts{"X": 1}, Param: "death"},
		},
		Parameters: map[string]float64{"birth": 10, "death": 0.1},
	},
	"sir": {
		Name:        "sir",
		Description: "susceptible-infected-recovered epidemic",
		Species: []reaction.Species{
			{Name: "S", Initial: 990},
			{Name: "I", Initial: 10},
			{Name: "R", Initial: 0},
		},
		Reactions: []reaction.Reaction{
			{Name: "infection", Reactants: counts{"S": 1, "I": 1}, Products: counts{"I": 2}, Param: "beta"},
			{Name: "recovery", Reactants: counts{"I": 1}, Products: counts{"R": 1}, Param: "gamma"},
		},
		Parameters: map[string]float64{"beta": 0.0005, "gamma": 0.1},
	},
	"lotka_volterra": {
		Name:        "lotka_volterra",
		Description: "predator-prey oscillations that end in extinction",
		Species: []reaction.Species{
			{Name: "prey", Initial: 100},
			{Name: "predator", Initial: 150},
		},
		Reactions: []reaction.Reaction{
			{Name: "prey_birth", Reactants: counts{"prey": 1}, Products: counts{"prey": 2}, Param: "alpha"},
			{Name: "predation", Reactants: counts{"prey": 1, "predator": 1}, Products: counts{"predator": 2}, Param: "beta"},
			{Name: "predator_death", Reactants: counts{"predator": 1}, Param: "gamma"},
		},
		Parameters: map[string]float64{"alpha": 1, "beta": 0.005, "gamma": 0.6},
	},
	"dimerization": {
		Name:        "dimerization",
		Description: "stiff decaying-dimerizing system of Cao, Gillespie and Petzold (2007)",
		Species: []reaction.Species{
			{Name: "S1", Initial: 4150},
			{Name: "S2", Initial: 39565},
			{Name: "S3", Initial: 3445},
		},
		Reactions: []reaction.Reaction{
			{Name: "decay", Reactants: counts{"S1": 1}, Param: "c1"},
			{Name: "dimerize", Reactants: counts{"S1": 2}, Products: counts{"S2": 1}, Param: "c2"},
			{Name: "split", Reactants: counts{"S2": 1}, Products: counts{"S1": 2}, Param: "c3"},
			{Name: "convert", Reactants: counts{"S2": 1}, Products: counts{"S3": 1}, Param: "c4"},
		},
		Parameters: map[string]float64{"c1": 1, "c2": 10, "c3": 1000, "c4": 0.1},
	},
	"gene_switch": {
		Name:        "gene_switch",
		Description: "protein expression until the promoter switches on, which ends the run",
		Species: []reaction.Species{
			{Name: "off", Initial: 1},
			{Name: "on", Initial: 0},
			{Name: "P", Initial: 0},
		},
		Reactions: []reaction.Reaction{
			{Name: "express", Reactants: counts{"off": 1}, Products: counts{"off": 1, "P": 1}, Param: "express"},
			{Name: "degrade", Reactants: counts{"P": 1}, Param: "degrade"},
			{Name: "activate", Reactants: counts{"off": 1}, Products: counts{"on": 1}, Param: "activate", Halting: true},
		},
		Parameters: map[string]float64{"express": 10, "degrade": 0.1, "activate": 0.01},
	},
	"chemostat": {
		Name:        "chemostat",
		Description: "bacteria growing on a continuously fed nutrient",
		Species: []reaction.Species{
			{Name: "N", Initial: 500},
			{Name: "B", Initial: 20},
		},
		Reactions: []reaction.Reaction{
			{Name: "feed", Products: counts{"N": 1}, Param: "feed", Deterministic: true},
			{Name: "growth", Reactants: counts{"N": 1, "B": 1}, Products: counts{"B": 2}, Param: "growth"},
			{Name: "washout", Reactants: counts{"B": 1}, Param: "washout"},
		},
		Parameters: map[string]float64{"feed": 50, "growth": 0.001, "washout": 0.2},
	},
}

// GetPreset returns a copy of the named preset network, or nil.
func GetPreset(name string) *reaction.Network {
	n, ok := presets[name]
	if !ok {
		return nil
	}
	return n.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
