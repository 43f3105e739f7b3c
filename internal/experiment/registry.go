package experiment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/san-kum/tauleap/internal/config"
	"github.com/san-kum/tauleap/internal/integrators"
	"github.com/san-kum/tauleap/internal/metrics"
	"github.com/san-kum/tauleap/internal/reaction"
	"github.com/san-kum/tauleap/internal/tauleap"
)

type Registry struct {
	models      map[string]func() *reaction.Network
	integrators map[string]func() integrators.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() *reaction.Network),
		integrators: make(map[string]func() integrators.Integrator),
	}

	for _, name := range config.ListPresets() {
		r.models[name] = func() *reaction.Network { return config.GetPreset(name) }
	}

	r.integrators["euler"] = func() integrators.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() integrators.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() integrators.Integrator { return integrators.NewRK45() }

	return r
}

// Register adds or replaces a named network.
func (r *Registry) Register(name string, n *reaction.Network) {
	r.models[name] = func() *reaction.Network { return n.Clone() }
}

func (r *Registry) GetModel(name string) (*reaction.Network, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

// Resolve returns the registered network called nameOrPath, or loads it as a
// model file when no such name exists.
func (r *Registry) Resolve(nameOrPath string) (*reaction.Network, error) {
	if n, err := r.GetModel(nameOrPath); err == nil {
		return n, nil
	}
	if _, err := os.Stat(nameOrPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unknown model: %s (not a preset or a file)", nameOrPath)
		}
		return nil, err
	}
	return reaction.Load(nameOrPath)
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Metrics builds metrics from "kind:species" specs. With no specs it returns
// the final value and time mean of every variable.
func (r *Registry) Metrics(names []string, specs []string) ([]tauleap.Metric, error) {
	if len(specs) == 0 {
		return metrics.Defaults(names), nil
	}
	ms := make([]tauleap.Metric, 0, len(specs))
	for _, spec := range specs {
		kind, species, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("metric %q: want kind:species", spec)
		}
		m, err := metrics.New(kind, names, species)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, nil
}
