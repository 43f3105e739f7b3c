package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tauleap/internal/tauleap"
)

const (
	DefaultModel = "decay"
	DefaultTime  = 100.0
	DefaultRuns  = 1
	DefaultGrid  = 200
)

// Config is a run file. Model names a preset or a model file path.
type Config struct {
	Model string  `yaml:"model"`
	Time  float64 `yaml:"time"`
	// Seed 0 picks a seed from the clock.
	Seed       uint64             `yaml:"seed"`
	Runs       int                `yaml:"runs"`
	Exact      bool               `yaml:"exact"`
	Integrator string             `yaml:"integrator"`
	Grid       int                `yaml:"grid"`
	Parameters map[string]float64 `yaml:"parameters,omitempty"`
	// Params overlays the simulator defaults; kept raw so unknown keys can
	// be reported instead of rejected. A zero Kind means the block is absent.
	Params yaml.Node `yaml:"params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      DefaultModel,
		Time:       DefaultTime,
		Runs:       DefaultRuns,
		Integrator: "rk4",
		Grid:       DefaultGrid,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Time < 0 {
		return fmt.Errorf("time must be nonnegative, got %g", c.Time)
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Runs)
	}
	if c.Grid < 2 {
		return fmt.Errorf("grid must have at least 2 points, got %d", c.Grid)
	}
	return nil
}

// EngineParams overlays the params block on tauleap.DefaultParams. Unknown
// keys are logged and skipped.
func (c *Config) EngineParams(logger *slog.Logger) (tauleap.Params, error) {
	p := tauleap.DefaultParams()
	if c.Params.Kind == 0 {
		return p, nil
	}
	if c.Params.Kind != yaml.MappingNode {
		return p, fmt.Errorf("params must be a mapping")
	}

	known := yamlKeys(reflect.TypeOf(p))
	var kept []*yaml.Node
	for i := 0; i+1 < len(c.Params.Content); i += 2 {
		key := c.Params.Content[i].Value
		if !known[key] {
			logger.Warn("ignoring unknown parameter", "name", key)
			continue
		}
		kept = append(kept, c.Params.Content[i], c.Params.Content[i+1])
	}
	filtered := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: kept}
	if err := filtered.Decode(&p); err != nil {
		return p, fmt.Errorf("params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func yamlKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}
