package automation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tauleap/internal/experiment"
	"github.com/san-kum/tauleap/internal/tauleap"
)

// Scenario is a scripted sequence of simulations.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one experiment. Runs > 1 simulates an ensemble with
// consecutive seeds.
type ScenarioStep struct {
	Model      string             `yaml:"model"`
	Time       float64            `yaml:"time"`
	Seed       uint64             `yaml:"seed,omitempty"`
	Runs       int                `yaml:"runs,omitempty"`
	Exact      bool               `yaml:"exact,omitempty"`
	Parameters map[string]float64 `yaml:"parameters,omitempty"`
	Metrics    []string           `yaml:"metrics,omitempty"`
	Save       bool               `yaml:"save,omitempty"`
}

// StepResult holds the runs of one step.
type StepResult struct {
	Step    int
	Model   string
	Seed    uint64
	Results []*tauleap.Result
	// ReactionNames label halting transitions in the results.
	ReactionNames []string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	return &scenario, nil
}

// RunScenario executes the steps in order with the same engine params. A
// step that exits early keeps its truncated results; any other error stops
// the scenario.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, params tauleap.Params, logger *slog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Info("scenario step", "step", i+1, "of", len(scenario.Steps), "model", step.Model)

		network, err := registry.Resolve(step.Model)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(network, experiment.Config{
			Time:      step.Time,
			Seed:      step.Seed,
			Exact:     step.Exact,
			Overrides: step.Parameters,
			Params:    params,
			Metrics:   step.Metrics,
		}, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		var runs []*tauleap.Result
		if step.Runs > 1 {
			runs, err = exp.Ensemble(ctx, step.Runs)
		} else {
			var res *tauleap.Result
			res, err = exp.Run(ctx)
			var early *tauleap.EarlyExitError
			if errors.As(err, &early) {
				err = nil
			}
			if res != nil {
				runs = []*tauleap.Result{res}
			}
		}
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{
			Step:          i + 1,
			Model:         network.Name,
			Seed:          exp.Seed(),
			Results:       runs,
			ReactionNames: exp.System().ReactionNames(),
		})
	}

	return results, nil
}
