package config

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tauleap/internal/tauleap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "decay" {
		t.Errorf("expected model decay, got %s", cfg.Model)
	}
	if cfg.Time <= 0 {
		t.Error("time should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
model: sir
time: 60
seed: 42
runs: 8
parameters:
  beta: 0.001
params:
  epsilon: 0.03
  max_tau: 0.5
  exact_burst:
    after_implicit: 5
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "sir" || cfg.Time != 60 || cfg.Seed != 42 || cfg.Runs != 8 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Integrator != "rk4" {
		t.Errorf("unset fields should keep defaults, got integrator %q", cfg.Integrator)
	}
	if cfg.Parameters["beta"] != 0.001 {
		t.Errorf("beta override = %v", cfg.Parameters["beta"])
	}

	p, err := cfg.EngineParams(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	def := tauleap.DefaultParams()
	if p.Epsilon != 0.03 || p.MaxTau != 0.5 {
		t.Errorf("overlay not applied: epsilon=%v max_tau=%v", p.Epsilon, p.MaxTau)
	}
	if p.ExactBurst.AfterImplicit != 5 || p.ExactBurst.AfterExact != def.ExactBurst.AfterExact {
		t.Errorf("nested overlay = %+v", p.ExactBurst)
	}
	if p.Delta != def.Delta {
		t.Errorf("untouched delta changed to %v", p.Delta)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("runs: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for zero runs")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEngineParams_UnknownKeysWarn(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte("params:\n  epsilon: 0.1\n  bogus: 3\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	p, err := cfg.EngineParams(slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	if p.Epsilon != 0.1 {
		t.Errorf("epsilon = %v, want 0.1", p.Epsilon)
	}
	if !strings.Contains(logs.String(), "bogus") {
		t.Errorf("expected a warning naming the unknown key, got %q", logs.String())
	}
}

func TestEngineParams_Defaults(t *testing.T) {
	p, err := DefaultConfig().EngineParams(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(p.MaxTau, 1) || p.CriticalThreshold != 10 {
		t.Errorf("expected defaults, got %+v", p)
	}
}

func TestEngineParams_InvalidValue(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte("params:\n  epsilon: -1\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.EngineParams(slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := DefaultConfig()
	cfg.Model = "dimerization"
	cfg.Runs = 3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model != "dimerization" || loaded.Runs != 3 {
		t.Errorf("loaded %+v", loaded)
	}
}

func TestSaveRoundTrip_Params(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.yaml")
	if err := os.WriteFile(src, []byte("model: decay\nparams:\n  epsilon: 0.02\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params.Kind != yaml.MappingNode {
		t.Fatalf("params block not captured, kind = %v", cfg.Params.Kind)
	}

	dst := filepath.Join(dir, "out.yaml")
	if err := Save(dst, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dst)
	if err != nil {
		t.Fatal(err)
	}
	p, err := loaded.EngineParams(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	if p.Epsilon != 0.02 {
		t.Errorf("epsilon after round trip = %v, want 0.02", p.Epsilon)
	}
}

func TestEngineParams_NotMapping(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte("params: [1, 2]\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.EngineParams(slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected error for a non-mapping params block")
	}
}

func TestPresets_Compile(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			n := GetPreset(name)
			if n == nil {
				t.Fatal("preset missing")
			}
			if n.Name != name {
				t.Errorf("preset %q is named %q", name, n.Name)
			}
			sys, err := n.Compile(nil)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if _, err := tauleap.New(sys.Model(), tauleap.DefaultParams(), tauleap.WithSeed(1)); err != nil {
				t.Fatalf("simulator rejected preset: %v", err)
			}
		})
	}
}

func TestGetPreset_ReturnsCopy(t *testing.T) {
	a := GetPreset("sir")
	a.Parameters["beta"] = 1
	if GetPreset("sir").Parameters["beta"] == 1 {
		t.Error("preset was mutated through a returned copy")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresets_Features(t *testing.T) {
	sys, _ := GetPreset("dimerization").Compile(nil)
	s, _ := tauleap.New(sys.Model(), tauleap.DefaultParams(), tauleap.WithSeed(1))
	if len(s.BalancedPairs()) != 1 {
		t.Errorf("dimerization should have one balanced pair, got %v", s.BalancedPairs())
	}

	sys, _ = GetPreset("gene_switch").Compile(nil)
	if m := sys.Model(); len(m.Halting) != 1 {
		t.Errorf("gene_switch should have one halting reaction, got %v", m.Halting)
	}

	sys, _ = GetPreset("chemostat").Compile(nil)
	s, _ = tauleap.New(sys.Model(), tauleap.DefaultParams(), tauleap.WithSeed(1))
	if rv := s.RealValued(); !rv[0] || rv[1] {
		t.Errorf("chemostat real valued = %v, want [true false]", rv)
	}
}
