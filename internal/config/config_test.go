package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/san-kum/antsim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sim.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Sim.Substeps != 16 {
		t.Errorf("expected 16 substeps, got %d", cfg.Sim.Substeps)
	}
	if cfg.Ant.TerminationHeight != 0.27 {
		t.Errorf("expected termination height 0.27, got %f", cfg.Ant.TerminationHeight)
	}
	if cfg.Ant.EnvSpacing != 0 {
		t.Errorf("training layout should not separate environments, got %f", cfg.Ant.EnvSpacing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("render")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if !cfg.Render || cfg.Ant.EnvSpacing != DefaultRenderSpacing {
		t.Errorf("render preset should enable rendering with spacing %f", DefaultRenderSpacing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("render preset invalid: %v", err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsDoNotShareState(t *testing.T) {
	a := GetPreset("train")
	a.NumEnvs = 1
	if b := GetPreset("train"); b.NumEnvs == 1 {
		t.Error("preset configs should be independent")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("presets not sorted: %v", presets)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ant.yaml")

	cfg := GetPreset("debug")
	cfg.Seed = 42
	cfg.Material.ContactMu = 0.5
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded config differs:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero envs", func(c *Config) { c.NumEnvs = 0 }},
		{"zero episode", func(c *Config) { c.EpisodeLength = 0 }},
		{"zero cache frequency", func(c *Config) { c.MMCachingFrequency = 0 }},
		{"negative dt", func(c *Config) { c.Sim.Dt = -1 }},
		{"zero substeps", func(c *Config) { c.Sim.Substeps = 0 }},
		{"zero velocity scaling", func(c *Config) { c.Ant.JointVelObsScaling = 0 }},
		{"negative density", func(c *Config) { c.Material.Density = -1 }},
		{"negative friction", func(c *Config) { c.Material.ContactMu = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}
