package config

import "sort"

var Presets = map[string]func(*Config){
	// Large batch with gradient tracking and randomized starts.
	"train": func(c *Config) {
		c.NumEnvs = 256
		c.NoGrad = false
		c.StochasticInit = true
	},
	"eval": func(c *Config) {
		c.NumEnvs = 16
		c.NoGrad = true
		c.StochasticInit = false
	},
	"render": func(c *Config) {
		c.NumEnvs = 4
		c.Render = true
		c.RenderInterval = 4
		c.Ant.EnvSpacing = DefaultRenderSpacing
	},
	"debug": func(c *Config) {
		c.NumEnvs = 2
		c.EpisodeLength = 50
		c.NoGrad = false
		c.Jacobians = true
		c.Workers = 1
	},
}

// GetPreset returns the default config with the named preset applied, or
// nil if there is no such preset.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
