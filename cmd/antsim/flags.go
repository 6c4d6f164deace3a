package main

import (
	"fmt"

	"github.com/san-kum/antsim/internal/config"
	"github.com/san-kum/antsim/internal/control"
	"github.com/san-kum/antsim/internal/env"
	"github.com/spf13/cobra"
)

// simFlags are the environment and controller flags shared by the
// simulation commands. They override config values only when set.
type simFlags struct {
	envs          int
	seed          uint64
	episodeLength int
	dt            float64
	substeps      int
	cacheFreq     int
	workers       int
	stochastic    bool
	earlyTerm     bool
	contactTerm   bool
	selfCollision bool

	controller string
	kp, kd     float64
	amplitude  float64
	frequency  float64
}

func (f *simFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.envs, "envs", config.DefaultNumEnvs, "number of environments")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed")
	fl.IntVar(&f.episodeLength, "episode-length", config.DefaultEpisodeLength, "steps per episode")
	fl.Float64Var(&f.dt, "dt", config.DefaultDt, "environment timestep")
	fl.IntVar(&f.substeps, "substeps", config.DefaultSubsteps, "integrator substeps per step")
	fl.IntVar(&f.cacheFreq, "cache-freq", config.DefaultCacheFrequency, "mass matrix refresh period in substeps")
	fl.IntVar(&f.workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	fl.BoolVar(&f.stochastic, "stochastic", false, "randomize reset poses")
	fl.BoolVar(&f.earlyTerm, "early-termination", true, "end episodes when the torso drops too low")
	fl.BoolVar(&f.contactTerm, "contact-termination", false, "end episodes when the torso touches the ground")
	fl.BoolVar(&f.selfCollision, "self-collision", true, "collide legs with each other")

	fl.StringVar(&f.controller, "controller", "zero", fmt.Sprintf("controller %v", control.Names()))
	fl.Float64Var(&f.kp, "kp", control.DefaultKp, "pd kp")
	fl.Float64Var(&f.kd, "kd", control.DefaultKd, "pd kd")
	fl.Float64Var(&f.amplitude, "amplitude", control.DefaultGaitAmplitude, "gait amplitude")
	fl.Float64Var(&f.frequency, "frequency", control.DefaultGaitFrequency, "gait frequency (hz)")
}

func changed(cmd *cobra.Command, name string) bool {
	fl := cmd.Flag(name)
	return fl != nil && fl.Changed
}

// baseConfig resolves --preset and --config, in that order of precedence.
func baseConfig() (*config.Config, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	if preset != "" {
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func (f *simFlags) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := baseConfig()
	if err != nil {
		return nil, err
	}

	if changed(cmd, "envs") {
		cfg.NumEnvs = f.envs
	}
	if changed(cmd, "seed") {
		cfg.Seed = f.seed
	}
	if changed(cmd, "episode-length") {
		cfg.EpisodeLength = f.episodeLength
	}
	if changed(cmd, "dt") {
		cfg.Sim.Dt = f.dt
	}
	if changed(cmd, "substeps") {
		cfg.Sim.Substeps = f.substeps
	}
	if changed(cmd, "cache-freq") {
		cfg.MMCachingFrequency = f.cacheFreq
	}
	if changed(cmd, "workers") {
		cfg.Workers = f.workers
	}
	if changed(cmd, "stochastic") {
		cfg.StochasticInit = f.stochastic
	}
	if changed(cmd, "early-termination") {
		cfg.EarlyTermination = f.earlyTerm
	}
	if changed(cmd, "contact-termination") {
		cfg.ContactTermination = f.contactTerm
	}
	if changed(cmd, "self-collision") {
		cfg.Sim.SelfCollision = f.selfCollision
	}
	if changed(cmd, "data") || configFile == "" {
		cfg.OutputDir = dataDir
	}

	return cfg, cfg.Validate()
}

func (f *simFlags) newController(cmd *cobra.Command, cfg *config.Config) (control.Controller, error) {
	ctrl, err := control.New(f.controller, env.AntActs, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if t, ok := ctrl.(control.Tunable); ok {
		for flag, param := range map[string]string{
			"kp":        "Kp",
			"kd":        "Kd",
			"amplitude": "Amplitude",
			"frequency": "Frequency",
		} {
			if !changed(cmd, flag) {
				continue
			}
			if _, ok := t.GetParams()[param]; ok {
				v, _ := cmd.Flags().GetFloat64(flag)
				t.SetParam(param, v)
			}
		}
	}
	return ctrl, nil
}
