package config

import (
	"fmt"
	"os"

	"github.com/san-kum/antsim/internal/dynamo"
	"github.com/san-kum/antsim/internal/models"
	"github.com/san-kum/antsim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNumEnvs        = 64
	DefaultEpisodeLength  = 1000
	DefaultCacheFrequency = 16
	DefaultDt             = 1.0 / 60.0
	DefaultSubsteps       = 16
	DefaultGravity        = 9.81

	DefaultTerminationHeight  = 0.27
	DefaultActionStrength     = 200.0
	DefaultJointVelObsScaling = 0.1
	DefaultStartHeight        = 0.75
	DefaultRenderSpacing      = 2.5
)

type Config struct {
	NumEnvs            int    `yaml:"num_envs"`
	Seed               uint64 `yaml:"seed"`
	EpisodeLength      int    `yaml:"episode_length"`
	NoGrad             bool   `yaml:"no_grad"`
	StochasticInit     bool   `yaml:"stochastic_init"`
	MMCachingFrequency int    `yaml:"mm_caching_frequency"`
	EarlyTermination   bool   `yaml:"early_termination"`
	ContactTermination bool   `yaml:"contact_termination"`
	Jacobians          bool   `yaml:"jacobians"`
	Render             bool   `yaml:"render"`
	RenderInterval     int    `yaml:"render_interval"`
	OutputDir          string `yaml:"output_dir"`
	Workers            int    `yaml:"workers"`

	Sim      SimConfig    `yaml:"sim"`
	Ant      AntConfig    `yaml:"ant"`
	Material sim.Material `yaml:"material"`
}

type SimConfig struct {
	Dt            float64 `yaml:"dt"`
	Substeps      int     `yaml:"substeps"`
	Gravity       float64 `yaml:"gravity"`
	SelfCollision bool    `yaml:"self_collision"`
}

type AntConfig struct {
	TerminationHeight  float64 `yaml:"termination_height"`
	ActionStrength     float64 `yaml:"action_strength"`
	ActionPenalty      float64 `yaml:"action_penalty"`
	JointVelObsScaling float64 `yaml:"joint_vel_obs_scaling"`
	StartHeight        float64 `yaml:"start_height"`
	// EnvSpacing separates environments along z. Zero keeps every
	// environment numerically identical for training.
	EnvSpacing float64 `yaml:"env_spacing"`
}

func DefaultConfig() *Config {
	return &Config{
		NumEnvs:            DefaultNumEnvs,
		EpisodeLength:      DefaultEpisodeLength,
		NoGrad:             true,
		MMCachingFrequency: DefaultCacheFrequency,
		EarlyTermination:   true,
		RenderInterval:     1,
		OutputDir:          "runs",
		Sim: SimConfig{
			Dt:            DefaultDt,
			Substeps:      DefaultSubsteps,
			Gravity:       DefaultGravity,
			SelfCollision: true,
		},
		Ant: AntConfig{
			TerminationHeight:  DefaultTerminationHeight,
			ActionStrength:     DefaultActionStrength,
			JointVelObsScaling: DefaultJointVelObsScaling,
			StartHeight:        DefaultStartHeight,
		},
		Material: models.AntMaterial(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	switch {
	case c.NumEnvs < 1:
		return fmt.Errorf("num_envs must be at least 1, got %d: %w", c.NumEnvs, dynamo.ErrParameterBounds)
	case c.EpisodeLength < 1:
		return fmt.Errorf("episode_length must be at least 1, got %d: %w", c.EpisodeLength, dynamo.ErrParameterBounds)
	case c.MMCachingFrequency < 1:
		return fmt.Errorf("mm_caching_frequency must be at least 1, got %d: %w", c.MMCachingFrequency, dynamo.ErrParameterBounds)
	case c.RenderInterval < 1:
		return fmt.Errorf("render_interval must be at least 1, got %d: %w", c.RenderInterval, dynamo.ErrParameterBounds)
	case c.Workers < 0:
		return fmt.Errorf("workers must be non-negative, got %d: %w", c.Workers, dynamo.ErrParameterBounds)
	case c.Sim.Dt <= 0:
		return fmt.Errorf("sim.dt must be positive, got %g: %w", c.Sim.Dt, dynamo.ErrParameterBounds)
	case c.Sim.Substeps < 1:
		return fmt.Errorf("sim.substeps must be at least 1, got %d: %w", c.Sim.Substeps, dynamo.ErrParameterBounds)
	case c.Ant.ActionStrength < 0:
		return fmt.Errorf("ant.action_strength must be non-negative, got %g: %w", c.Ant.ActionStrength, dynamo.ErrParameterBounds)
	case c.Ant.JointVelObsScaling == 0:
		return fmt.Errorf("ant.joint_vel_obs_scaling must be nonzero: %w", dynamo.ErrParameterBounds)
	case c.Ant.StartHeight <= 0:
		return fmt.Errorf("ant.start_height must be positive, got %g: %w", c.Ant.StartHeight, dynamo.ErrParameterBounds)
	}
	return c.Material.Validate()
}
