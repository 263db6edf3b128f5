// Package config loads server and simulation settings through viper:
// built-in defaults, an optional YAML file, then TANGLE_* environment
// variables, with later sources winning.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"tangle-sim/models"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Store      StoreConfig      `mapstructure:"store"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
}

type SimulationConfig struct {
	NodeCount    int     `mapstructure:"node_count"`
	MaxNodeCount int     `mapstructure:"max_node_count"`
	Lambda       float64 `mapstructure:"lambda"`
	MinGap       float64 `mapstructure:"min_gap"`
	Alpha        float64 `mapstructure:"alpha"`
	Strategy     string  `mapstructure:"strategy"`
	Seed         int64   `mapstructure:"seed"`
}

type StoreConfig struct {
	MaxRuns int `mapstructure:"max_runs"`
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("simulation.node_count", 50)
	v.SetDefault("simulation.max_node_count", 500)
	v.SetDefault("simulation.lambda", 5.0)
	v.SetDefault("simulation.min_gap", 1.0)
	v.SetDefault("simulation.alpha", 1.0)
	v.SetDefault("simulation.strategy", string(models.Weighted))
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("store.max_runs", 100)
}

// Load reads configuration into a fresh viper instance. An empty path
// skips the file; a missing file at a given path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v, path)
}

// FromViper reads path (if set) and the environment into v, which may
// already carry bound flags, and decodes the result.
func FromViper(v *viper.Viper, path string) (*Config, error) {
	v.SetEnvPrefix("TANGLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the simulator cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	s := c.Simulation
	if s.MaxNodeCount <= 0 {
		errs = append(errs, fmt.Errorf("simulation.max_node_count must be positive"))
	}
	if s.NodeCount <= 0 || (s.MaxNodeCount > 0 && s.NodeCount > s.MaxNodeCount) {
		errs = append(errs, fmt.Errorf("simulation.node_count %d out of range", s.NodeCount))
	}
	if s.Lambda <= 0 {
		errs = append(errs, fmt.Errorf("simulation.lambda must be positive"))
	}
	if s.MinGap < 0 {
		errs = append(errs, fmt.Errorf("simulation.min_gap must not be negative"))
	}
	if s.Alpha < 0 {
		errs = append(errs, fmt.Errorf("simulation.alpha must not be negative"))
	}
	if _, err := models.ParseStrategyKind(s.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("simulation.strategy: %w", err))
	}
	if c.Store.MaxRuns <= 0 {
		errs = append(errs, fmt.Errorf("store.max_runs must be positive"))
	}
	return errors.Join(errs...)
}

// Parameters returns the default build parameters.
func (s SimulationConfig) Parameters() models.Parameters {
	kind, err := models.ParseStrategyKind(s.Strategy)
	if err != nil {
		kind = models.StrategyKind(s.Strategy)
	}
	return models.Parameters{
		NodeCount: s.NodeCount,
		Lambda:    s.Lambda,
		MinGap:    s.MinGap,
		Alpha:     s.Alpha,
		Strategy:  kind,
		Seed:      s.Seed,
	}
}
