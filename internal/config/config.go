package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mkastelik/pulsar/internal/pipeline"
)

// ErrNoTemperatures is returned when no processing temperatures are set.
var ErrNoTemperatures = errors.New("no temperatures configured")

// Config holds all runtime configuration for a pulsar run.
// Values are populated from .pulsar.yaml, PULSAR_* env vars, and CLI flags.
type Config struct {
	NJOYPath     string                       `mapstructure:"njoy_path"`
	Library      string                       `mapstructure:"library"`
	OutputDir    string                       `mapstructure:"output_directory"`
	Temperatures []float64                    `mapstructure:"temperatures"`
	Workers      int                          `mapstructure:"workers"`
	Timeout      time.Duration                `mapstructure:"timeout"`
	Overrides    map[string]map[string]string `mapstructure:"overrides"`
	Verbose      bool                         `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("njoy_path", "njoy")
	viper.SetDefault("library", ".")
	viper.SetDefault("output_directory", "out")
	viper.SetDefault("temperatures", []float64{293.6})
	viper.SetDefault("workers", 1)
	viper.SetDefault("timeout", time.Duration(0))
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	if len(cfg.Temperatures) == 0 {
		return Config{}, ErrNoTemperatures
	}
	return cfg, nil
}

// Resonance maps the optional enable_resonance_treatment key onto the
// pipeline's tri-state mode. An unset key leaves the decision to the
// evaluation's resonance flags.
func (c Config) Resonance() pipeline.ResonanceMode {
	if !viper.IsSet("enable_resonance_treatment") {
		return pipeline.ResonanceAuto
	}
	if viper.GetBool("enable_resonance_treatment") {
		return pipeline.ResonanceOn
	}
	return pipeline.ResonanceOff
}

// PipelineOptions assembles the builder options from the configured
// resonance mode and parameter overrides.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Resonance: c.Resonance(),
		Overrides: c.Overrides,
	}
}
