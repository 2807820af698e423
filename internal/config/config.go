// Package config provides unified configuration loading for drsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/estimator"
	"github.com/nvandessel/drsim/internal/generator"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/simulation"
)

// DrsimConfig contains all drsim configuration settings.
type DrsimConfig struct {
	// Simulation controls replicate count, sample size and model specification.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Generator holds the coefficients of the data-generating process.
	Generator generator.Config `json:"generator" yaml:"generator"`

	// Estimation contains settings for the estimator bank.
	Estimation EstimationConfig `json:"estimation" yaml:"estimation"`

	// Logging contains settings for operational logging and replicate traces.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig configures the replicate driver.
type SimulationConfig struct {
	Replicates int    `json:"replicates" yaml:"replicates"`
	SampleSize int    `json:"sample_size" yaml:"sample_size"`
	Seed       uint64 `json:"seed" yaml:"seed"`

	// Workers is the number of replicates evaluated concurrently (0 = serial).
	Workers int `json:"workers" yaml:"workers"`

	// Scenario selects preset covariate subsets for the two models.
	Scenario constants.Scenario `json:"scenario" yaml:"scenario"`

	// PropensityCovariates and OutcomeCovariates, when set, override the
	// scenario's subsets for that model.
	PropensityCovariates []models.Covariate `json:"propensity_covariates,omitempty" yaml:"propensity_covariates,omitempty"`
	OutcomeCovariates    []models.Covariate `json:"outcome_covariates,omitempty" yaml:"outcome_covariates,omitempty"`
}

// EstimationConfig configures the estimators.
type EstimationConfig struct {
	// DivisionEpsilon bounds propensities away from 0 and 1.
	// Range: (0, 0.5)
	DivisionEpsilon float64 `json:"division_epsilon" yaml:"division_epsilon"`

	// DiscardFlagged drops division-risk estimates from summaries.
	DiscardFlagged bool `json:"discard_flagged" yaml:"discard_flagged"`
}

// LoggingConfig configures drsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" and "trace" enable the JSONL replicate trace when TraceDir is set.
	Level string `json:"level" yaml:"level"`

	// TraceDir is the directory receiving replicates.jsonl.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// Default returns a DrsimConfig with sensible defaults.
func Default() *DrsimConfig {
	return &DrsimConfig{
		Simulation: SimulationConfig{
			Replicates: constants.DefaultReplicates,
			SampleSize: constants.DefaultSampleSize,
			Seed:       constants.DefaultSeed,
			Workers:    constants.DefaultWorkers,
			Scenario:   constants.ScenarioCorrect,
		},
		Generator: generator.DefaultConfig(),
		Estimation: EstimationConfig{
			DivisionEpsilon: constants.DefaultDivisionEpsilon,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.drsim/config.yaml, or "" if the home directory is unknown.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".drsim", "config.yaml")
}

// Load loads configuration from path (or the default location when path
// is empty) and applies environment variable overrides.
// Order: defaults -> config file -> environment variables
func Load(path string) (*DrsimConfig, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		_, statErr := os.Stat(path)
		if statErr == nil || explicit {
			fileConfig, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*DrsimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *DrsimConfig) Validate() error {
	if c.Simulation.Replicates < 1 {
		return fmt.Errorf("replicates must be at least 1, got %d", c.Simulation.Replicates)
	}
	if c.Simulation.SampleSize < 1 {
		return fmt.Errorf("sample_size must be at least 1, got %d", c.Simulation.SampleSize)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Simulation.Workers)
	}
	if !c.Simulation.Scenario.Valid() {
		return fmt.Errorf("invalid scenario: %s (valid: correct, propensity_misspecified, outcome_misspecified, both_misspecified)", c.Simulation.Scenario)
	}
	if len(c.Simulation.PropensityCovariates) > 0 {
		if err := models.ValidateCovariates(c.Simulation.PropensityCovariates); err != nil {
			return fmt.Errorf("propensity_covariates: %w", err)
		}
	}
	if len(c.Simulation.OutcomeCovariates) > 0 {
		if err := models.ValidateCovariates(c.Simulation.OutcomeCovariates); err != nil {
			return fmt.Errorf("outcome_covariates: %w", err)
		}
	}

	if err := estimator.ValidateEpsilon(c.Estimation.DivisionEpsilon); err != nil {
		return err
	}

	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// ToRunnerConfig maps the configuration onto a replicate driver config.
// Explicit covariate lists take precedence over the scenario's.
func (c *DrsimConfig) ToRunnerConfig() (simulation.Config, error) {
	spec, err := simulation.LookupScenario(c.Simulation.Scenario)
	if err != nil {
		return simulation.Config{}, err
	}

	rc := simulation.Config{
		Replicates:           c.Simulation.Replicates,
		SampleSize:           c.Simulation.SampleSize,
		Seed:                 c.Simulation.Seed,
		Workers:              c.Simulation.Workers,
		Generator:            c.Generator,
		PropensityCovariates: spec.PropensityCovariates,
		OutcomeCovariates:    spec.OutcomeCovariates,
		DivisionEpsilon:      c.Estimation.DivisionEpsilon,
		DiscardFlagged:       c.Estimation.DiscardFlagged,
	}
	if len(c.Simulation.PropensityCovariates) > 0 {
		rc.PropensityCovariates = c.Simulation.PropensityCovariates
	}
	if len(c.Simulation.OutcomeCovariates) > 0 {
		rc.OutcomeCovariates = c.Simulation.OutcomeCovariates
	}
	return rc, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numeric values are reported rather than silently ignored.
func applyEnvOverrides(config *DrsimConfig) error {
	intVars := []struct {
		name string
		dst  *int
	}{
		{"DRSIM_REPLICATES", &config.Simulation.Replicates},
		{"DRSIM_SAMPLE_SIZE", &config.Simulation.SampleSize},
		{"DRSIM_WORKERS", &config.Simulation.Workers},
	}
	for _, v := range intVars {
		if s := os.Getenv(v.name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", v.name, err)
			}
			*v.dst = n
		}
	}

	if s := os.Getenv("DRSIM_SEED"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing DRSIM_SEED: %w", err)
		}
		config.Simulation.Seed = n
	}

	if s := os.Getenv("DRSIM_EFFECT"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing DRSIM_EFFECT: %w", err)
		}
		config.Generator.Effect = f
	}

	if v := os.Getenv("DRSIM_SCENARIO"); v != "" {
		config.Simulation.Scenario = constants.Scenario(v)
	}

	if v := os.Getenv("DRSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("DRSIM_TRACE_DIR"); v != "" {
		config.Logging.TraceDir = v
	}

	return nil
}
