package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/models"
)

func TestDefault(t *testing.T) {
	config := Default()

	// Simulation defaults
	if config.Simulation.Replicates != constants.DefaultReplicates {
		t.Errorf("expected Replicates %d, got %d", constants.DefaultReplicates, config.Simulation.Replicates)
	}
	if config.Simulation.SampleSize != constants.DefaultSampleSize {
		t.Errorf("expected SampleSize %d, got %d", constants.DefaultSampleSize, config.Simulation.SampleSize)
	}
	if config.Simulation.Scenario != constants.ScenarioCorrect {
		t.Errorf("expected Scenario 'correct', got '%s'", config.Simulation.Scenario)
	}

	// Generator defaults
	if config.Generator.Effect != constants.DefaultTrueEffect {
		t.Errorf("expected Effect %f, got %f", constants.DefaultTrueEffect, config.Generator.Effect)
	}

	// Estimation defaults
	if config.Estimation.DivisionEpsilon != constants.DefaultDivisionEpsilon {
		t.Errorf("expected DivisionEpsilon %g, got %g", constants.DefaultDivisionEpsilon, config.Estimation.DivisionEpsilon)
	}
	if config.Estimation.DiscardFlagged {
		t.Error("expected DiscardFlagged to be false by default")
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  replicates: 50
  sample_size: 1000
  seed: 7
  workers: 8
  scenario: outcome_misspecified

generator:
  confounding_1: 1.0
  effect: 4.5

estimation:
  division_epsilon: 0.01
  discard_flagged: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Replicates != 50 {
		t.Errorf("expected Replicates 50, got %d", config.Simulation.Replicates)
	}
	if config.Simulation.SampleSize != 1000 {
		t.Errorf("expected SampleSize 1000, got %d", config.Simulation.SampleSize)
	}
	if config.Simulation.Seed != 7 {
		t.Errorf("expected Seed 7, got %d", config.Simulation.Seed)
	}
	if config.Simulation.Scenario != constants.ScenarioOutcomeMisspecified {
		t.Errorf("expected Scenario 'outcome_misspecified', got '%s'", config.Simulation.Scenario)
	}
	if config.Generator.Confounding1 != 1.0 {
		t.Errorf("expected Confounding1 1.0, got %f", config.Generator.Confounding1)
	}
	if config.Generator.Effect != 4.5 {
		t.Errorf("expected Effect 4.5, got %f", config.Generator.Effect)
	}
	// Unset keys keep their defaults.
	if config.Generator.Confounding2 != constants.DefaultConfounding {
		t.Errorf("expected Confounding2 default, got %f", config.Generator.Confounding2)
	}
	if config.Estimation.DivisionEpsilon != 0.01 {
		t.Errorf("expected DivisionEpsilon 0.01, got %g", config.Estimation.DivisionEpsilon)
	}
	if !config.Estimation.DiscardFlagged {
		t.Error("expected DiscardFlagged to be true")
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config path")
	}
}

func TestLoad_DefaultPathAbsent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Simulation.Replicates != constants.DefaultReplicates {
		t.Errorf("expected defaults when no config file exists, got Replicates %d", config.Simulation.Replicates)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DRSIM_REPLICATES", "25")
	t.Setenv("DRSIM_SAMPLE_SIZE", "300")
	t.Setenv("DRSIM_SEED", "99")
	t.Setenv("DRSIM_WORKERS", "2")
	t.Setenv("DRSIM_SCENARIO", "both_misspecified")
	t.Setenv("DRSIM_EFFECT", "3.5")

	config := Default()
	if err := applyEnvOverrides(config); err != nil {
		t.Fatalf("applyEnvOverrides failed: %v", err)
	}

	if config.Simulation.Replicates != 25 {
		t.Errorf("expected Replicates 25, got %d", config.Simulation.Replicates)
	}
	if config.Simulation.SampleSize != 300 {
		t.Errorf("expected SampleSize 300, got %d", config.Simulation.SampleSize)
	}
	if config.Simulation.Seed != 99 {
		t.Errorf("expected Seed 99, got %d", config.Simulation.Seed)
	}
	if config.Simulation.Workers != 2 {
		t.Errorf("expected Workers 2, got %d", config.Simulation.Workers)
	}
	if config.Simulation.Scenario != constants.ScenarioBothMisspecified {
		t.Errorf("expected Scenario 'both_misspecified', got '%s'", config.Simulation.Scenario)
	}
	if config.Generator.Effect != 3.5 {
		t.Errorf("expected Effect 3.5, got %f", config.Generator.Effect)
	}
}

func TestEnvOverrides_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"DRSIM_REPLICATES", "many"},
		{"DRSIM_SEED", "-1"},
		{"DRSIM_EFFECT", "ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.name, tt.value)
			err := applyEnvOverrides(Default())
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.name, tt.value)
			}
			if !strings.Contains(err.Error(), tt.name) {
				t.Errorf("error should name the variable, got %q", err.Error())
			}
		})
	}
}

func TestEnvOverrides_LogLevel(t *testing.T) {
	t.Setenv("DRSIM_LOG_LEVEL", "debug")
	t.Setenv("DRSIM_TRACE_DIR", "/tmp/drsim-trace")

	config := Default()
	if err := applyEnvOverrides(config); err != nil {
		t.Fatalf("applyEnvOverrides failed: %v", err)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
	if config.Logging.TraceDir != "/tmp/drsim-trace" {
		t.Errorf("expected TraceDir '/tmp/drsim-trace', got '%s'", config.Logging.TraceDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *DrsimConfig)
		wantErr string
	}{
		{"zero replicates", func(c *DrsimConfig) { c.Simulation.Replicates = 0 }, "replicates"},
		{"zero sample size", func(c *DrsimConfig) { c.Simulation.SampleSize = 0 }, "sample_size"},
		{"negative workers", func(c *DrsimConfig) { c.Simulation.Workers = -1 }, "workers"},
		{"unknown scenario", func(c *DrsimConfig) { c.Simulation.Scenario = "sideways" }, "invalid scenario"},
		{"unknown covariate", func(c *DrsimConfig) {
			c.Simulation.OutcomeCovariates = []models.Covariate{"covariate_9"}
		}, "outcome_covariates"},
		{"duplicate covariate", func(c *DrsimConfig) {
			c.Simulation.PropensityCovariates = []models.Covariate{models.Covariate1, models.Covariate1}
		}, "propensity_covariates"},
		{"epsilon too large", func(c *DrsimConfig) { c.Estimation.DivisionEpsilon = 0.5 }, "epsilon"},
		{"negative noise", func(c *DrsimConfig) { c.Generator.NoiseScale = -1 }, "generator"},
		{"bad log level", func(c *DrsimConfig) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestToRunnerConfig(t *testing.T) {
	c := Default()
	c.Simulation.Scenario = constants.ScenarioPropensityMisspecified

	rc, err := c.ToRunnerConfig()
	if err != nil {
		t.Fatalf("ToRunnerConfig failed: %v", err)
	}
	if len(rc.PropensityCovariates) != 1 || rc.PropensityCovariates[0] != models.Covariate1 {
		t.Errorf("expected partial propensity covariates, got %v", rc.PropensityCovariates)
	}
	if len(rc.OutcomeCovariates) != 2 {
		t.Errorf("expected full outcome covariates, got %v", rc.OutcomeCovariates)
	}
	if err := rc.Validate(); err != nil {
		t.Errorf("runner config should validate: %v", err)
	}
}

func TestToRunnerConfig_ExplicitCovariatesOverrideScenario(t *testing.T) {
	c := Default()
	c.Simulation.Scenario = constants.ScenarioCorrect
	c.Simulation.OutcomeCovariates = []models.Covariate{models.Covariate2}

	rc, err := c.ToRunnerConfig()
	if err != nil {
		t.Fatalf("ToRunnerConfig failed: %v", err)
	}
	if len(rc.OutcomeCovariates) != 1 || rc.OutcomeCovariates[0] != models.Covariate2 {
		t.Errorf("expected explicit outcome covariates, got %v", rc.OutcomeCovariates)
	}
	if len(rc.PropensityCovariates) != 2 {
		t.Errorf("expected scenario propensity covariates, got %v", rc.PropensityCovariates)
	}
}

func TestLoadFromFile_LoggingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: trace
  trace_dir: /var/tmp/drsim
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Logging.Level != "trace" {
		t.Errorf("expected Logging.Level 'trace', got '%s'", config.Logging.Level)
	}
	if config.Logging.TraceDir != "/var/tmp/drsim" {
		t.Errorf("expected TraceDir '/var/tmp/drsim', got '%s'", config.Logging.TraceDir)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("simulation: [invalid"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
