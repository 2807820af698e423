// Package mcp provides an MCP (Model Context Protocol) server for drsim.
package mcp

import (
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/simulation"
)

// RunInput defines the input for the drsim_run tool.
// Zero values fall back to the server's configuration.
type RunInput struct {
	Scenario       string  `json:"scenario,omitempty" jsonschema:"Model specification scenario: correct, propensity_misspecified, outcome_misspecified or both_misspecified"`
	Replicates     int     `json:"replicates,omitempty" jsonschema:"Number of simulated datasets"`
	SampleSize     int     `json:"sample_size,omitempty" jsonschema:"Observations per dataset"`
	Seed           uint64  `json:"seed,omitempty" jsonschema:"Base seed; 0 uses the configured seed"`
	Effect         float64 `json:"effect,omitempty" jsonschema:"True treatment effect; 0 uses the configured effect"`
	Strong         bool    `json:"strong,omitempty" jsonschema:"Use the strong confounding generator preset"`
	DiscardFlagged bool    `json:"discard_flagged,omitempty" jsonschema:"Leave division-risk estimates out of the summaries"`
}

// RunOutput defines the output for the drsim_run tool.
type RunOutput struct {
	RunID      string               `json:"run_id" jsonschema:"Identifier of this run"`
	Scenario   string               `json:"scenario" jsonschema:"Scenario that was simulated"`
	Replicates int                  `json:"replicates" jsonschema:"Replicates attempted"`
	Failed     int                  `json:"failed" jsonschema:"Replicates whose model fit failed"`
	TrueEffect float64              `json:"true_effect" jsonschema:"Effect used by the data generator"`
	Summaries  []simulation.Summary `json:"summaries" jsonschema:"Per-estimator mean, spread, bias and RMSE"`
	Errors     []string             `json:"errors,omitempty" jsonschema:"First few replicate failure messages"`
	Message    string               `json:"message" jsonschema:"Human-readable summary"`
}

// EstimateInput defines the input for the drsim_estimate tool.
type EstimateInput struct {
	Scenario   string  `json:"scenario,omitempty" jsonschema:"Model specification scenario"`
	SampleSize int     `json:"sample_size,omitempty" jsonschema:"Observations in the dataset"`
	Seed       uint64  `json:"seed,omitempty" jsonschema:"Seed; 0 uses the configured seed"`
	Effect     float64 `json:"effect,omitempty" jsonschema:"True treatment effect; 0 uses the configured effect"`
	Strong     bool    `json:"strong,omitempty" jsonschema:"Use the strong confounding generator preset"`
}

// EstimateOutput defines the output for the drsim_estimate tool.
type EstimateOutput struct {
	Seed       uint64          `json:"seed" jsonschema:"Base seed the dataset was derived from"`
	TrueEffect float64         `json:"true_effect" jsonschema:"Effect used by the data generator"`
	Estimates  []EstimateEntry `json:"estimates" jsonschema:"One entry per estimator"`
}

// EstimateEntry is one estimator's value on a single dataset.
type EstimateEntry struct {
	Kind          models.EstimatorKind `json:"kind"`
	Value         float64              `json:"value"`
	Flagged       bool                 `json:"flagged"`
	FlaggedUnits  int                  `json:"flagged_units,omitempty"`
	MinPropensity float64              `json:"min_propensity,omitempty"`
}

// ScenariosInput defines the input for the drsim_scenarios tool.
type ScenariosInput struct{}

// ScenariosOutput defines the output for the drsim_scenarios tool.
type ScenariosOutput struct {
	Scenarios []simulation.ScenarioSpec `json:"scenarios" jsonschema:"Available scenarios"`
	Count     int                       `json:"count" jsonschema:"Number of scenarios"`
}
