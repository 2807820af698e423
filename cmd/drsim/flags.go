package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/drsim/internal/config"
	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/generator"
)

// addDatasetFlags registers the flags shared by run and estimate.
func addDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().String("scenario", "", "Scenario: correct, propensity_misspecified, outcome_misspecified, both_misspecified")
	cmd.Flags().Int("sample-size", 0, "Observations per dataset")
	cmd.Flags().Uint64("seed", 0, "Base random seed")
	cmd.Flags().Bool("strong", false, "Use the strong confounding generator preset")
	cmd.Flags().Float64("effect", 0, "True treatment effect")
	cmd.Flags().Float64("epsilon", 0, "Propensity clamp bound, in (0, 0.5)")
}

// applyDatasetFlags overrides cfg with every dataset flag the user set.
func applyDatasetFlags(cmd *cobra.Command, cfg *config.DrsimConfig) {
	flags := cmd.Flags()

	if flags.Changed("scenario") {
		v, _ := flags.GetString("scenario")
		cfg.Simulation.Scenario = constants.Scenario(v)
	}
	if flags.Changed("sample-size") {
		cfg.Simulation.SampleSize, _ = flags.GetInt("sample-size")
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetUint64("seed")
	}
	if strong, _ := flags.GetBool("strong"); strong {
		effect, noise := cfg.Generator.Effect, cfg.Generator.NoiseScale
		cfg.Generator = generator.StrongConfoundingConfig()
		cfg.Generator.Effect, cfg.Generator.NoiseScale = effect, noise
	}
	if flags.Changed("effect") {
		cfg.Generator.Effect, _ = flags.GetFloat64("effect")
	}
	if flags.Changed("epsilon") {
		cfg.Estimation.DivisionEpsilon, _ = flags.GetFloat64("epsilon")
	}
}
