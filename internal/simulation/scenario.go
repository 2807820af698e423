package simulation

import (
	"fmt"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/models"
)

// ScenarioSpec lists the covariates each fitted model sees under a scenario.
type ScenarioSpec struct {
	Name                 constants.Scenario `json:"name"`
	Description          string             `json:"description"`
	PropensityCovariates []models.Covariate `json:"propensity_covariates"`
	OutcomeCovariates    []models.Covariate `json:"outcome_covariates"`
}

// Scenarios returns the preset specifications in display order.
func Scenarios() []ScenarioSpec {
	specs := make([]ScenarioSpec, 0, len(constants.Scenarios))
	for _, s := range constants.Scenarios {
		spec, _ := LookupScenario(s)
		specs = append(specs, spec)
	}
	return specs
}

// LookupScenario returns the specification for a named scenario.
func LookupScenario(s constants.Scenario) (ScenarioSpec, error) {
	full := []models.Covariate{models.Covariate1, models.Covariate2}
	partial := []models.Covariate{models.Covariate1}

	switch s {
	case constants.ScenarioCorrect:
		return ScenarioSpec{
			Name:                 s,
			Description:          "both models see every confounder",
			PropensityCovariates: full,
			OutcomeCovariates:    full,
		}, nil
	case constants.ScenarioPropensityMisspecified:
		return ScenarioSpec{
			Name:                 s,
			Description:          "propensity model omits covariate_2; IPW is biased, DR is not",
			PropensityCovariates: partial,
			OutcomeCovariates:    full,
		}, nil
	case constants.ScenarioOutcomeMisspecified:
		return ScenarioSpec{
			Name:                 s,
			Description:          "outcome model omits covariate_2; regression is biased, DR is not",
			PropensityCovariates: full,
			OutcomeCovariates:    partial,
		}, nil
	case constants.ScenarioBothMisspecified:
		return ScenarioSpec{
			Name:                 s,
			Description:          "both models omit covariate_2; no estimator is protected",
			PropensityCovariates: partial,
			OutcomeCovariates:    partial,
		}, nil
	}
	return ScenarioSpec{}, fmt.Errorf("%w: unknown scenario %q", models.ErrInvalidInput, s)
}
