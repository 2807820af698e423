package constants

// Scenario names a covariate specification for the two fitted models.
type Scenario string

const (
	// ScenarioCorrect fits both models on every covariate.
	ScenarioCorrect Scenario = "correct"

	// ScenarioPropensityMisspecified omits covariate_2 from the propensity model.
	ScenarioPropensityMisspecified Scenario = "propensity_misspecified"

	// ScenarioOutcomeMisspecified omits covariate_2 from the outcome model.
	ScenarioOutcomeMisspecified Scenario = "outcome_misspecified"

	// ScenarioBothMisspecified omits covariate_2 from both models.
	ScenarioBothMisspecified Scenario = "both_misspecified"
)

// Scenarios lists every known scenario in display order.
var Scenarios = []Scenario{
	ScenarioCorrect,
	ScenarioPropensityMisspecified,
	ScenarioOutcomeMisspecified,
	ScenarioBothMisspecified,
}

// Valid returns true if the scenario is a recognized value.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioCorrect, ScenarioPropensityMisspecified, ScenarioOutcomeMisspecified, ScenarioBothMisspecified:
		return true
	}
	return false
}

// String returns the string representation of the scenario.
func (s Scenario) String() string {
	return string(s)
}
