package models

// EstimatorKind tags an Estimate with the estimator that produced it.
type EstimatorKind string

const (
	EstimatorNaive        EstimatorKind = "naive"
	EstimatorOutcomeModel EstimatorKind = "outcome_model"
	EstimatorIPW          EstimatorKind = "ipw"
	EstimatorDoublyRobust EstimatorKind = "doubly_robust"
)

// EstimatorKinds lists every estimator in reporting order.
var EstimatorKinds = []EstimatorKind{
	EstimatorNaive,
	EstimatorOutcomeModel,
	EstimatorIPW,
	EstimatorDoublyRobust,
}

// Estimate is one estimator's average treatment effect for one dataset.
type Estimate struct {
	Kind  EstimatorKind `json:"kind"`
	Value float64       `json:"value"`

	// Risk is non-nil when some propensity fell outside the safe band.
	// Value is still finite in that case; callers decide whether to keep it.
	Risk *DivisionRiskWarning `json:"risk,omitempty"`
}

// Flagged reports whether the estimate carries a division-risk warning.
func (e Estimate) Flagged() bool {
	return e.Risk != nil
}

// PropensityModel maps covariates to P(treatment=1 | covariates).
type PropensityModel interface {
	Predict(x Covariates) float64
}

// OutcomeModel maps covariates and a treatment value to a predicted outcome.
type OutcomeModel interface {
	Predict(x Covariates, treatment int) float64
	TreatmentCoefficient() float64
}

// ReplicateResult holds the four estimates for one simulated dataset.
// Err is set, and Estimates left empty, when generation or fitting failed.
type ReplicateResult struct {
	ID        int                        `json:"id"`
	Seed      uint64                     `json:"seed"`
	Estimates map[EstimatorKind]Estimate `json:"estimates,omitempty"`
	Err       error                      `json:"-"`
	Error     string                     `json:"error,omitempty"`
}

// Failed reports whether the replicate aborted before estimation.
func (r ReplicateResult) Failed() bool {
	return r.Err != nil
}
