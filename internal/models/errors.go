package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports a non-positive size, an empty or unknown
	// covariate set, or a dataset that cannot support the computation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConverged reports an iterative fit that did not settle.
	ErrNotConverged = errors.New("fit did not converge")

	// ErrRankDeficient reports a singular design matrix.
	ErrRankDeficient = errors.New("design matrix is rank deficient")
)

// ModelFitError is returned when a propensity or outcome model cannot be fit.
type ModelFitError struct {
	Model string // "propensity" or "outcome"
	Err   error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("fitting %s model: %v", e.Model, e.Err)
}

func (e *ModelFitError) Unwrap() error {
	return e.Err
}

// DivisionRiskWarning flags propensities outside [Epsilon, 1-Epsilon].
// It travels on the Estimate next to the value it qualifies.
type DivisionRiskWarning struct {
	Estimator     EstimatorKind `json:"estimator"`
	Units         []int         `json:"units"`
	MinPropensity float64       `json:"min_propensity"`
	MaxPropensity float64       `json:"max_propensity"`
	Epsilon       float64       `json:"epsilon"`
}

func (w *DivisionRiskWarning) Error() string {
	return fmt.Sprintf("%s: %d propensities outside [%g, %g] (min %g, max %g)",
		w.Estimator, len(w.Units), w.Epsilon, 1-w.Epsilon, w.MinPropensity, w.MaxPropensity)
}
