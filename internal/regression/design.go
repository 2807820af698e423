// Package regression fits the two nuisance models of a doubly robust
// analysis: a logistic propensity model and a linear outcome model.
//
// Both fitters take the covariate subset explicitly so a caller can omit a
// confounder on purpose and observe how each estimator reacts.
package regression

import (
	"errors"
	"fmt"

	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/vecmath"
)

// covariateRow appends the selected covariate values of x to row.
func covariateRow(row []float64, x models.Covariates, covs []models.Covariate) []float64 {
	for _, c := range covs {
		// Names were validated before fitting, so the lookup cannot fail.
		v, _ := x.Value(c)
		row = append(row, v)
	}
	return row
}

// checkInputs validates the dataset and covariate subset shared by both fitters.
func checkInputs(data models.Dataset, covs []models.Covariate) error {
	if err := data.Validate(); err != nil {
		return err
	}
	return models.ValidateCovariates(covs)
}

// fitError wraps a solver failure in a ModelFitError.
func fitError(model string, err error) error {
	if errors.Is(err, vecmath.ErrSingular) {
		err = models.ErrRankDeficient
	}
	return &models.ModelFitError{Model: model, Err: err}
}

// formatCoefficients renders names and values for diagnostics.
func formatCoefficients(names []string, beta []float64) string {
	s := ""
	for i, b := range beta {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%.4f", names[i], b)
	}
	return s
}
