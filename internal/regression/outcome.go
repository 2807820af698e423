package regression

import (
	"fmt"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/vecmath"
)

// LinearModel is a fitted outcome model:
// E[Y | x, a] = β0 + δ·a + Σ βj·xj over the selected covariates.
type LinearModel struct {
	Covariates   []models.Covariate
	Coefficients []float64 // intercept, treatment, then one per covariate
}

var _ models.OutcomeModel = (*LinearModel)(nil)

// Predict returns the expected outcome for x under the given treatment.
func (m *LinearModel) Predict(x models.Covariates, treatment int) float64 {
	y := m.Coefficients[0] + m.Coefficients[1]*float64(treatment)
	for j, c := range m.Covariates {
		v, _ := x.Value(c)
		y += m.Coefficients[j+2] * v
	}
	return y
}

// TreatmentCoefficient returns the fitted δ, the regression estimate of
// the average treatment effect.
func (m *LinearModel) TreatmentCoefficient() float64 {
	return m.Coefficients[1]
}

// String summarizes the fitted coefficients.
func (m *LinearModel) String() string {
	names := []string{"intercept", "treatment"}
	for _, c := range m.Covariates {
		names = append(names, c.String())
	}
	return fmt.Sprintf("linear(%s)", formatCoefficients(names, m.Coefficients))
}

// FitOutcome fits ordinary least squares of outcome on treatment and the
// given covariates. A single-arm dataset, a constant covariate, or fewer
// rows than parameters yields a *models.ModelFitError wrapping
// ErrRankDeficient.
func FitOutcome(data models.Dataset, covs []models.Covariate) (*LinearModel, error) {
	if err := checkInputs(data, covs); err != nil {
		return nil, err
	}

	covs = append([]models.Covariate(nil), covs...)
	x := make([][]float64, len(data))
	y := make([]float64, len(data))
	for i, o := range data {
		x[i] = covariateRow([]float64{1, float64(o.Treatment)}, o.Covariates, covs)
		y[i] = o.Outcome
	}

	if len(data) < len(covs)+2 {
		return nil, fitError("outcome", fmt.Errorf("%w: %d rows for %d parameters", models.ErrRankDeficient, len(data), len(covs)+2))
	}

	xtx, xty := vecmath.NormalEquations(x, nil, y)
	beta, err := vecmath.Solve(xtx, xty, constants.SingularPivotTolerance)
	if err != nil {
		return nil, fitError("outcome", err)
	}
	return &LinearModel{Covariates: covs, Coefficients: beta}, nil
}
