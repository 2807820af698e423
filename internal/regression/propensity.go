package regression

import (
	"fmt"
	"math"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/vecmath"
)

// LogisticModel is a fitted propensity model:
// P(A=1 | x) = logistic(β0 + Σ βj·xj) over the selected covariates.
type LogisticModel struct {
	Covariates   []models.Covariate
	Coefficients []float64 // intercept first, then one per covariate
	Iterations   int
}

var _ models.PropensityModel = (*LogisticModel)(nil)

// Predict returns the estimated probability of treatment for x.
func (m *LogisticModel) Predict(x models.Covariates) float64 {
	return vecmath.Logistic(m.linearPredictor(x))
}

func (m *LogisticModel) linearPredictor(x models.Covariates) float64 {
	eta := m.Coefficients[0]
	for j, c := range m.Covariates {
		v, _ := x.Value(c)
		eta += m.Coefficients[j+1] * v
	}
	return eta
}

// String summarizes the fitted coefficients.
func (m *LogisticModel) String() string {
	names := []string{"intercept"}
	for _, c := range m.Covariates {
		names = append(names, c.String())
	}
	return fmt.Sprintf("logistic(%s)", formatCoefficients(names, m.Coefficients))
}

// FitPropensity fits a logistic regression of treatment on the given
// covariates by iteratively reweighted least squares.
//
// A constant covariate or too few rows yields ErrRankDeficient; a
// perfectly separated or single-arm dataset yields ErrNotConverged. Both
// arrive wrapped in a *models.ModelFitError.
func FitPropensity(data models.Dataset, covs []models.Covariate) (*LogisticModel, error) {
	if err := checkInputs(data, covs); err != nil {
		return nil, err
	}

	treated := data.TreatedCount()
	if treated == 0 || treated == len(data) {
		return nil, fitError("propensity", fmt.Errorf("%w: every unit has treatment %d", models.ErrNotConverged, data[0].Treatment))
	}

	covs = append([]models.Covariate(nil), covs...)
	x := make([][]float64, len(data))
	for i, o := range data {
		x[i] = covariateRow([]float64{1}, o.Covariates, covs)
	}

	p := len(covs) + 1
	m := &LogisticModel{Covariates: covs, Coefficients: make([]float64, p)}
	w := make([]float64, len(data))
	resid := make([]float64, len(data))

	for iter := 1; iter <= constants.MaxIRLSIterations; iter++ {
		m.Iterations = iter
		for i, o := range data {
			pi := vecmath.Logistic(vecmath.Dot(x[i], m.Coefficients))
			w[i] = pi * (1 - pi)
			resid[i] = float64(o.Treatment) - pi
		}

		// Newton step: (XᵀWX) δ = Xᵀ(y − p).
		hessian, _ := vecmath.NormalEquations(x, w, nil)
		gradient := make([]float64, p)
		for i, row := range x {
			for j, v := range row {
				gradient[j] += v * resid[i]
			}
		}
		step, err := vecmath.Solve(hessian, gradient, constants.SingularPivotTolerance)
		if err != nil {
			return nil, fitError("propensity", err)
		}

		var maxStep float64
		for j := range step {
			m.Coefficients[j] += step[j]
			maxStep = math.Max(maxStep, math.Abs(step[j]))
			if math.Abs(m.Coefficients[j]) > constants.MaxLogisticCoefficient || math.IsNaN(m.Coefficients[j]) {
				return nil, fitError("propensity", fmt.Errorf("%w: coefficient diverged after %d iterations (separated data)", models.ErrNotConverged, iter))
			}
		}
		if maxStep < constants.IRLSTolerance {
			return m, nil
		}
	}

	return nil, fitError("propensity", fmt.Errorf("%w: no convergence in %d iterations", models.ErrNotConverged, constants.MaxIRLSIterations))
}

// ConstantPropensity assigns the same treatment probability to every unit,
// as in a randomized experiment with a fixed assignment rate.
type ConstantPropensity float64

var _ models.PropensityModel = ConstantPropensity(0)

// Predict returns the constant probability.
func (c ConstantPropensity) Predict(models.Covariates) float64 {
	return float64(c)
}
