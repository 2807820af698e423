// Package estimator implements the average treatment effect estimators:
// naive difference in means, outcome regression, inverse probability
// weighting (IPW) and augmented IPW, the doubly robust estimator.
//
// IPW is consistent when the propensity model is correct, the outcome
// regression when the outcome model is correct, and the doubly robust
// estimator when either one is. Propensities outside [eps, 1-eps] are
// clamped into that band and reported on the Estimate as a
// *models.DivisionRiskWarning; no estimator returns an unflagged NaN or Inf.
package estimator

import (
	"fmt"
	"math"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/models"
)

// Naive returns mean(Y | A=1) − mean(Y | A=0).
func Naive(data models.Dataset) (models.Estimate, error) {
	if err := data.Validate(); err != nil {
		return models.Estimate{}, err
	}

	var sumT, sumC float64
	var nT, nC int
	for _, o := range data {
		if o.Treated() {
			sumT += o.Outcome
			nT++
		} else {
			sumC += o.Outcome
			nC++
		}
	}
	if nT == 0 || nC == 0 {
		return models.Estimate{}, fmt.Errorf("%w: naive estimate needs both arms (treated=%d, control=%d)", models.ErrInvalidInput, nT, nC)
	}

	return models.Estimate{
		Kind:  models.EstimatorNaive,
		Value: sumT/float64(nT) - sumC/float64(nC),
	}, nil
}

// OutcomeModel returns the fitted treatment coefficient of m.
func OutcomeModel(m models.OutcomeModel) (models.Estimate, error) {
	if m == nil {
		return models.Estimate{}, fmt.Errorf("%w: nil outcome model", models.ErrInvalidInput)
	}
	return models.Estimate{
		Kind:  models.EstimatorOutcomeModel,
		Value: m.TreatmentCoefficient(),
	}, nil
}

// IPW returns (1/n) Σ Y·A/π − (1/n) Σ Y·(1−A)/(1−π).
func IPW(data models.Dataset, ps models.PropensityModel, eps float64) (models.Estimate, error) {
	pi, risk, err := propensities(models.EstimatorIPW, data, ps, eps)
	if err != nil {
		return models.Estimate{}, err
	}

	var treated, control float64
	for i, o := range data {
		a := float64(o.Treatment)
		treated += o.Outcome * a / pi[i]
		control += o.Outcome * (1 - a) / (1 - pi[i])
	}
	n := float64(len(data))

	return models.Estimate{
		Kind:  models.EstimatorIPW,
		Value: treated/n - control/n,
		Risk:  risk,
	}, nil
}

// DoublyRobust returns the augmented IPW estimate
//
//	(1/n) Σ [Y·A − (A−π)·μ1] / π  −  (1/n) Σ [Y·(1−A) + (A−π)·μ0] / (1−π)
//
// where μa is the outcome model's prediction for the unit under treatment a.
// With a correct propensity model the augmentation terms have mean zero;
// with a correct outcome model they cancel the weighting error.
func DoublyRobust(data models.Dataset, ps models.PropensityModel, om models.OutcomeModel, eps float64) (models.Estimate, error) {
	if om == nil {
		return models.Estimate{}, fmt.Errorf("%w: nil outcome model", models.ErrInvalidInput)
	}
	pi, risk, err := propensities(models.EstimatorDoublyRobust, data, ps, eps)
	if err != nil {
		return models.Estimate{}, err
	}

	var treated, control float64
	for i, o := range data {
		a := float64(o.Treatment)
		mu1 := om.Predict(o.Covariates, 1)
		mu0 := om.Predict(o.Covariates, 0)
		treated += (o.Outcome*a - (a-pi[i])*mu1) / pi[i]
		control += (o.Outcome*(1-a) + (a-pi[i])*mu0) / (1 - pi[i])
	}
	n := float64(len(data))

	return models.Estimate{
		Kind:  models.EstimatorDoublyRobust,
		Value: treated/n - control/n,
		Risk:  risk,
	}, nil
}

// propensities evaluates ps on every unit and clamps the result into
// [eps, 1-eps]. Units that needed clamping are listed in the warning.
func propensities(kind models.EstimatorKind, data models.Dataset, ps models.PropensityModel, eps float64) ([]float64, *models.DivisionRiskWarning, error) {
	if err := data.Validate(); err != nil {
		return nil, nil, err
	}
	if ps == nil {
		return nil, nil, fmt.Errorf("%w: nil propensity model", models.ErrInvalidInput)
	}
	if err := ValidateEpsilon(eps); err != nil {
		return nil, nil, err
	}

	pi := make([]float64, len(data))
	var flagged []int
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, o := range data {
		p := ps.Predict(o.Covariates)
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, nil, fmt.Errorf("%w: propensity %v for unit %d is not a probability", models.ErrInvalidInput, p, i)
		}
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
		if p < eps || p > 1-eps {
			flagged = append(flagged, i)
			p = math.Min(math.Max(p, eps), 1-eps)
		}
		pi[i] = p
	}

	if len(flagged) == 0 {
		return pi, nil, nil
	}
	return pi, &models.DivisionRiskWarning{
		Estimator:     kind,
		Units:         flagged,
		MinPropensity: lo,
		MaxPropensity: hi,
		Epsilon:       eps,
	}, nil
}

// ValidateEpsilon checks that eps lies in (0, 0.5).
func ValidateEpsilon(eps float64) error {
	if !(eps > 0 && eps < constants.MaxDivisionEpsilon) {
		return fmt.Errorf("%w: division epsilon must be in (0, %g), got %v", models.ErrInvalidInput, constants.MaxDivisionEpsilon, eps)
	}
	return nil
}
