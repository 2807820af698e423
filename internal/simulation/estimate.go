package simulation

import (
	"fmt"

	"github.com/nvandessel/drsim/internal/estimator"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/regression"
)

// EstimateAll fits both nuisance models on data and evaluates every
// estimator. Fit failures are returned as *models.ModelFitError; division
// risk is reported on the individual estimates.
func EstimateAll(data models.Dataset, propCovs, outCovs []models.Covariate, eps float64) (map[models.EstimatorKind]models.Estimate, error) {
	ps, err := regression.FitPropensity(data, propCovs)
	if err != nil {
		return nil, err
	}
	om, err := regression.FitOutcome(data, outCovs)
	if err != nil {
		return nil, err
	}

	out := make(map[models.EstimatorKind]models.Estimate, len(models.EstimatorKinds))

	naive, err := estimator.Naive(data)
	if err != nil {
		return nil, fmt.Errorf("naive estimate: %w", err)
	}
	out[naive.Kind] = naive

	reg, err := estimator.OutcomeModel(om)
	if err != nil {
		return nil, fmt.Errorf("outcome model estimate: %w", err)
	}
	out[reg.Kind] = reg

	ipw, err := estimator.IPW(data, ps, eps)
	if err != nil {
		return nil, fmt.Errorf("ipw estimate: %w", err)
	}
	out[ipw.Kind] = ipw

	dr, err := estimator.DoublyRobust(data, ps, om, eps)
	if err != nil {
		return nil, fmt.Errorf("doubly robust estimate: %w", err)
	}
	out[dr.Kind] = dr

	return out, nil
}
