package simulation

import (
	"math"

	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/vecmath"
)

// Summary describes one estimator's distribution across replicates.
type Summary struct {
	Kind    models.EstimatorKind `json:"kind"`
	Count   int                  `json:"count"`
	Mean    float64              `json:"mean"`
	StdDev  float64              `json:"std_dev"`
	Min     float64              `json:"min"`
	Max     float64              `json:"max"`
	Bias    float64              `json:"bias"`
	RMSE    float64              `json:"rmse"`
	Flagged int                  `json:"flagged"`
}

// Summarize aggregates each estimator over the successful replicates.
// Bias and RMSE are measured against trueEffect. When discardFlagged is
// set, estimates carrying a division-risk warning are counted in Flagged
// but left out of the statistics. An estimator with no usable values
// gets a zero-valued summary with Count 0.
func Summarize(results []models.ReplicateResult, trueEffect float64, discardFlagged bool) []Summary {
	summaries := make([]Summary, 0, len(models.EstimatorKinds))
	for _, kind := range models.EstimatorKinds {
		s := Summary{Kind: kind}
		var values []float64
		for _, res := range results {
			est, ok := res.Estimates[kind]
			if res.Failed() || !ok {
				continue
			}
			if est.Flagged() {
				s.Flagged++
				if discardFlagged {
					continue
				}
			}
			values = append(values, est.Value)
		}

		s.Count = len(values)
		if s.Count > 0 {
			s.Mean = vecmath.Mean(values)
			s.StdDev = vecmath.StdDev(values)
			s.Min, s.Max = vecmath.MinMax(values)
			s.Bias = s.Mean - trueEffect

			var sq float64
			for _, v := range values {
				d := v - trueEffect
				sq += d * d
			}
			s.RMSE = math.Sqrt(sq / float64(s.Count))
		}
		summaries = append(summaries, s)
	}
	return summaries
}
