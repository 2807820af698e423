package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/drsim/internal/models"
)

// AssertMeanWithin asserts that an estimator's mean lies within tol of target.
func AssertMeanWithin(t *testing.T, result *Result, kind models.EstimatorKind, target, tol float64) {
	t.Helper()
	s, ok := result.Summary(kind)
	if !ok || s.Count == 0 {
		t.Errorf("AssertMeanWithin: no estimates for %s", kind)
		return
	}
	if math.Abs(s.Mean-target) > tol {
		t.Errorf("AssertMeanWithin: %s mean %.4f not within %.4f of %.4f (sd %.4f, n=%d)", kind, s.Mean, tol, target, s.StdDev, s.Count)
	}
}

// AssertMeanBiased asserts that an estimator's mean is more than minBias
// away from target.
func AssertMeanBiased(t *testing.T, result *Result, kind models.EstimatorKind, target, minBias float64) {
	t.Helper()
	s, ok := result.Summary(kind)
	if !ok || s.Count == 0 {
		t.Errorf("AssertMeanBiased: no estimates for %s", kind)
		return
	}
	if math.Abs(s.Mean-target) <= minBias {
		t.Errorf("AssertMeanBiased: %s mean %.4f is within %.4f of %.4f; expected bias", kind, s.Mean, minBias, target)
	}
}

// AssertNoFailures asserts that every replicate produced estimates.
func AssertNoFailures(t *testing.T, result *Result) {
	t.Helper()
	for _, res := range result.Replicates {
		if res.Failed() {
			t.Errorf("AssertNoFailures: replicate %d failed: %v", res.ID, res.Err)
		}
	}
}

// AssertFinite asserts that no recorded estimate is NaN or infinite.
func AssertFinite(t *testing.T, result *Result) {
	t.Helper()
	for _, res := range result.Replicates {
		for kind, est := range res.Estimates {
			if math.IsNaN(est.Value) || math.IsInf(est.Value, 0) {
				t.Errorf("AssertFinite: replicate %d %s = %v", res.ID, kind, est.Value)
			}
		}
	}
}
