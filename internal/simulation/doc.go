// Package simulation drives repeated doubly robust experiments.
//
// A Runner generates R independent datasets, fits the propensity and
// outcome models on each, evaluates the full estimator bank, and
// summarizes every estimator's sampling distribution against the true
// effect. Replicates own their data and models exclusively, so they run
// concurrently without locking; each replicate draws from its own seeded
// stream, which makes a run's results independent of the worker count.
//
// A replicate whose generation or fitting fails is recorded with its
// error and the run continues.
//
// Usage:
//
//	cfg := simulation.DefaultConfig()
//	cfg, _ = cfg.WithScenario(constants.ScenarioPropensityMisspecified)
//	result, err := simulation.NewRunner(cfg).Run(ctx)
//	if err != nil {
//	    return err
//	}
//	dr, _ := result.Summary(models.EstimatorDoublyRobust)
//	fmt.Printf("DR bias %.3f\n", dr.Bias)
package simulation
