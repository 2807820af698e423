// Package constants provides named constants used throughout the drsim codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Data generation defaults. These follow the first of the two classic
// slide-deck variants; the second variant (0.2 confounding, outcome
// coefficients of 2) is reachable through configuration.
const (
	// DefaultConfounding is the weight of each covariate in the treatment index.
	DefaultConfounding = 0.25

	// DefaultOutcomeCoefficient is the weight of each covariate in the outcome.
	DefaultOutcomeCoefficient = 1.0

	// DefaultTrueEffect is the injected average treatment effect.
	DefaultTrueEffect = 10.0

	// DefaultNoiseScale is the standard deviation of the outcome noise.
	DefaultNoiseScale = 1.0
)

// Strong confounding preset. Used when the bias of a misspecified
// estimator must clearly exceed replicate-to-replicate noise.
const (
	StrongConfounding        = 1.0
	StrongOutcomeCoefficient = 3.0
)

// Replicate driver defaults.
const (
	// DefaultReplicates is the number of simulated datasets per run.
	DefaultReplicates = 200

	// DefaultSampleSize is the number of units in each dataset.
	DefaultSampleSize = 500

	// DefaultSeed seeds the per-replicate random streams.
	DefaultSeed = 20240612

	// DefaultWorkers is the number of replicates evaluated concurrently.
	DefaultWorkers = 4
)

// Estimation guards.
const (
	// DefaultDivisionEpsilon bounds propensities away from 0 and 1.
	// Any π < eps or π > 1-eps is flagged as a division risk.
	DefaultDivisionEpsilon = 1e-6

	// MaxDivisionEpsilon is the largest accepted epsilon (exclusive).
	MaxDivisionEpsilon = 0.5
)

// Regression solver parameters.
const (
	// MaxIRLSIterations caps Newton-Raphson steps for logistic fits.
	MaxIRLSIterations = 50

	// IRLSTolerance is the convergence threshold on the largest coefficient change.
	IRLSTolerance = 1e-8

	// MaxLogisticCoefficient marks divergence (quasi-complete separation).
	MaxLogisticCoefficient = 30.0

	// SingularPivotTolerance is the relative pivot size below which a
	// system of normal equations is treated as rank deficient.
	SingularPivotTolerance = 1e-10
)

// Estimate tolerance used by the demonstration properties: a mean within
// this distance of the true effect counts as unbiased.
const DefaultBiasTolerance = 1.0
