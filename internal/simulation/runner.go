package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/estimator"
	"github.com/nvandessel/drsim/internal/generator"
	"github.com/nvandessel/drsim/internal/logging"
	"github.com/nvandessel/drsim/internal/metrics"
	"github.com/nvandessel/drsim/internal/models"
)

// Config describes one replicate run.
type Config struct {
	Replicates int    `json:"replicates"`
	SampleSize int    `json:"sample_size"`
	Seed       uint64 `json:"seed"`
	Workers    int    `json:"workers"`

	Generator generator.Config `json:"generator"`

	// Covariate subsets handed to the two fitters. Omitting a confounder
	// reproduces the misspecification demonstrations.
	PropensityCovariates []models.Covariate `json:"propensity_covariates"`
	OutcomeCovariates    []models.Covariate `json:"outcome_covariates"`

	DivisionEpsilon float64 `json:"division_epsilon"`

	// DiscardFlagged drops division-risk estimates from the summaries.
	// They are always kept on the replicate results.
	DiscardFlagged bool `json:"discard_flagged"`
}

// DefaultConfig returns a correctly specified run with default sizes.
func DefaultConfig() Config {
	return Config{
		Replicates:           constants.DefaultReplicates,
		SampleSize:           constants.DefaultSampleSize,
		Seed:                 constants.DefaultSeed,
		Workers:              constants.DefaultWorkers,
		Generator:            generator.DefaultConfig(),
		PropensityCovariates: []models.Covariate{models.Covariate1, models.Covariate2},
		OutcomeCovariates:    []models.Covariate{models.Covariate1, models.Covariate2},
		DivisionEpsilon:      constants.DefaultDivisionEpsilon,
	}
}

// WithScenario returns a copy of c using the scenario's covariate subsets.
func (c Config) WithScenario(s constants.Scenario) (Config, error) {
	spec, err := LookupScenario(s)
	if err != nil {
		return c, err
	}
	c.PropensityCovariates = spec.PropensityCovariates
	c.OutcomeCovariates = spec.OutcomeCovariates
	return c, nil
}

// Validate checks sizes, covariate subsets, epsilon and generator settings.
func (c Config) Validate() error {
	if c.Replicates < 1 {
		return fmt.Errorf("%w: replicates must be at least 1, got %d", models.ErrInvalidInput, c.Replicates)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("%w: sample size must be at least 1, got %d", models.ErrInvalidInput, c.SampleSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", models.ErrInvalidInput, c.Workers)
	}
	if err := models.ValidateCovariates(c.PropensityCovariates); err != nil {
		return fmt.Errorf("propensity covariates: %w", err)
	}
	if err := models.ValidateCovariates(c.OutcomeCovariates); err != nil {
		return fmt.Errorf("outcome covariates: %w", err)
	}
	if err := estimator.ValidateEpsilon(c.DivisionEpsilon); err != nil {
		return err
	}
	return c.Generator.Validate()
}

// Result is the outcome of a run.
type Result struct {
	RunID      string                   `json:"run_id"`
	Config     Config                   `json:"config"`
	Replicates []models.ReplicateResult `json:"replicates"`
	Summaries  []Summary                `json:"summaries"`
	Failed     int                      `json:"failed"`
	Elapsed    time.Duration            `json:"elapsed"`
}

// Summary returns the summary for one estimator.
func (r *Result) Summary(kind models.EstimatorKind) (Summary, bool) {
	for _, s := range r.Summaries {
		if s.Kind == kind {
			return s, true
		}
	}
	return Summary{}, false
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithTrace sets the JSONL replicate trace.
func WithTrace(t *logging.ReplicateTrace) Option {
	return func(r *Runner) {
		r.trace = t
	}
}

// WithPerturb installs a hook that may replace a replicate's dataset
// after generation and before fitting. It runs on the replicate's own
// goroutine and receives only that replicate's data.
func WithPerturb(fn func(replicate int, data models.Dataset) models.Dataset) Option {
	return func(r *Runner) {
		r.perturb = fn
	}
}

// Runner executes replicate runs.
type Runner struct {
	cfg      Config
	logger   *slog.Logger
	recorder *metrics.Recorder
	trace    *logging.ReplicateTrace
	perturb  func(replicate int, data models.Dataset) models.Dataset
}

// NewRunner creates a runner for cfg. The config is validated by Run.
func NewRunner(cfg Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every replicate and summarizes the estimates. Replicate
// failures are recorded on the results; only invalid configuration or a
// cancelled context fails the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = 1
	}

	runID := uuid.NewString()
	start := time.Now()
	r.logger.Info("starting run",
		"run_id", runID,
		"replicates", cfg.Replicates,
		"sample_size", cfg.SampleSize,
		"workers", workers,
		"propensity_covariates", cfg.PropensityCovariates,
		"outcome_covariates", cfg.OutcomeCovariates)

	results := make([]models.ReplicateResult, cfg.Replicates)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for id := 0; id < cfg.Replicates; id++ {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res := r.runReplicate(id)
			results[id] = res

			r.recorder.RecordReplicate(gCtx, res)
			r.trace.Record(runID, res)
			if res.Failed() {
				r.logger.Debug("replicate failed", "run_id", runID, "replicate", id, "error", res.Err)
			} else {
				r.logger.Log(gCtx, logging.LevelTrace, "replicate done", "run_id", runID, "replicate", id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      runID,
		Config:     cfg,
		Replicates: results,
		Summaries:  Summarize(results, cfg.Generator.Effect, cfg.DiscardFlagged),
		Elapsed:    time.Since(start),
	}
	for _, res := range results {
		if res.Failed() {
			result.Failed++
		}
	}

	r.logger.Info("run complete",
		"run_id", runID,
		"failed", result.Failed,
		"elapsed", result.Elapsed)
	return result, nil
}

// runReplicate generates, fits and estimates one replicate.
func (r *Runner) runReplicate(id int) models.ReplicateResult {
	cfg := r.cfg
	seed := generator.ReplicateSeed(cfg.Seed, id)
	res := models.ReplicateResult{ID: id, Seed: seed}

	data, err := generator.Generate(cfg.SampleSize, cfg.Generator, generator.NewSource(seed))
	if err == nil && r.perturb != nil {
		data = r.perturb(id, data)
	}
	if err == nil {
		res.Estimates, err = EstimateAll(data, cfg.PropensityCovariates, cfg.OutcomeCovariates, cfg.DivisionEpsilon)
	}
	if err != nil {
		res.Err = fmt.Errorf("replicate %d: %w", id, err)
		res.Error = res.Err.Error()
		res.Estimates = nil
	}
	return res
}
