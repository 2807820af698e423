package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/drsim/internal/config"
	"github.com/nvandessel/drsim/internal/constants"
	"github.com/nvandessel/drsim/internal/generator"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/ratelimit"
	"github.com/nvandessel/drsim/internal/simulation"
)

// Upper bounds on tool-requested work.
const (
	maxReplicates   = 5000
	maxSampleSize   = 100000
	maxErrorsReport = 5
)

const scenariosURI = "drsim://scenarios"

// registerTools registers all drsim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRun,
		Description: "Simulate many confounded datasets and compare naive, outcome-model, IPW and doubly robust estimates of the treatment effect",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolEstimate,
		Description: "Draw one dataset and report every estimator's value on it",
	}, s.handleEstimate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolScenarios,
		Description: "List the model specification scenarios and the covariates each model sees",
	}, s.handleScenarios)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         scenariosURI,
		Name:        "drsim-scenarios",
		Description: "Model specification scenarios available to drsim_run.",
		MIMEType:    "text/markdown",
	}, s.handleScenariosResource)
}

func (s *Server) handleScenariosResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# drsim scenarios\n\n")
	for _, spec := range simulation.Scenarios() {
		fmt.Fprintf(&sb, "- **%s**: %s (propensity: %s; outcome: %s)\n",
			spec.Name, spec.Description,
			joinCovariates(spec.PropensityCovariates), joinCovariates(spec.OutcomeCovariates))
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      scenariosURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// overrides carries tool inputs layered over the base configuration.
type overrides struct {
	scenario       string
	replicates     int
	sampleSize     int
	seed           uint64
	effect         float64
	strong         bool
	discardFlagged bool
}

// configFor copies the base config and applies o. The result is validated
// and bounded by maxReplicates and maxSampleSize.
func (s *Server) configFor(o overrides) (*config.DrsimConfig, error) {
	cfg := s.base

	if o.scenario != "" {
		cfg.Simulation.Scenario = constants.Scenario(o.scenario)
	}
	if o.replicates != 0 {
		cfg.Simulation.Replicates = o.replicates
	}
	if o.sampleSize != 0 {
		cfg.Simulation.SampleSize = o.sampleSize
	}
	if o.seed != 0 {
		cfg.Simulation.Seed = o.seed
	}
	if o.strong {
		effect, noise := cfg.Generator.Effect, cfg.Generator.NoiseScale
		cfg.Generator = generator.StrongConfoundingConfig()
		cfg.Generator.Effect, cfg.Generator.NoiseScale = effect, noise
	}
	if o.effect != 0 {
		cfg.Generator.Effect = o.effect
	}
	if o.discardFlagged {
		cfg.Estimation.DiscardFlagged = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if cfg.Simulation.Replicates > maxReplicates {
		return nil, fmt.Errorf("%w: replicates must be at most %d, got %d", models.ErrInvalidInput, maxReplicates, cfg.Simulation.Replicates)
	}
	if cfg.Simulation.SampleSize > maxSampleSize {
		return nil, fmt.Errorf("%w: sample_size must be at most %d, got %d", models.ErrInvalidInput, maxSampleSize, cfg.Simulation.SampleSize)
	}
	return &cfg, nil
}

// handleRun implements the drsim_run tool.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool(ratelimit.ToolRun, start, retErr, runID, auditParams(map[string]any{
			"scenario": args.Scenario, "replicates": args.Replicates, "sample_size": args.SampleSize,
			"seed": args.Seed, "effect": args.Effect, "strong": args.Strong, "discard_flagged": args.DiscardFlagged,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRun); err != nil {
		return nil, RunOutput{}, err
	}

	cfg, err := s.configFor(overrides{
		scenario:       args.Scenario,
		replicates:     args.Replicates,
		sampleSize:     args.SampleSize,
		seed:           args.Seed,
		effect:         args.Effect,
		strong:         args.Strong,
		discardFlagged: args.DiscardFlagged,
	})
	if err != nil {
		return nil, RunOutput{}, err
	}

	res, err := s.run(ctx, cfg)
	if err != nil {
		return nil, RunOutput{}, err
	}
	runID = res.RunID

	out := RunOutput{
		RunID:      res.RunID,
		Scenario:   string(cfg.Simulation.Scenario),
		Replicates: len(res.Replicates),
		Failed:     res.Failed,
		TrueEffect: cfg.Generator.Effect,
		Summaries:  res.Summaries,
	}
	for _, rep := range res.Replicates {
		if rep.Failed() && len(out.Errors) < maxErrorsReport {
			out.Errors = append(out.Errors, rep.Error)
		}
	}
	out.Message = runMessage(res, cfg.Generator.Effect)

	return nil, out, nil
}

// handleEstimate implements the drsim_estimate tool.
func (s *Server) handleEstimate(ctx context.Context, req *sdk.CallToolRequest, args EstimateInput) (_ *sdk.CallToolResult, _ EstimateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolEstimate, start, retErr, "", auditParams(map[string]any{
			"scenario": args.Scenario, "sample_size": args.SampleSize,
			"seed": args.Seed, "effect": args.Effect, "strong": args.Strong,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolEstimate); err != nil {
		return nil, EstimateOutput{}, err
	}

	cfg, err := s.configFor(overrides{
		scenario:   args.Scenario,
		replicates: 1,
		sampleSize: args.SampleSize,
		seed:       args.Seed,
		effect:     args.Effect,
		strong:     args.Strong,
	})
	if err != nil {
		return nil, EstimateOutput{}, err
	}

	res, err := s.run(ctx, cfg)
	if err != nil {
		return nil, EstimateOutput{}, err
	}
	rep := res.Replicates[0]
	if rep.Failed() {
		return nil, EstimateOutput{}, rep.Err
	}

	return nil, EstimateOutput{
		Seed:       cfg.Simulation.Seed,
		TrueEffect: cfg.Generator.Effect,
		Estimates:  estimateEntries(rep.Estimates),
	}, nil
}

// handleScenarios implements the drsim_scenarios tool.
func (s *Server) handleScenarios(ctx context.Context, req *sdk.CallToolRequest, args ScenariosInput) (_ *sdk.CallToolResult, _ ScenariosOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolScenarios, start, retErr, "", nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolScenarios); err != nil {
		return nil, ScenariosOutput{}, err
	}

	specs := simulation.Scenarios()
	return nil, ScenariosOutput{Scenarios: specs, Count: len(specs)}, nil
}

// run executes cfg with the server's logger and recorder. Replicates run
// serially within a call.
func (s *Server) run(ctx context.Context, cfg *config.DrsimConfig) (*simulation.Result, error) {
	rc, err := cfg.ToRunnerConfig()
	if err != nil {
		return nil, err
	}
	rc.Workers = 1

	runner := simulation.NewRunner(rc,
		simulation.WithLogger(s.logger),
		simulation.WithRecorder(s.recorder))
	return runner.Run(ctx)
}

func estimateEntries(estimates map[models.EstimatorKind]models.Estimate) []EstimateEntry {
	entries := make([]EstimateEntry, 0, len(estimates))
	for _, kind := range models.EstimatorKinds {
		est, ok := estimates[kind]
		if !ok {
			continue
		}
		entry := EstimateEntry{Kind: kind, Value: est.Value, Flagged: est.Flagged()}
		if est.Risk != nil {
			entry.FlaggedUnits = len(est.Risk.Units)
			entry.MinPropensity = est.Risk.MinPropensity
		}
		entries = append(entries, entry)
	}
	return entries
}

func runMessage(res *simulation.Result, trueEffect float64) string {
	dr, ok := res.Summary(models.EstimatorDoublyRobust)
	if !ok || dr.Count == 0 {
		return fmt.Sprintf("%d replicates, %d failed; no doubly robust estimates", len(res.Replicates), res.Failed)
	}
	return fmt.Sprintf("%d replicates, %d failed; doubly robust mean %.3f vs true effect %.3f (bias %+.3f)",
		len(res.Replicates), res.Failed, dr.Mean, trueEffect, dr.Bias)
}

func joinCovariates(covs []models.Covariate) string {
	names := make([]string, len(covs))
	for i, c := range covs {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
