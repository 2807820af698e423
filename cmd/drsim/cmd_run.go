package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nvandessel/drsim/internal/logging"
	"github.com/nvandessel/drsim/internal/metrics"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/simulation"
)

// runOutput is the JSON shape of the run command.
type runOutput struct {
	RunID      string                   `json:"run_id"`
	Config     simulation.Config        `json:"config"`
	Summaries  []simulation.Summary     `json:"summaries"`
	Failed     int                      `json:"failed"`
	ElapsedMs  int64                    `json:"elapsed_ms"`
	Errors     []string                 `json:"errors,omitempty"`
	Metrics    []metrics.Point          `json:"metrics,omitempty"`
	Replicates []models.ReplicateResult `json:"replicates,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a replicate simulation and summarize every estimator",
		Long: `Simulate many datasets, fit the propensity and outcome models on each,
and summarize the naive, outcome-model, IPW and doubly robust estimates.

Examples:
  drsim run                                          # correct specification
  drsim run --scenario propensity_misspecified --strong
  drsim run --replicates 1000 --workers 8 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			withMetrics, _ := cmd.Flags().GetBool("metrics")
			withReplicates, _ := cmd.Flags().GetBool("include-replicates")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyDatasetFlags(cmd, cfg)
			if cmd.Flags().Changed("replicates") {
				cfg.Simulation.Replicates, _ = cmd.Flags().GetInt("replicates")
			}
			if cmd.Flags().Changed("workers") {
				cfg.Simulation.Workers, _ = cmd.Flags().GetInt("workers")
			}
			if cmd.Flags().Changed("trace-dir") {
				cfg.Logging.TraceDir, _ = cmd.Flags().GetString("trace-dir")
			}
			if discard, _ := cmd.Flags().GetBool("discard-flagged"); discard {
				cfg.Estimation.DiscardFlagged = true
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			rc, err := cfg.ToRunnerConfig()
			if err != nil {
				return err
			}

			ctx, cancel := withSignals(cmd.Context())
			defer cancel()

			logger := newLogger(cmd, cfg)
			trace := logging.NewReplicateTrace(cfg.Logging.TraceDir, cfg.Logging.Level)
			defer trace.Close()

			opts := []simulation.Option{
				simulation.WithLogger(logger),
				simulation.WithTrace(trace),
			}

			var reader sdkmetric.Reader
			if withMetrics {
				provider, manual := metrics.NewManualProvider()
				defer provider.Shutdown(ctx)
				rec, err := metrics.NewRecorder(provider)
				if err != nil {
					return err
				}
				opts = append(opts, simulation.WithRecorder(rec))
				reader = manual
			}

			res, err := simulation.NewRunner(rc, opts...).Run(ctx)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			out := runOutput{
				RunID:     res.RunID,
				Config:    res.Config,
				Summaries: res.Summaries,
				Failed:    res.Failed,
				ElapsedMs: res.Elapsed.Milliseconds(),
			}
			for _, rep := range res.Replicates {
				if rep.Failed() {
					out.Errors = append(out.Errors, rep.Error)
				}
			}
			if withReplicates {
				out.Replicates = res.Replicates
			}
			if reader != nil {
				points, err := metrics.Collect(ctx, reader)
				if err != nil {
					return fmt.Errorf("collecting metrics: %w", err)
				}
				out.Metrics = points
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printRun(cmd.OutOrStdout(), cfg.Simulation.Scenario.String(), rc.Generator.Effect, out, res.Elapsed)
			return nil
		},
	}

	addDatasetFlags(cmd)
	cmd.Flags().Int("replicates", 0, "Number of simulated datasets")
	cmd.Flags().Int("workers", 0, "Replicates evaluated concurrently")
	cmd.Flags().String("trace-dir", "", "Write a JSONL replicate trace here (needs --log-level debug or trace)")
	cmd.Flags().Bool("discard-flagged", false, "Leave division-risk estimates out of the summaries")
	cmd.Flags().Bool("metrics", false, "Collect OpenTelemetry metrics and report them")
	cmd.Flags().Bool("include-replicates", false, "Include every replicate's estimates in JSON output")

	return cmd
}

func printRun(w io.Writer, scenario string, trueEffect float64, out runOutput, elapsed time.Duration) {
	fmt.Fprintf(w, "Run %s\n", out.RunID)
	fmt.Fprintf(w, "  scenario: %s  replicates: %d  sample size: %d  true effect: %g\n",
		scenario, out.Config.Replicates, out.Config.SampleSize, trueEffect)
	fmt.Fprintf(w, "  failed: %d  elapsed: %s\n\n", out.Failed, elapsed.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ESTIMATOR\tN\tMEAN\tSD\tBIAS\tRMSE\tFLAGGED")
	fmt.Fprintln(tw, "---------\t-\t----\t--\t----\t----\t-------")
	for _, s := range out.Summaries {
		if s.Count == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t-\t-\t-\t%d\n", s.Kind, s.Flagged)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%+.4f\t%.4f\t%d\n",
			s.Kind, s.Count, s.Mean, s.StdDev, s.Bias, s.RMSE, s.Flagged)
	}
	tw.Flush()

	if len(out.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for i, e := range out.Errors {
			if i == 5 {
				fmt.Fprintf(w, "  ... and %d more\n", len(out.Errors)-i)
				break
			}
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if len(out.Metrics) > 0 {
		fmt.Fprintln(w, "\nMetrics:")
		for _, p := range out.Metrics {
			if p.Name == metrics.EstimateValue {
				fmt.Fprintf(w, "  %s{%s} count=%d sum=%.4f\n", p.Name, p.Attributes, p.Count, p.Sum)
				continue
			}
			fmt.Fprintf(w, "  %s{%s} %d\n", p.Name, p.Attributes, p.Count)
		}
	}
}
