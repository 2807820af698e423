package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/drsim/internal/config"
	"github.com/nvandessel/drsim/internal/metrics"
	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/ratelimit"
)

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	auditDir := t.TempDir()

	base := config.Default()
	base.Simulation.Replicates = 20
	base.Simulation.SampleSize = 200

	server, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Base:     base,
		AuditDir: auditDir,
	})
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	return server, auditDir
}

func readAudit(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFileName))
	require.NoError(t, err)
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestNewServer_InvalidBase(t *testing.T) {
	base := config.Default()
	base.Simulation.Replicates = 0

	_, err := NewServer(&Config{Name: "drsim", Version: "test", Base: base})
	assert.Error(t, err)
}

func TestHandleRun_Defaults(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleRun(context.Background(), &sdk.CallToolRequest{}, RunInput{})
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "correct", out.Scenario)
	assert.Equal(t, 20, out.Replicates)
	assert.Zero(t, out.Failed)
	assert.Empty(t, out.Errors)
	require.Len(t, out.Summaries, len(models.EstimatorKinds))
	for i, kind := range models.EstimatorKinds {
		assert.Equal(t, kind, out.Summaries[i].Kind)
		assert.Equal(t, 20, out.Summaries[i].Count)
	}
	assert.Contains(t, out.Message, "doubly robust mean")
}

func TestHandleRun_StrongPropensityMisspecified(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleRun(context.Background(), &sdk.CallToolRequest{}, RunInput{
		Scenario:   "propensity_misspecified",
		Replicates: 100,
		SampleSize: 500,
		Strong:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "propensity_misspecified", out.Scenario)
	assert.Equal(t, 10.0, out.TrueEffect)

	for _, s := range out.Summaries {
		switch s.Kind {
		case models.EstimatorIPW:
			assert.Greater(t, s.Bias*s.Bias, 1.0, "IPW should be biased when the propensity model omits a confounder")
		case models.EstimatorDoublyRobust:
			assert.InDelta(t, 10.0, s.Mean, 1.0)
		}
	}
}

func TestHandleRun_EffectOverride(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleRun(context.Background(), &sdk.CallToolRequest{}, RunInput{Effect: 2.5})
	require.NoError(t, err)
	assert.Equal(t, 2.5, out.TrueEffect)
}

func TestHandleRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args RunInput
	}{
		{"unknown scenario", RunInput{Scenario: "sideways"}},
		{"too many replicates", RunInput{Replicates: maxReplicates + 1}},
		{"sample too large", RunInput{SampleSize: maxSampleSize + 1}},
		{"negative replicates", RunInput{Replicates: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := setupTestServer(t)
			_, _, err := server.handleRun(context.Background(), &sdk.CallToolRequest{}, tt.args)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestHandleRun_Cancelled(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := server.handleRun(ctx, &sdk.CallToolRequest{}, RunInput{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleRun_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	args := RunInput{Replicates: 2, SampleSize: 50}

	for i := 0; i < 2; i++ {
		_, _, err := server.handleRun(ctx, &sdk.CallToolRequest{}, args)
		require.NoError(t, err)
	}

	_, _, err := server.handleRun(ctx, &sdk.CallToolRequest{}, args)
	var limitErr *ratelimit.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, ratelimit.ToolRun, limitErr.Tool)
}

func TestHandleEstimate(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, first, err := server.handleEstimate(ctx, &sdk.CallToolRequest{}, EstimateInput{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), first.Seed)
	require.Len(t, first.Estimates, len(models.EstimatorKinds))
	for i, kind := range models.EstimatorKinds {
		assert.Equal(t, kind, first.Estimates[i].Kind)
		assert.False(t, first.Estimates[i].Flagged)
	}

	_, second, err := server.handleEstimate(ctx, &sdk.CallToolRequest{}, EstimateInput{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, first.Estimates, second.Estimates, "same seed should reproduce the same dataset")
}

func TestHandleEstimate_FitFailure(t *testing.T) {
	server, _ := setupTestServer(t)

	// Two observations cannot support an outcome model with four parameters.
	_, _, err := server.handleEstimate(context.Background(), &sdk.CallToolRequest{}, EstimateInput{SampleSize: 2})
	require.Error(t, err)

	var fitErr *models.ModelFitError
	assert.ErrorAs(t, err, &fitErr)
}

func TestHandleScenarios(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleScenarios(context.Background(), &sdk.CallToolRequest{}, ScenariosInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Count)
	require.Len(t, out.Scenarios, 4)
	assert.Equal(t, "correct", string(out.Scenarios[0].Name))
}

func TestScenariosResource(t *testing.T) {
	server, _ := setupTestServer(t)

	res, err := server.handleScenariosResource(context.Background(), &sdk.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	text := res.Contents[0].Text
	for _, name := range []string{"correct", "propensity_misspecified", "outcome_misspecified", "both_misspecified"} {
		assert.Contains(t, text, "**"+name+"**")
	}
	assert.Contains(t, text, "covariate_1, covariate_2")
}

func TestAuditLog(t *testing.T) {
	server, dir := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleRun(ctx, &sdk.CallToolRequest{}, RunInput{Replicates: 3, Seed: 5})
	require.NoError(t, err)
	_, _, err = server.handleRun(ctx, &sdk.CallToolRequest{}, RunInput{Scenario: "sideways"})
	require.Error(t, err)
	require.NoError(t, server.Close())

	entries := readAudit(t, dir)
	require.Len(t, entries, 2)

	assert.Equal(t, ratelimit.ToolRun, entries[0].Tool)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, out.RunID, entries[0].RunID)
	assert.Equal(t, map[string]string{"replicates": "3", "seed": "5"}, entries[0].Params)

	assert.Equal(t, "error", entries[1].Status)
	assert.Contains(t, entries[1].Error, "sideways")
	assert.Empty(t, entries[1].RunID)
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var a *AuditLogger
	a.Log(AuditEntry{Tool: "x"})
	assert.NoError(t, a.Close())
}

func TestAuditParams(t *testing.T) {
	got := auditParams(map[string]any{
		"scenario": "", "replicates": 0, "seed": uint64(0), "effect": 0.0, "strong": false,
	})
	assert.Nil(t, got)

	got = auditParams(map[string]any{"scenario": "correct", "strong": true, "effect": 1.5})
	assert.Equal(t, map[string]string{"scenario": "correct", "strong": "true", "effect": "1.5"}, got)
}

func TestHandleRun_RecordsMetrics(t *testing.T) {
	provider, reader := metrics.NewManualProvider()
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	rec, err := metrics.NewRecorder(provider)
	require.NoError(t, err)

	base := config.Default()
	base.Simulation.SampleSize = 100
	server, err := NewServer(&Config{Name: "drsim", Version: "test", Base: base, Recorder: rec})
	require.NoError(t, err)
	defer server.Close()

	_, _, err = server.handleRun(context.Background(), &sdk.CallToolRequest{}, RunInput{Replicates: 6})
	require.NoError(t, err)

	points, err := metrics.Collect(context.Background(), reader)
	require.NoError(t, err)

	var ok int64
	for _, p := range points {
		if p.Name == metrics.ReplicatesTotal && p.Attributes == "status=ok" {
			ok = p.Count
		}
	}
	assert.Equal(t, int64(6), ok)
}
