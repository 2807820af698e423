package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/drsim/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", true, false},
		{"trace passes everything", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Log(t.Context(), LevelTrace, "trace message")
			hasTrace := strings.Contains(buf.String(), "trace message")
			if hasTrace != tt.logAtTrace {
				t.Errorf("trace message visible = %v, want %v (buf: %q)", hasTrace, tt.logAtTrace, buf.String())
			}
			if hasTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(t.Context(), slog.LevelError) {
		t.Error("Discard logger should not enable any level")
	}
}

func TestNewReplicateTrace_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	rt := NewReplicateTrace(dir, "info")
	if rt != nil {
		t.Error("expected nil ReplicateTrace at info level")
	}

	// Nil trace should still be safe to use
	rt.Record("run", models.ReplicateResult{ID: 1})

	if _, err := os.Stat(filepath.Join(dir, TraceFileName)); err == nil {
		t.Error("replicates.jsonl should not exist at info level")
	}
}

func TestReplicateTrace_Record(t *testing.T) {
	dir := t.TempDir()
	rt := NewReplicateTrace(dir, "debug")
	if rt == nil {
		t.Fatal("expected non-nil ReplicateTrace at debug level")
	}
	defer rt.Close()

	rt.Record("run-1", models.ReplicateResult{
		ID:   3,
		Seed: 42,
		Estimates: map[models.EstimatorKind]models.Estimate{
			models.EstimatorNaive: {Kind: models.EstimatorNaive, Value: 12.5},
			models.EstimatorIPW: {
				Kind:  models.EstimatorIPW,
				Value: 9.75,
				Risk:  &models.DivisionRiskWarning{Units: []int{1, 2}},
			},
		},
	})
	rt.Record("run-1", models.ReplicateResult{ID: 4, Err: errors.New("boom")})

	data, err := os.ReadFile(filepath.Join(dir, TraceFileName))
	if err != nil {
		t.Fatalf("failed to read replicates.jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("failed to parse first entry: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("failed to parse second entry: %v", err)
	}

	if first["run_id"] != "run-1" || first["replicate"] != 3.0 {
		t.Errorf("unexpected identity fields: %v", first)
	}
	if first["naive"] != 12.5 || first["ipw"] != 9.75 {
		t.Errorf("unexpected estimates: %v", first)
	}
	if first["ipw_flagged_units"] != 2.0 {
		t.Errorf("ipw_flagged_units = %v, want 2", first["ipw_flagged_units"])
	}
	if _, ok := first["time"]; !ok {
		t.Error("expected 'time' field in trace entry")
	}
	if second["error"] != "boom" {
		t.Errorf("error = %v, want boom", second["error"])
	}
}

func TestReplicateTrace_NilSafety(t *testing.T) {
	var rt *ReplicateTrace
	rt.Log(map[string]any{"event": "should_not_panic"})
	rt.Record("run", models.ReplicateResult{})
	rt.Close()
}

func TestReplicateTrace_DoesNotMutateCallerMap(t *testing.T) {
	rt := NewReplicateTrace(t.TempDir(), "trace")
	defer rt.Close()

	event := map[string]any{"event": "test"}
	rt.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
}

func TestReplicateTrace_LogAfterClose(t *testing.T) {
	rt := NewReplicateTrace(t.TempDir(), "debug")
	rt.Log(map[string]any{"event": "before_close"})
	rt.Close()

	// Should be a no-op, not panic or error
	rt.Log(map[string]any{"event": "after_close"})
}

func TestReplicateTrace_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	rt := NewReplicateTrace(dir, "debug")
	if rt == nil {
		t.Fatal("expected non-nil ReplicateTrace when dir needs creation")
	}
	defer rt.Close()

	rt.Log(map[string]any{"event": "perm_test"})

	info, err := os.Stat(filepath.Join(dir, TraceFileName))
	if err != nil {
		t.Fatalf("failed to stat replicates.jsonl: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
