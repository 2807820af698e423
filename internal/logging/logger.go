// Package logging provides leveled logging and replicate tracing for drsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A ReplicateTrace for structured JSONL replicate records (<dir>/replicates.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/drsim/internal/models"
)

// LevelTrace is a custom slog level below Debug. At this level every
// replicate's estimates are logged, not just failures.
const LevelTrace = slog.LevelDebug - 4

// TraceFileName is the name of the JSONL file written by ReplicateTrace.
const TraceFileName = "replicates.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ReplicateTrace appends one JSON object per replicate to a JSONL file.
// It is safe for concurrent use. A nil ReplicateTrace is safe to use;
// all methods are no-ops on nil receiver.
type ReplicateTrace struct {
	mu   sync.Mutex
	file *os.File
}

// NewReplicateTrace creates a trace writing to dir/replicates.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewReplicateTrace(dir string, level string) *ReplicateTrace {
	if ParseLevel(level) == slog.LevelInfo || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, TraceFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &ReplicateTrace{file: f}
}

// Record writes one replicate result tagged with its run ID.
func (rt *ReplicateTrace) Record(runID string, r models.ReplicateResult) {
	if rt == nil {
		return
	}

	entry := map[string]any{
		"run_id":    runID,
		"replicate": r.ID,
		"seed":      r.Seed,
	}
	if r.Err != nil {
		entry["error"] = r.Err.Error()
	} else {
		for kind, est := range r.Estimates {
			entry[string(kind)] = est.Value
			if est.Risk != nil {
				entry[string(kind)+"_flagged_units"] = len(est.Risk.Units)
			}
		}
	}
	rt.Log(entry)
}

// Log writes an arbitrary event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (rt *ReplicateTrace) Log(event map[string]any) {
	if rt == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.file == nil {
		return
	}
	_, _ = rt.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (rt *ReplicateTrace) Close() {
	if rt == nil {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.file != nil {
		rt.file.Close()
		rt.file = nil
	}
}
