// Package logging provides leveled logging and conversion provenance for
// nifti2bids. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A ProvenanceLogger recording every file the tool creates, moves or
//     rewrites (<dataset>/code/nifti2bids/provenance.jsonl)
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

	"github.com/google/uuid"
)

// LevelTrace is a custom slog level below Debug for per-row and per-voxel
// detail while parsing logs and images.
const LevelTrace = slog.LevelDebug - 4

// ProvenanceFile is the name of the provenance log inside ProvenanceDir.
const ProvenanceFile = "provenance.jsonl"

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
			// Label the custom trace level
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

// ProvenanceDir is where a dataset keeps its provenance log. BIDS
// validators ignore the code/ directory.
func ProvenanceDir(datasetRoot string) string {
	return filepath.Join(datasetRoot, "code", "nifti2bids")
}

// ProvenanceLogger appends one JSON line per file operation. Every line of
// one run carries the same session id. A nil ProvenanceLogger is safe to
// use; all methods are no-ops on nil receiver.
type ProvenanceLogger struct {
	mu      sync.Mutex
	file    *os.File
	session string
}

// NewProvenanceLogger opens <datasetRoot>/code/nifti2bids/provenance.jsonl
// for append. Returns nil when disabled or when the file cannot be opened.
func NewProvenanceLogger(datasetRoot string, enabled bool) *ProvenanceLogger {
	if !enabled || datasetRoot == "" {
		return nil
	}

	dir := ProvenanceDir(datasetRoot)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, ProvenanceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &ProvenanceLogger{file: f, session: uuid.NewString()}
}

// Session returns the run's session id, or "" on nil receiver.
func (pl *ProvenanceLogger) Session() string {
	if pl == nil {
		return ""
	}
	return pl.session
}

// Log writes one operation as a JSONL line. The "action", "session" and
// "time" fields are added; the caller's map is not mutated.
func (pl *ProvenanceLogger) Log(action string, fields map[string]any) {
	if pl == nil {
		return
	}

	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["action"] = action
	entry["session"] = pl.session
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.file == nil {
		return
	}
	_, _ = pl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (pl *ProvenanceLogger) Close() {
	if pl == nil {
		return
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file != nil {
		pl.file.Close()
		pl.file = nil
	}
}
