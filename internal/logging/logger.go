// Package logging provides leveled logging and an artifact trace for biomcpp.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An ArtifactLogger recording every file the tool writes as JSONL
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
)

// LevelTrace is a custom slog level below Debug for per-file and per-dataset detail.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace", "warn", "error" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
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

// ArtifactLogger appends one JSON line per written artifact (figure, CSV,
// JSON export) to dir/artifacts.jsonl. A nil ArtifactLogger is a no-op.
type ArtifactLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewArtifactLogger opens dir/artifacts.jsonl for append at debug and trace
// levels. At any other level, or when the file cannot be opened, it returns nil.
func NewArtifactLogger(dir string, level string) *ArtifactLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "artifacts.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	return &ArtifactLogger{file: f}
}

// Log records that path was produced from run by command.
func (al *ArtifactLogger) Log(command, run, path string) {
	if al == nil || al.file == nil {
		return
	}
	entry := map[string]any{
		"time":    time.Now().UTC().Format(time.RFC3339Nano),
		"command": command,
		"run":     run,
		"path":    path,
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = al.file.Write(data)
}

func (al *ArtifactLogger) Close() {
	if al == nil || al.file == nil {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()

	al.file.Close()
	al.file = nil
}
