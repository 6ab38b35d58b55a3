// Package logging builds the process logger.
//
// Every attribute whose key names a credential, or that sits inside a
// group whose name does, is replaced with [REDACTED] before it reaches
// the sink.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Redacted replaces sensitive attribute values.
const Redacted = "[REDACTED]"

// sensitiveKeys are matched as case-insensitive substrings of attribute keys.
var sensitiveKeys = []string{"client_secret", "token", "api_key", "password", "secret", "key"}

// Config controls the logger output.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	Debug  bool   `yaml:"debug"`
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// DefaultConfig returns info-level text logging to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text", Output: "stderr"}
}

// New builds a logger from cfg. The returned closer releases a log file
// when Output names one.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, err
	}
	level, err := parseLevel(cfg.Level)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(NewHandler(w, cfg.Format, level)), closer, nil
}

// NewHandler returns a text or JSON handler that redacts sensitive attributes.
func NewHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redact}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// IsSensitive reports whether values under key must be redacted.
func IsSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func redact(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey, slog.SourceKey:
			return a
		}
	}
	if IsSensitive(a.Key) || sensitiveGroup(groups) {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindAny {
		if m, ok := a.Value.Any().(map[string]any); ok {
			return slog.Any(a.Key, RedactMap(m))
		}
	}
	return a
}

// sensitiveGroup reports whether any enclosing group names a credential.
func sensitiveGroup(groups []string) bool {
	for _, g := range groups {
		if IsSensitive(g) {
			return true
		}
	}
	return false
}

// RedactMap returns a copy of m with sensitive keys redacted recursively.
func RedactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if IsSensitive(k) {
			out[k] = Redacted
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			out[k] = RedactMap(val)
		case []any:
			out[k] = redactSlice(val)
		default:
			out[k] = v
		}
	}
	return out
}

func redactSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		switch val := v.(type) {
		case map[string]any:
			out[i] = RedactMap(val)
		case []any:
			out[i] = redactSlice(val)
		default:
			out[i] = v
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nopCloser{}, nil
	case "stdout":
		return os.Stdout, nopCloser{}, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f, nil
}
