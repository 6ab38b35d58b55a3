package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSensitive(t *testing.T) {
	for _, k := range []string{"client_secret", "access_token", "Authorization_Token", "api_key", "PASSWORD", "encryption_key", "secret"} {
		assert.True(t, IsSensitive(k), k)
	}
	for _, k := range []string{"client_id", "status", "service", "attempt", "url"} {
		assert.False(t, IsSensitive(k), k)
	}
}

func TestHandlerRedactsTopLevelAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelDebug))

	logger.Info("token stored",
		"client_id", "abc",
		"client_secret", "xyz",
		slog.Group("request", "url", "https://auth/token", "access_token", "t0k3n"),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "token stored", entry["msg"])
	assert.Equal(t, "abc", entry["client_id"])
	assert.Equal(t, Redacted, entry["client_secret"])

	group := entry["request"].(map[string]any)
	assert.Equal(t, "https://auth/token", group["url"])
	assert.Equal(t, Redacted, group["access_token"])
	assert.NotContains(t, buf.String(), "xyz")
	assert.NotContains(t, buf.String(), "t0k3n")
}

func TestHandlerRedactsInsideSensitiveGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelDebug))

	logger.Info("credentials saved",
		slog.Group("client_secret", "value", "xyz"),
		slog.Group("auth", slog.Group("tokens", "current", "t0k3n")),
		slog.Group("site", "url", "https://example.test"),
	)
	logger.WithGroup("api_key").Info("loaded", "raw", "k3y")

	out := buf.String()
	assert.NotContains(t, out, "xyz")
	assert.NotContains(t, out, "t0k3n")
	assert.NotContains(t, out, "k3y")
	assert.Contains(t, out, "https://example.test")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, Redacted, entry["client_secret"].(map[string]any)["value"])
	nested := entry["auth"].(map[string]any)["tokens"].(map[string]any)
	assert.Equal(t, Redacted, nested["current"])
}

func TestHandlerRedactsMapValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "text", slog.LevelInfo))

	logger.Info("request", "body", map[string]any{
		"client_id":     "abc",
		"client_secret": "xyz",
		"nested":        map[string]any{"password": "hunter2", "ok": true},
		"list":          []any{map[string]any{"api_key": "k"}},
	})

	out := buf.String()
	assert.NotContains(t, out, "xyz")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, Redacted)
}

func TestRedactMapDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"token": "t", "inner": map[string]any{"secret": "s"}}
	out := RedactMap(in)

	assert.Equal(t, "t", in["token"])
	assert.Equal(t, "s", in["inner"].(map[string]any)["secret"])
	assert.Equal(t, Redacted, out["token"])
	assert.Equal(t, Redacted, out["inner"].(map[string]any)["secret"])
}

func TestNewDebugOverridesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.log")
	logger, closer, err := New(Config{Level: "warn", Debug: true, Output: path})
	require.NoError(t, err)
	defer closer.Close()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "loud"))
}
