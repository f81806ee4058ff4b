package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"  debug ", LevelDebug},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelWarn,
		Format: "text",
		Output: &buf,
	})

	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String(), "debug and info should be filtered at warn level")

	logger.Warn(ctx, nil, "warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.WithStep("provision").Info(context.Background(), "environment created",
		"env_name", "beaker-py3.6",
		"python", "3.6",
	)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "environment created", record["msg"])
	assert.Equal(t, "provision", record["step"])
	assert.Equal(t, "beaker-py3.6", record["env_name"])
	assert.Equal(t, "3.6", record["python"])
}

func TestLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.Error(context.Background(), errors.New("conda create failed"), "step failed")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "conda create failed", record["error"])
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	derived := base.With("platform", "linux")
	derived.Info(context.Background(), "hello")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "linux", record["platform"])

	// Base logger remains unaffected
	buf.Reset()
	base.Info(context.Background(), "plain")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	_, hasPlatform := record["platform"]
	assert.False(t, hasPlatform)
}

func TestSanitizeForLog(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeForLog("repo_token: abc123"))
	assert.Equal(t, "[REDACTED]", SanitizeForLog("my PASSWORD here"))
	assert.Equal(t, "plain output", SanitizeForLog("plain output"))

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	sanitized := SanitizeForLog(string(long))
	assert.Len(t, sanitized, 1000+len("...[TRUNCATED]"))
}
