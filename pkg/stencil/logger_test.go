package stencil

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name           string
		level          LogLevel
		expectedOutput []string
		notExpected    []string
	}{
		{
			name:           "debug level shows all messages",
			level:          LogDebug,
			expectedOutput: []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR"},
		},
		{
			name:           "info level hides debug messages",
			level:          LogInfo,
			expectedOutput: []string{"level=INFO", "level=WARN", "level=ERROR"},
			notExpected:    []string{"level=DEBUG", "debug message"},
		},
		{
			name:           "warn level shows only warnings and errors",
			level:          LogWarn,
			expectedOutput: []string{"warn message", "error message"},
			notExpected:    []string{"debug message", "info message"},
		},
		{
			name:        "off silences everything",
			level:       LogOff,
			notExpected: []string{"message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(&buf, tt.level)
			l.Debug("debug message")
			l.Info("info message")
			l.Warn("warn message")
			l.Error("error %s", "message")

			output := buf.String()
			for _, want := range tt.expectedOutput {
				assert.Contains(t, output, want)
			}
			for _, unwanted := range tt.notExpected {
				assert.NotContains(t, output, unwanted)
			}
		})
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithFormat(&buf, LogInfo, "json")

	l.WithField("template", "page").WithFields(Fields{"b": 2, "a": 1}).Info("rendered %d loops", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "rendered 3 loops", record["msg"])
	assert.Equal(t, "page", record["template"])
	assert.EqualValues(t, 1, record["a"])
	assert.EqualValues(t, 2, record["b"])
}

func TestLogger_DerivedLoggersShareLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&buf, LogWarn)
	child := parent.WithField("k", "v")

	child.Info("hidden")
	assert.Empty(t, buf.String())

	parent.SetLevel(LogDebug)
	assert.True(t, child.IsDebugMode())
	child.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestLogger_DebugExpression(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LogInfo)
	l.DebugExpression("a + b", 3)
	assert.Empty(t, buf.String())

	l.SetLevel(LogDebug)
	l.DebugExpression("a + b", 3)
	assert.Contains(t, buf.String(), `expression="a + b"`)
	assert.Contains(t, buf.String(), "result=3")
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LogInfo)
	l.Slog().InfoContext(context.Background(), "direct", "n", 1)
	assert.Contains(t, buf.String(), "msg=direct n=1")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogDebug,
		"info":    LogInfo,
		"warn":    LogWarn,
		"error":   LogError,
		"off":     LogOff,
		"verbose": LogInfo,
		"":        LogInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), "ParseLogLevel(%q)", in)
	}
	assert.Equal(t, "WARN", LogWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	t.Cleanup(func() { SetLogger(original) })

	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, LogInfo))

	Info("hello %s", "world")
	WithField("template", "x").Warn("careful")
	Debug("not shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `msg="hello world"`)
	assert.Contains(t, lines[1], "template=x")
}

func TestRender_LogsCancellation(t *testing.T) {
	original := GetLogger()
	t.Cleanup(func() { SetLogger(original) })
	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, LogInfo))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mustCompile(t, "{{for x in range(3)}}{{x}}{{end}}").Render(ctx, nil)
	require.Error(t, err)

	assert.Contains(t, buf.String(), `msg="Render cancelled"`)
	assert.Contains(t, buf.String(), "template=test")
	assert.Contains(t, buf.String(), "cause=\"context canceled\"")
}

func TestUpdateLoggerFromConfig(t *testing.T) {
	original, originalConfig := GetLogger(), GetGlobalConfig()
	t.Cleanup(func() { SetLogger(original) })
	t.Cleanup(func() { SetGlobalConfig(originalConfig) })

	var buf bytes.Buffer
	SetLogger(NewLogger(&buf, LogInfo))

	config := DefaultConfig()
	config.LogLevel = "debug"
	SetGlobalConfig(config)
	Debug("level only")
	assert.Contains(t, buf.String(), `msg="level only"`)
	assert.Equal(t, "text", GetLogger().Format())

	buf.Reset()
	config.LogFormat = "json"
	SetGlobalConfig(config)
	WithField("template", "x").Debug("now json")

	require.Equal(t, "json", GetLogger().Format())
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), buf.String())
	assert.Equal(t, "now json", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "x", record["template"])
}
