package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogrusLogger_Fields verifies structured output
// Given: A logrus-backed logger writing text to a buffer at debug level
// When: A debug message with fields is logged
// Then: The message, the fields and the caller position appear in the output
func TestLogrusLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusLogger(logrus.New())
	l.SetOutput(&buf)
	l.SetLevel("debug")

	l.Debug("pass finished", F("channel", "jobs"), F("transferred", 3))

	out := buf.String()
	assert.Contains(t, out, "pass finished")
	assert.Contains(t, out, "channel=jobs")
	assert.Contains(t, out, "transferred=3")
	assert.Contains(t, out, "position=")
	assert.Contains(t, out, "logger_test.go")
}

func TestLogrusLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger()
	l.SetOutput(&buf)
	l.SetLevel("warn")

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	l.SetLevel("not-a-level")
	assert.Equal(t, logrus.InfoLevel, l.Logrus().GetLevel())
}

func TestLoggingPanicHandler(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusLogger(nil)
	l.SetOutput(&buf)

	h := &LoggingPanicHandler{Logger: l}
	h.HandlePanic(context.Background(), "loop-a", -1, "boom", []byte("stack"))

	require.Contains(t, buf.String(), "task panicked")
	assert.Contains(t, buf.String(), "runner=loop-a")
	assert.Contains(t, buf.String(), "panic=boom")
}

func TestRunnerConfig_WithDefaults(t *testing.T) {
	var nilCfg *RunnerConfig
	cfg := nilCfg.withDefaults()

	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Metrics)
	assert.IsType(t, &LoggingPanicHandler{}, cfg.PanicHandler)

	custom := NewNoOpLogger()
	cfg = (&RunnerConfig{Logger: custom}).withDefaults()
	assert.Same(t, custom, cfg.Logger)
	assert.Same(t, custom, cfg.PanicHandler.(*LoggingPanicHandler).Logger)
}
