package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.NoColor = true

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	Debug("hidden %d", 1)
	Info("shown %d", 2)
	Warn("careful")
	Error("broken: %v", "disk")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] broken: disk")
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)

	SetLevel(LevelDebug)
	Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
	assert.True(t, Enabled(LevelDebug))

	buf.Reset()
	SetLevel(LevelError)
	Warn("suppressed")
	assert.Empty(t, buf.String())
	assert.False(t, Enabled(LevelWarn))
}
