package logger

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	color.NoColor = true
	buf := &bytes.Buffer{}
	prev := output
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(prev)
		SetVerbose(false)
	})
	return buf
}

func TestDebugOnlyWhenVerbose(t *testing.T) {
	buf := capture(t)

	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 2")
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	Info("ingested %d documents", 3)
	Warn("partial commit")
	Error("boom: %v", "x")

	out := buf.String()
	assert.Contains(t, out, "[INFO] ingested 3 documents")
	assert.Contains(t, out, "[WARN] partial commit")
	assert.Contains(t, out, "[ERROR] boom: x")
}
