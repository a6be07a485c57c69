package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig("RecreationQueue", Config{IsProduction: true, AppEnv: "production", Out: &buf})

	l.LogInfof("queued %s", "A1")

	out := StripANSI(buf.String())
	assert.Contains(t, out, "[RecreationQueue] queued A1")
	assert.Contains(t, out, "[INFO]")
}

func TestLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig("x", Config{AppEnv: "development", Level: "warn", Out: &buf})

	l.LogDebug("hidden")
	l.LogInfo("hidden too")
	assert.Empty(t, buf.String())

	l.LogWarn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestResolveLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, resolveLevel(Config{AppEnv: "production"}))
	assert.Equal(t, zerolog.DebugLevel, resolveLevel(Config{AppEnv: "unknown"}))
	assert.Equal(t, zerolog.ErrorLevel, resolveLevel(Config{AppEnv: "production", Level: "ERROR"}))
	assert.Equal(t, zerolog.InfoLevel, resolveLevel(Config{AppEnv: "production", Level: "bogus"}))
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "[WARN] x", StripANSI("\033[33m[WARN]\033[0m x"))
}
