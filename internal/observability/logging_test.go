package observability

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/modstack/internal/config"
	"github.com/cory-johannsen/modstack/internal/ruleset/mod"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console", Output: "stderr"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modstack.log")
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("written")
	_ = logger.Sync()
	assert.FileExists(t, path)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := config.LoggingConfig{Level: level, Format: "json"}
		logger, err := NewLogger(cfg)
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func TestModFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	master := &mod.Descriptor{ID: "xcom1", IsMaster: true, Version: mod.ParseVersion("1.0")}
	child := &mod.Descriptor{ID: "laser-pack", Master: "xcom1", Version: mod.ParseVersion("2.1")}
	logger.Info("master", ModFields(master)...)
	logger.Info("child", ModFields(child)...)

	entries := logs.All()
	require.Len(t, entries, 2)
	m := entries[0].ContextMap()
	assert.Equal(t, "xcom1", m["mod"])
	assert.Equal(t, "1.0", m["version"])
	assert.Equal(t, true, m["master"])
	c := entries[1].ContextMap()
	assert.Equal(t, "laser-pack", c["mod"])
	assert.Equal(t, "xcom1", c["master"])
}
