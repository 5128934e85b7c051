package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, ".env"), filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Connectors.ReconnectDelayMs)
	assert.Equal(t, 100, cfg.Signal.WindowSize)
}

func TestLoadConfig_DotEnvOverrides(t *testing.T) {
	const key = "METRICS_ADDR"
	if _, ok := os.LookupEnv(key); ok {
		t.Skipf("%s 已在环境中设置", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(key+"=:9200\n"), 0644))

	cfg, err := LoadConfig(envPath, filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signal:\n  std_times: -1\n"), 0644))

	_, err := LoadConfig(filepath.Join(dir, ".env"), path)
	assert.Error(t, err)
}

func TestNewLogger_InvalidLevelFallsBack(t *testing.T) {
	logger := NewLogger("verbose", "test")
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestSignalContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SignalContext(parent, zap.NewNop())
	defer stop()

	cancel()
	<-ctx.Done()
	assert.Error(t, ctx.Err())
}
