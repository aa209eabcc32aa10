package root

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/spendlog/internal/backend"
	"fjacquet/spendlog/internal/config"
	"fjacquet/spendlog/internal/container"
	"fjacquet/spendlog/internal/logging"
)

func testContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Backends.Active = config.BackendGemini
	cfg.Backends.TimeoutSeconds = 5
	cfg.Backends.Gemini.Enabled = true
	cfg.Store.Driver = config.StoreDriverMemory
	cfg.Categories.FallbackName = "Other"

	fake := backend.NewFake(config.BackendGemini, "")
	c, err := container.Build(context.Background(), cfg, container.Overrides{
		Logger: logging.NewNopLogger(),
		Factories: map[string]container.BackendFactory{
			config.BackendGemini: func(context.Context, *config.Config, logging.Logger) (backend.Backend, error) {
				return fake, nil
			},
		},
	})
	require.NoError(t, err)
	return c
}

func TestGetConfig_ExplicitFile(t *testing.T) {
	t.Cleanup(Reset)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\nstore:\n  driver: memory\n"), 0o600))

	SharedFlags = CommonFlags{ConfigFile: path}
	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	again, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func TestGetConfig_LogLevelOverride(t *testing.T) {
	t.Cleanup(Reset)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))

	SharedFlags = CommonFlags{ConfigFile: path, LogLevel: "warn"}
	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestGetConfig_MissingFile(t *testing.T) {
	t.Cleanup(Reset)
	SharedFlags = CommonFlags{ConfigFile: filepath.Join(t.TempDir(), "absent.yaml")}
	_, err := GetConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestUseContainer(t *testing.T) {
	t.Cleanup(Reset)
	c := testContainer(t)
	UseContainer(c)

	got, err := GetContainer(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, got)

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, c.GetConfig(), cfg)
}

func TestCloseContainer_Idempotent(t *testing.T) {
	t.Cleanup(Reset)
	UseContainer(testContainer(t))
	CloseContainer()
	assert.NotPanics(t, CloseContainer)
}
