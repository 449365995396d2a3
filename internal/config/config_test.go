package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir for Go versions before 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, "foods.db", cfg.Store.FileName)
	assert.Equal(t, "foods_bundled.db", cfg.Bundle.AssetName)
	assert.Equal(t, []string{"assets", "bundle"}, cfg.Bundle.SearchDirs)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 2, cfg.Search.OverfetchFactor)
	assert.Equal(t, 8080, cfg.Serve.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NUTRASAFE_STORE_DATA_DIR", "/var/lib/nutrasafe")
	t.Setenv("NUTRASAFE_SEARCH_DEFAULT_LIMIT", "50")
	t.Setenv("NUTRASAFE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/nutrasafe", cfg.Store.DataDir)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestStoreConfig_WritablePath(t *testing.T) {
	c := StoreConfig{DataDir: filepath.Join("var", "data"), FileName: "foods.db"}
	assert.Equal(t, filepath.Join("var", "data", "foods.db"), c.WritablePath())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "nope"}))
}
