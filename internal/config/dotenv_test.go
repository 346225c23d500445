package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "redactor.env")
	require.NoError(t, os.WriteFile(envFile, []byte("REDACTOR_BATCH_WORKERS=7\nREDACTOR_LOG_LEVEL=warn\n"), 0o600))

	// already exported variables win over the file
	t.Setenv("REDACTOR_LOG_LEVEL", "error")
	t.Setenv("REDACTOR_BATCH_WORKERS", "")
	require.NoError(t, os.Unsetenv("REDACTOR_BATCH_WORKERS"))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "7", os.Getenv("REDACTOR_BATCH_WORKERS"))
	assert.Equal(t, "error", os.Getenv("REDACTOR_LOG_LEVEL"))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Batch.Workers)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadDotEnvMissing(t *testing.T) {
	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	t.Chdir(t.TempDir())
	assert.NoError(t, LoadDotEnv(""))
}
