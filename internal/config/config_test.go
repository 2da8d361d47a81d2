package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8087", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Storage)
	assert.Empty(t, cfg.OpenAIAPIKey)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: 0.0.0.0:9000\nstorage: memory\nopenai_model: gpt-4o\n"), 0o644))

	t.Setenv("APPLYWISE_ADDR", "127.0.0.1:9999")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr, "env beats file")
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPLYWISE_STORAGE", "postgres")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid storage")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"APPLYWISE_ADDR", "APPLYWISE_STORAGE", "APPLYWISE_DB_PATH", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_ENDPOINT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}
