package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, FreeModels, cfg.Models)
	assert.Equal(t, "minimax/minimax-m2:free", cfg.DefaultModel)
	assert.Equal(t, 800, cfg.Gateway.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.False(t, cfg.Gateway.Parallel)
}

func TestDefaultConfigDoesNotAliasFreeModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models[0] = "changed"
	assert.Equal(t, "nvidia/nemotron-nano-9b-v2:free", FreeModels[0])
}

func TestReadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "educhat.yaml")
	content := `addr: ":8080"
gateway:
  timeout: 40s
  parallel: true
models:
  - a/one:free
  - b/two:free
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 40*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.Gateway.Parallel)
	assert.Equal(t, DefaultEndpoint, cfg.Gateway.Endpoint)
	assert.Equal(t, []string{"a/one:free", "b/two:free"}, cfg.Models)
}

func TestReadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "educhat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0644))

	_, err := ReadConfig(path)
	assert.Error(t, err)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "chat_data", cfg.DataDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("ADMIN_PASS", "secret")
	t.Setenv("EDUCHAT_MODELS", " x/one:free , ,y/two:free")
	t.Setenv("EDUCHAT_PARALLEL", "true")
	t.Setenv("EDUCHAT_DEFAULT_MODEL", "x/one:free")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "secret", cfg.AdminPassword)
	assert.Equal(t, []string{"x/one:free", "y/two:free"}, cfg.Models)
	assert.Equal(t, "x/one:free", cfg.DefaultModel)
	assert.True(t, cfg.Gateway.Parallel)
	assert.Empty(t, cfg.Warnings())
}

func TestLoadBadParallelFlag(t *testing.T) {
	t.Setenv("EDUCHAT_PARALLEL", "sometimes")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadSessionTTL(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)

	t.Setenv("EDUCHAT_SESSION_TTL", "90s")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)

	t.Setenv("EDUCHAT_SESSION_TTL", "soon")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("EDUCHAT_SESSION_TTL", "-1m")
	_, err = Load("")
	assert.Error(t, err)
}

func TestWarningsForMissingSecrets(t *testing.T) {
	cfg := DefaultConfig()
	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "OPENROUTER_API_KEY")
	assert.Contains(t, warnings[1], "ADMIN_PASS")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DefaultModel = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "minimax/minimax-m2:free", cfg.DefaultModel)

	cfg = DefaultConfig()
	cfg.Models = []string{"a/one:free"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "a/one:free", cfg.DefaultModel)
}
