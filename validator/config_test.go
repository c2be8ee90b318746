package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().InputPath, cfg.InputPath)
	require.Equal(t, "mem", cfg.RepoBackend)
	require.Equal(t, 1, cfg.Workers)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":0"
expiry_tz: UTC
workers: 4
input_path: in.json
explain_rejections: true
`), 0o600))

	t.Setenv("OUTPUT_PATH", "out.json")
	t.Setenv("WORKERS", "2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":0", cfg.HTTPAddr)
	require.Equal(t, "UTC", cfg.ExpiryTZ)
	require.Equal(t, "in.json", cfg.InputPath)
	require.Equal(t, "out.json", cfg.OutputPath)
	require.Equal(t, 2, cfg.Workers)
	require.True(t, cfg.ExplainRejections)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1"), 0o600))
	_, err = LoadConfig(path)
	require.Error(t, err)

	t.Setenv("REPO_BACKEND", "pg")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "DB_DSN")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RepoBackend = "redis"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ExpiryTZ = "Mars/Olympus"
	require.Error(t, cfg.Validate())
}
