package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/config"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := config.LoadFromEnv()
	require.Equal(t, uint32(0), cfg.PolicyId)
	require.Equal(t, 4, cfg.WorkerParallelism)
	require.Equal(t, "root", cfg.RootWarpLabel)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("ECHO_POLICY_ID", "9")
	t.Setenv("ECHO_WORKER_PARALLELISM", "2")
	cfg := config.LoadFromEnv()
	require.Equal(t, uint32(9), cfg.PolicyId)
	require.Equal(t, 2, cfg.WorkerParallelism)
}

func TestLoadFromYAMLOverlaysEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "echo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy_id: 5\nworker_parallelism: 8\n"), 0o644))

	cfg, err := config.LoadFromYAML(path)
	require.NoError(t, err)
	require.Equal(t, uint32(5), cfg.PolicyId)
	require.Equal(t, 8, cfg.WorkerParallelism)
	require.Equal(t, "root", cfg.RootWarpLabel, "fields absent from YAML keep the env/default value")
}

func TestValidateRejectsZeroParallelism(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.WorkerParallelism = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyLabels(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.RootWarpLabel = ""
	require.Error(t, cfg.Validate())

	cfg = config.LoadFromEnv()
	cfg.RootTypeLabel = ""
	require.Error(t, cfg.Validate())
}
