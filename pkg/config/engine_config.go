// Package config loads Echo's ambient engine configuration.
//
// Grounded on the teacher's pkg/config/config.go: environment-variable
// driven settings with a Validate() step, extended here with a YAML file
// loader for the CLI boundary (cmd/echo) the way the teacher's ops
// tooling layers YAML over env-var defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the knobs the core tick engine needs: the commit
// policy id stamped into every patch, and a worker-parallelism setting
// (spec.md §5) that Validate checks but that is not passed to the engine: a
// commit runs each accepted candidate in its own goroutine, with no limit.
// Everything else in the
// teacher's Config (auth, server ports, compliance, memory decay) belongs
// to external collaborators outside the core's scope.
type EngineConfig struct {
	PolicyId          uint32 `yaml:"policy_id"`
	WorkerParallelism int    `yaml:"worker_parallelism"`
	RootWarpLabel     string `yaml:"root_warp_label"`
	RootTypeLabel     string `yaml:"root_type_label"`
}

// LoadFromEnv builds an EngineConfig from ECHO_-prefixed environment
// variables, falling back to defaults.
func LoadFromEnv() EngineConfig {
	return EngineConfig{
		PolicyId:          uint32(getEnvInt("ECHO_POLICY_ID", 0)),
		WorkerParallelism: getEnvInt("ECHO_WORKER_PARALLELISM", 4),
		RootWarpLabel:     getEnvString("ECHO_ROOT_WARP_LABEL", "root"),
		RootTypeLabel:     getEnvString("ECHO_ROOT_TYPE_LABEL", "root"),
	}
}

// LoadFromYAML reads an EngineConfig from a YAML file, overlaying it on
// top of the environment-derived defaults (unset YAML fields keep the
// env/default value).
func LoadFromYAML(path string) (EngineConfig, error) {
	cfg := LoadFromEnv()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for values the engine cannot run with.
func (c EngineConfig) Validate() error {
	if c.WorkerParallelism < 1 {
		return fmt.Errorf("config: worker_parallelism must be >= 1, got %d", c.WorkerParallelism)
	}
	if c.RootWarpLabel == "" {
		return fmt.Errorf("config: root_warp_label must not be empty")
	}
	if c.RootTypeLabel == "" {
		return fmt.Errorf("config: root_type_label must not be empty")
	}
	return nil
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
