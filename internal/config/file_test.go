package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadFileAppliesRecognizedKeys(t *testing.T) {
	path := writeTempFile(t, "srs.conf", `
# comment line
monitoring_interval_ms=2000
default_scheduling_algorithm=fair
default_time_slice_ms=30
memory_threshold_percent=60
cpu_threshold_percent=75
enable_auto_optimization=false
enable_auto_mode=true
default_mode=gaming
log_level=debug
`)

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))

	require.Equal(t, model.AlgorithmFair, cfg.DefaultAlgorithm)
	require.Equal(t, 30, cfg.DefaultTimeSliceMs)
	require.Equal(t, 60.0, cfg.MemoryThresholdPct)
	require.Equal(t, 75.0, cfg.CPUThresholdPct)
	require.False(t, cfg.EnableAutoOptimize)
	require.True(t, cfg.EnableAutoMode)
	require.Equal(t, model.ModeGaming, cfg.DefaultMode)
}

func TestLoadFileClampsOutOfRangeValues(t *testing.T) {
	path := writeTempFile(t, "srs.conf", `
default_time_slice_ms=5000
memory_threshold_percent=150
`)

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))

	require.Equal(t, 500, cfg.DefaultTimeSliceMs)
	require.Equal(t, 100.0, cfg.MemoryThresholdPct)
}

func TestLoadFileMissingPathErrors(t *testing.T) {
	cfg := Default()
	err := LoadFile(filepath.Join(t.TempDir(), "missing.conf"), &cfg)
	require.Error(t, err)
}

func TestLoadModeOverridesParsesJSON(t *testing.T) {
	path := writeTempFile(t, "overrides.json", `{
		"gaming": {
			"algorithm": "round_robin",
			"time_slice_ms": 15,
			"high_priority_name_tokens": ["mygame"],
			"cpu_governor": "performance"
		}
	}`)

	overrides, err := LoadModeOverrides(path)
	require.NoError(t, err)

	cfg, ok := overrides[model.ModeGaming]
	require.True(t, ok)
	require.Equal(t, model.AlgorithmRoundRobin, cfg.Algorithm)
	require.Equal(t, 15, cfg.TimeSliceMs)
	require.Equal(t, []string{"mygame"}, cfg.HighPriorityNameTokens)
	require.Equal(t, "performance", cfg.CPUGovernor)
}
