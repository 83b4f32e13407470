package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, model.AlgorithmPriorityBased, cfg.DefaultAlgorithm)
	require.Equal(t, 50, cfg.DefaultTimeSliceMs)
	require.Equal(t, 70.0, cfg.MemoryThresholdPct)
	require.True(t, cfg.EnableAutoOptimize)
	require.False(t, cfg.EnableAutoMode)
	require.Equal(t, model.ModeBalanced, cfg.DefaultMode)
}

func TestLevelFromStringRecognizesAllSpellings(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for spelling, want := range cases {
		got, ok := LevelFromString(spelling)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := LevelFromString("nonsense")
	require.False(t, ok)
}

func TestFromFlagsAppliesOverrides(t *testing.T) {
	cfg := FromFlags([]string{"-time-slice", "25", "-auto-mode=true"})
	require.Equal(t, 25, cfg.DefaultTimeSliceMs)
	require.True(t, cfg.EnableAutoMode)
}
