package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushCPUPctAndLatest(t *testing.T) {
	sp := &ScheduledProcess{}
	require.Equal(t, 0.0, sp.LatestCPUPct())

	sp.PushCPUPct(10)
	sp.PushCPUPct(20)
	require.Equal(t, 20.0, sp.LatestCPUPct())

	for i := 0; i < CPUHistorySize+2; i++ {
		sp.PushCPUPct(float64(i))
	}
	require.Equal(t, float64(CPUHistorySize+1), sp.LatestCPUPct())
}

func TestAlgorithmString(t *testing.T) {
	cases := map[Algorithm]string{
		AlgorithmPriorityBased:      "priority",
		AlgorithmRoundRobin:         "round_robin",
		AlgorithmMultilevelFeedback: "multilevel",
		AlgorithmFair:               "fair",
	}
	for alg, want := range cases {
		require.Equal(t, want, alg.String())
	}
}

func TestModeParseRoundTrip(t *testing.T) {
	modes := []Mode{ModeBalanced, ModeGaming, ModeProductivity, ModePowerSaving}
	for _, m := range modes {
		parsed, ok := ParseMode(m.String())
		require.True(t, ok)
		require.Equal(t, m, parsed)
	}
	_, ok := ParseMode("nonexistent")
	require.False(t, ok)
}
