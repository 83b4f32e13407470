package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

type stubSource struct {
	procs []model.ProcessSnapshot
	sys   model.SystemSnapshot
}

func (s stubSource) GetProcesses() []model.ProcessSnapshot { return s.procs }
func (s stubSource) GetSystem() model.SystemSnapshot       { return s.sys }

func sysWithUsedPct(pct float64) model.SystemSnapshot {
	return model.SystemSnapshot{MemTotalKB: 100, MemAvailKB: uint64(100 - pct)}
}

func TestClassifyBoundaries(t *testing.T) {
	c := New(stubSource{}, nil, nil)
	require.Equal(t, model.PressureLow, c.classify(50))
	require.Equal(t, model.PressureMedium, c.classify(70))
	require.Equal(t, model.PressureHigh, c.classify(80))
	require.Equal(t, model.PressureCritical, c.classify(95))
}

func TestPressureUsesSourceSnapshot(t *testing.T) {
	c := New(stubSource{sys: sysWithUsedPct(92)}, nil, nil)
	require.Equal(t, model.PressureCritical, c.Pressure())
}

func TestTopMemoryOrdersDescendingTiesByPID(t *testing.T) {
	src := stubSource{procs: []model.ProcessSnapshot{
		{PID: 9, RSSKB: 10},
		{PID: 1, RSSKB: 500},
		{PID: 2, RSSKB: 500},
	}}
	c := New(src, nil, nil)

	top := c.TopMemory(2)
	require.Len(t, top, 2)
	require.Equal(t, 1, top[0].PID)
	require.Equal(t, 2, top[1].PID)
}

func TestRegisterPressureCallbackReceivesLevel(t *testing.T) {
	src := stubSource{sys: sysWithUsedPct(95)}
	c := New(src, nil, nil)
	c.SetAutoOptimize(false)

	var got model.PressureLevel
	c.RegisterPressureCallback(func(level model.PressureLevel, _ model.SystemSnapshot) {
		got = level
	})
	c.scanCycle()

	require.Equal(t, model.PressureCritical, got)
}

func TestSetThresholdsChangesClassification(t *testing.T) {
	c := New(stubSource{}, nil, nil)
	c.SetThresholds(Thresholds{LowThreshold: 10, CriticalThreshold: 20})
	require.Equal(t, model.PressureCritical, c.classify(25))
}
