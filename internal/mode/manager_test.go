package mode

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/control"
	"github.com/Taragi14/smart-resource-scheduler/internal/memory"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
	"github.com/Taragi14/smart-resource-scheduler/internal/scheduler"
)

type fakeSource struct{}

func (fakeSource) GetProcesses() []model.ProcessSnapshot                { return nil }
func (fakeSource) GetSystem() model.SystemSnapshot                      { return model.SystemSnapshot{} }
func (fakeSource) GetProcessesByName(substr string) []model.ProcessSnapshot { return nil }

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	src := fakeSource{}
	ctl := control.New(nil)
	memCtl := memory.New(src, ctl, nil)
	sched := scheduler.New(src, ctl, nil)
	m := New(sched, memCtl, ctl, src, nil)
	m.SetSmoothTransitions(false)
	return m
}

func TestSwitchToSameModeFails(t *testing.T) {
	m := newTestManager(t)
	err := m.Switch(model.ModeBalanced)
	require.ErrorIs(t, err, ErrSameMode)
}

func TestSwitchToUnknownModeFails(t *testing.T) {
	m := newTestManager(t)
	err := m.Switch(model.Mode(99))
	require.Error(t, err)
}

// TestSwitchFailureRollsBackActiveMode exercises the real failure path:
// in a sandboxed environment with no cpufreq/turbo sysfs entries, every
// mode's host-hardware step fails, so Switch must restore the prior
// active mode rather than leave it partially applied.
func TestSwitchFailureRollsBackActiveMode(t *testing.T) {
	m := newTestManager(t)
	before := m.ActiveMode()

	err := m.Switch(model.ModeGaming)
	require.Error(t, err)
	require.Equal(t, before, m.ActiveMode())
}

func TestConcurrentSwitchRejectsSecondCaller(t *testing.T) {
	m := newTestManager(t)
	m.SetTransitionDelay(50 * time.Millisecond)
	m.SetSmoothTransitions(true)

	errCh := make(chan error, 2)
	go func() { errCh <- m.Switch(model.ModeGaming) }()
	time.Sleep(5 * time.Millisecond)
	go func() { errCh <- m.Switch(model.ModeProductivity) }()

	first := <-errCh
	second := <-errCh
	require.True(t, errors.Is(first, ErrSwitchInProgress) || errors.Is(second, ErrSwitchInProgress))
}

func TestMergeOverrideAppliesOnlyProvidedFields(t *testing.T) {
	base := model.ModeConfig{TimeSliceMs: 100, CPUGovernor: "ondemand"}
	override := model.ModeConfig{TimeSliceMs: 20, Algorithm: model.AlgorithmRoundRobin}

	merged := mergeOverride(base, override)
	require.Equal(t, 20, merged.TimeSliceMs)
	require.Equal(t, "ondemand", merged.CPUGovernor)
	require.Equal(t, model.AlgorithmRoundRobin, merged.Algorithm)
}

func TestRestoreSystemStateDoesNotPanicWithNoManagedProcesses(t *testing.T) {
	m := newTestManager(t)
	require.NotPanics(t, func() { m.RestoreSystemState() })
}
