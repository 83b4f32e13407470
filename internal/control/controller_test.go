package control

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func TestGuardRejectsCriticalProcessName(t *testing.T) {
	c := New(nil)
	err := c.Terminate(os.Getpid(), "systemd-logind")
	require.ErrorIs(t, err, ErrGuardCritical)
}

func TestGuardRejectsDeadPID(t *testing.T) {
	c := New(nil)
	// A pid this large is virtually guaranteed not to exist.
	err := c.SetNice(1<<30, "ghost", 5)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAddCriticalExtendsGuard(t *testing.T) {
	c := New(nil)
	c.AddCritical("myguardedsvc")
	require.True(t, c.isCritical("myguardedsvc-worker"))
	require.False(t, c.isCritical("unrelated"))
}

func TestClampNice(t *testing.T) {
	require.Equal(t, -20, clampNice(-99))
	require.Equal(t, 19, clampNice(99))
	require.Equal(t, 0, clampNice(0))
}

func TestSetNiceOnSelfUpdatesManagedEntry(t *testing.T) {
	c := New(nil)
	pid := os.Getpid()
	err := c.SetNice(pid, "self", 3)
	require.NoError(t, err)

	snap := c.ManagedSnapshot()
	require.Len(t, snap, 1)
	require.Equal(t, pid, snap[0].PID)
	require.Equal(t, 3, snap[0].CurrentNice)

	// Restore to avoid leaving the test process niced for later tests
	// in the same binary.
	_ = c.SetNice(pid, "self", 0)
}

func TestSubscribePublishesResult(t *testing.T) {
	c := New(nil)
	var got model.ProcessActionResult
	c.Subscribe(func(r model.ProcessActionResult) { got = r })

	_ = c.SetNice(1<<30, "ghost", 1)

	require.Equal(t, "set_nice", got.Action)
	require.False(t, got.Success)
	require.True(t, errors.Is(ErrPermissionDenied, ErrPermissionDenied))
}

func TestWriteCgroupFilesRejectsEmptyPath(t *testing.T) {
	err := writeCgroupFiles(ResourceGroupConfig{}, os.Getpid())
	require.Error(t, err)
}
