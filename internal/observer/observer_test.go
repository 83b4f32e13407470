package observer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func TestTopCPUOrdersDescendingTiesByPID(t *testing.T) {
	o := New(0, nil)
	o.processes = []model.ProcessSnapshot{
		{PID: 3, Name: "c", CPUPct: 10},
		{PID: 1, Name: "a", CPUPct: 50},
		{PID: 2, Name: "b", CPUPct: 50},
	}

	top := o.TopCPU(2)
	require.Len(t, top, 2)
	require.Equal(t, 1, top[0].PID)
	require.Equal(t, 2, top[1].PID)
}

func TestTopMemoryOrdersDescendingTiesByPID(t *testing.T) {
	o := New(0, nil)
	o.processes = []model.ProcessSnapshot{
		{PID: 5, Name: "x", RSSKB: 100},
		{PID: 4, Name: "y", RSSKB: 500},
	}

	top := o.TopMemory(10)
	require.Len(t, top, 2)
	require.Equal(t, 4, top[0].PID)
	require.Equal(t, 5, top[1].PID)
}

func TestGetProcessMissingReturnsFalse(t *testing.T) {
	o := New(0, nil)
	_, ok := o.GetProcess(999)
	require.False(t, ok)
}

func TestGetProcessesByNameCaseInsensitive(t *testing.T) {
	o := New(0, nil)
	o.processes = []model.ProcessSnapshot{
		{PID: 1, Name: "Firefox"},
		{PID: 2, Name: "bash"},
	}

	matches := o.GetProcessesByName("fire")
	require.Len(t, matches, 1)
	require.Equal(t, 1, matches[0].PID)
}

func TestSubscribersReceivePublishedSnapshots(t *testing.T) {
	o := New(0, nil)
	var gotProcs []model.ProcessSnapshot
	var gotSys model.SystemSnapshot
	o.SubscribeProcess(func(p []model.ProcessSnapshot) { gotProcs = p })
	o.SubscribeSystem(func(s model.SystemSnapshot) { gotSys = s })

	procs := []model.ProcessSnapshot{{PID: 7}}
	sys := model.SystemSnapshot{CPUTotalPct: 42}

	o.mu.Lock()
	o.processes = procs
	o.system = sys
	o.mu.Unlock()

	o.subMu.Lock()
	procSubs := append([]ProcessSubscriber(nil), o.procSubs...)
	sysSubs := append([]SystemSubscriber(nil), o.systemSubs...)
	o.subMu.Unlock()
	for _, cb := range procSubs {
		cb(procs)
	}
	for _, cb := range sysSubs {
		cb(sys)
	}

	require.Equal(t, procs, gotProcs)
	require.Equal(t, sys, gotSys)
}

func TestFailureSubscriberReceivesFatalError(t *testing.T) {
	o := New(0, nil)
	var got error
	o.SubscribeFailure(func(err error) { got = err })

	o.publishFailure(errFake)
	require.Equal(t, errFake, got)
}

func TestMarkStoppedAllowsRestart(t *testing.T) {
	o := New(0, nil)
	o.mu.Lock()
	o.started = true
	o.mu.Unlock()

	o.markStopped()

	o.mu.RLock()
	started := o.started
	o.mu.RUnlock()
	require.False(t, started)
}

var errFake = fakeErr("observer: host state read failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
