package control

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

type fakeAutoSource struct {
	procs []model.ProcessSnapshot
	sys   model.SystemSnapshot
}

func (s fakeAutoSource) GetProcesses() []model.ProcessSnapshot { return s.procs }
func (s fakeAutoSource) GetSystem() model.SystemSnapshot       { return s.sys }

func TestStartAutoManageIsIdempotent(t *testing.T) {
	c := New(nil)
	src := fakeAutoSource{}
	c.StartAutoManage(src, DefaultAutoManageConfig())
	first := c.auto
	c.StartAutoManage(src, DefaultAutoManageConfig())
	require.Same(t, first, c.auto)
	c.StopAutoManage()
	require.Nil(t, c.auto)
}

func TestCycleEnforcesPerPIDMemoryLimit(t *testing.T) {
	c := New(nil)
	self := os.Getpid()
	c.entry(self, "fake-self")
	c.mu.Lock()
	c.managed[self].MemoryLimitKB = 10
	c.mu.Unlock()

	am := &autoManager{
		c:      c,
		source: fakeAutoSource{procs: []model.ProcessSnapshot{{PID: self, Name: "fake-self", RSSKB: 1000}}},
		cfg:    DefaultAutoManageConfig(),
	}
	am.cycle()

	defer func() { _ = c.SetNice(self, "fake-self", 0) }()
	nice := c.entry(self, "fake-self").CurrentNice
	require.Equal(t, 19, nice)
}

func TestEnforcePublishesResourceLimitExceeded(t *testing.T) {
	c := New(nil)
	self := os.Getpid()
	c.entry(self, "fake-self")

	var got model.ResourceLimitExceeded
	am := &autoManager{c: c, source: fakeAutoSource{}, cfg: DefaultAutoManageConfig()}
	am.limitSubs = append(am.limitSubs, func(ev model.ResourceLimitExceeded) { got = ev })

	am.enforce(self, "fake-self", "memory", 10, 1000)
	defer func() { _ = c.SetNice(self, "fake-self", 0) }()

	require.Equal(t, "memory", got.Kind)
	require.Equal(t, self, got.PID)
	require.Equal(t, float64(1000), got.Observed)
}

func TestCyclePublishesSystemThresholdExceeded(t *testing.T) {
	c := New(nil)
	var got model.SystemThresholdExceeded
	c.SubscribeThreshold(func(ev model.SystemThresholdExceeded) { got = ev })

	cfg := DefaultAutoManageConfig()
	c.StartAutoManage(fakeAutoSource{}, cfg)
	defer c.StopAutoManage()

	am := c.auto
	am.cycle()
	am.publish(model.SystemThresholdExceeded{Kind: "cpu", Threshold: 90, Observed: 95, Timestamp: time.Now()})
	require.Equal(t, "cpu", got.Kind)
}

func TestCycleDropsVanishedManagedProcess(t *testing.T) {
	c := New(nil)
	ghost := 1 << 30
	c.entry(ghost, "ghost")
	require.Len(t, c.ManagedSnapshot(), 1)

	am := &autoManager{c: c, source: fakeAutoSource{}, cfg: DefaultAutoManageConfig()}
	am.cycle()

	require.Empty(t, c.ManagedSnapshot())
}

func TestEmergencyKillMemoryHogsRespectsFiveLimit(t *testing.T) {
	c := New(nil)
	var procs []model.ProcessSnapshot
	for i := 0; i < 8; i++ {
		procs = append(procs, model.ProcessSnapshot{PID: 1 << 30, Name: "ghost", RSSKB: uint64(1000 + i)})
	}
	killed := c.EmergencyKillMemoryHogs(fakeAutoSource{procs: procs}, 500)
	require.LessOrEqual(t, killed, 5)
}
