package control

import (
	"sort"
	"sync"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// SnapshotSource is the minimal view of the Observer the auto-management
// loop needs. Defined locally to avoid an import cycle between
// control and observer.
type SnapshotSource interface {
	GetProcesses() []model.ProcessSnapshot
	GetSystem() model.SystemSnapshot
}

// AutoManageConfig configures the §4.2 auto-management loop.
type AutoManageConfig struct {
	Period                   time.Duration
	SystemCPUThresholdPct    float64
	SystemMemThresholdPct    float64
	MemoryWarningThresholdKB uint64
}

// DefaultAutoManageConfig matches the spec's stated defaults.
func DefaultAutoManageConfig() AutoManageConfig {
	return AutoManageConfig{
		Period:                   2 * time.Second,
		SystemCPUThresholdPct:    90,
		SystemMemThresholdPct:    90,
		MemoryWarningThresholdKB: 500 * 1024,
	}
}

// ThresholdCallback receives SystemThresholdExceeded events.
type ThresholdCallback func(model.SystemThresholdExceeded)

// ResourceLimitCallback receives ResourceLimitExceeded events, emitted
// when a per-pid ManagedProcess crosses its own memory or CPU limit.
type ResourceLimitCallback func(model.ResourceLimitExceeded)

type autoManager struct {
	c      *Controller
	source SnapshotSource
	cfg    AutoManageConfig

	mu        sync.Mutex
	subs      []ThresholdCallback
	limitSubs []ResourceLimitCallback
	stop      chan struct{}
	done      chan struct{}
}

// StartAutoManage begins the §4.2 auto-management loop: per-pid limit
// enforcement plus system-wide threshold monitoring and emergency
// memory-hog termination. Idempotent.
func (c *Controller) StartAutoManage(source SnapshotSource, cfg AutoManageConfig) {
	c.autoMu.Lock()
	defer c.autoMu.Unlock()
	if c.auto != nil {
		return
	}
	am := &autoManager{c: c, source: source, cfg: cfg, stop: make(chan struct{}), done: make(chan struct{})}
	am.subs = append([]ThresholdCallback(nil), c.thresholdSubs...)
	c.auto = am
	go am.run()
}

// StopAutoManage stops the auto-management loop. Idempotent.
func (c *Controller) StopAutoManage() {
	c.autoMu.Lock()
	am := c.auto
	c.auto = nil
	c.autoMu.Unlock()
	if am == nil {
		return
	}
	close(am.stop)
	<-am.done
}

// SubscribeThreshold registers a callback for SystemThresholdExceeded
// events. Must be called before StartAutoManage to guarantee delivery
// from the first cycle, though it is safe to call at any time.
func (c *Controller) SubscribeThreshold(cb ThresholdCallback) {
	c.autoMu.Lock()
	c.thresholdSubs = append(c.thresholdSubs, cb)
	am := c.auto
	c.autoMu.Unlock()
	if am == nil {
		return
	}
	am.mu.Lock()
	am.subs = append(am.subs, cb)
	am.mu.Unlock()
}

// SubscribeResourceLimit registers a callback for ResourceLimitExceeded
// events, emitted each time the auto-management loop nices down a
// ManagedProcess that crossed its own memory or CPU limit.
func (c *Controller) SubscribeResourceLimit(cb ResourceLimitCallback) {
	c.autoMu.Lock()
	am := c.auto
	c.autoMu.Unlock()
	if am == nil {
		return
	}
	am.mu.Lock()
	am.limitSubs = append(am.limitSubs, cb)
	am.mu.Unlock()
}

func (am *autoManager) run() {
	defer close(am.done)
	ticker := time.NewTicker(am.cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-am.stop:
			return
		case <-ticker.C:
			am.cycle()
		}
	}
}

func (am *autoManager) cycle() {
	procsByPID := make(map[int]model.ProcessSnapshot)
	for _, p := range am.source.GetProcesses() {
		procsByPID[p.PID] = p
	}

	live := make(map[int]struct{}, len(procsByPID))
	for pid := range procsByPID {
		live[pid] = struct{}{}
	}
	am.c.ReconcileVanished(live)

	for _, m := range am.c.ManagedSnapshot() {
		p, ok := procsByPID[m.PID]
		if !ok {
			continue
		}
		if m.MemoryLimitKB > 0 && p.RSSKB > m.MemoryLimitKB {
			am.enforce(m.PID, m.Name, "memory", float64(m.MemoryLimitKB), float64(p.RSSKB))
		}
		if m.CPULimitPct < 100 && p.CPUPct > m.CPULimitPct {
			am.enforce(m.PID, m.Name, "cpu", m.CPULimitPct, p.CPUPct)
		}
	}

	sys := am.source.GetSystem()
	if sys.CPUTotalPct > am.cfg.SystemCPUThresholdPct {
		am.publish(model.SystemThresholdExceeded{
			Kind: "cpu", Threshold: am.cfg.SystemCPUThresholdPct, Observed: sys.CPUTotalPct, Timestamp: time.Now(),
		})
	}
	if used := sys.UsedPct(); used > am.cfg.SystemMemThresholdPct {
		am.publish(model.SystemThresholdExceeded{
			Kind: "memory", Threshold: am.cfg.SystemMemThresholdPct, Observed: used, Timestamp: time.Now(),
		})
		am.c.EmergencyKillMemoryHogs(am.source, am.cfg.MemoryWarningThresholdKB)
	}
}

func (am *autoManager) enforce(pid int, name, kind string, limit, observed float64) {
	_ = am.c.SetNice(pid, name, 19)
	am.publishLimit(model.ResourceLimitExceeded{
		PID: pid, Name: name, Kind: kind, Limit: limit, Observed: observed, Timestamp: time.Now(),
	})
}

func (am *autoManager) publish(ev model.SystemThresholdExceeded) {
	am.mu.Lock()
	subs := append([]ThresholdCallback(nil), am.subs...)
	am.mu.Unlock()
	for _, cb := range subs {
		cb(ev)
	}
}

func (am *autoManager) publishLimit(ev model.ResourceLimitExceeded) {
	am.mu.Lock()
	subs := append([]ResourceLimitCallback(nil), am.limitSubs...)
	am.mu.Unlock()
	for _, cb := range subs {
		cb(ev)
	}
}

// EmergencyKillMemoryHogs terminates up to 5 non-critical processes
// with RSS above thresholdKB, in descending RSS order. System memory is
// not re-checked between kills: candidates are tried until 5 have been
// terminated or none remains, whether or not pressure has abated.
// Critical processes are protected by the ordinary guard in Terminate.
func (c *Controller) EmergencyKillMemoryHogs(source SnapshotSource, thresholdKB uint64) int {
	procs := source.GetProcesses()
	var hogs []model.ProcessSnapshot
	for _, p := range procs {
		if p.RSSKB > thresholdKB {
			hogs = append(hogs, p)
		}
	}
	sort.Slice(hogs, func(i, j int) bool { return hogs[i].RSSKB > hogs[j].RSSKB })

	killed := 0
	for _, p := range hogs {
		if killed >= 5 {
			break
		}
		if err := c.Terminate(p.PID, p.Name); err == nil {
			killed++
		}
	}
	return killed
}
