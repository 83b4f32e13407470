// Package memory implements the MemoryController: pressure
// classification and escalating mitigation over system memory state.
package memory

import (
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/control"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// Thresholds holds the pressure-classification boundaries (§4.3).
type Thresholds struct {
	LowThreshold      float64
	CriticalThreshold float64
}

// DefaultThresholds matches the spec's stated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{LowThreshold: 70, CriticalThreshold: 90}
}

// PressureCallback receives the pressure level computed on every scan
// cycle, whether or not it changed since the previous cycle.
type PressureCallback func(model.PressureLevel, model.SystemSnapshot)

// MitigationCallback is invoked every time a mitigation action runs,
// naming the kind of action taken ("cache_drop", "compaction",
// "optimize", "kill").
type MitigationCallback func(kind string)

// SnapshotSource is the minimal Observer view the MemoryController
// needs. Defined locally to avoid an import cycle.
type SnapshotSource interface {
	GetProcesses() []model.ProcessSnapshot
	GetSystem() model.SystemSnapshot
}

// Controller classifies memory pressure and executes mitigation.
type Controller struct {
	log        *slog.Logger
	source     SnapshotSource
	processCtl *control.Controller

	thresholds   Thresholds
	strategy     model.MemoryStrategy
	autoOptimize bool
	minFreeKB    uint64

	mu          sync.Mutex
	memoryTrend map[int]float64

	subMu          sync.Mutex
	subs           []PressureCallback
	mitigationSubs []MitigationCallback

	period time.Duration
	stop   chan struct{}
	done   chan struct{}
	active bool
	runMu  sync.Mutex
}

// New constructs a MemoryController.
func New(source SnapshotSource, processCtl *control.Controller, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		log:          log.With("component", "memory"),
		source:       source,
		processCtl:   processCtl,
		thresholds:   DefaultThresholds(),
		strategy:     model.StrategyBalanced,
		autoOptimize: true,
		minFreeKB:    512 * 1024,
		memoryTrend:  make(map[int]float64),
		period:       5 * time.Second,
	}
}

// SetThresholds overrides the pressure-classification boundaries.
func (c *Controller) SetThresholds(t Thresholds) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.thresholds = t
}

// SetStrategy selects the strategy used by OptimizeSystemMemory.
func (c *Controller) SetStrategy(s model.MemoryStrategy) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.strategy = s
}

// SetAutoOptimize toggles whether pressure handlers run automatically
// during the background scan.
func (c *Controller) SetAutoOptimize(on bool) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.autoOptimize = on
}

// SetMinimumFreeKB sets the Critical-pressure deficit target.
func (c *Controller) SetMinimumFreeKB(kb uint64) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.minFreeKB = kb
}

// RegisterPressureCallback registers a callback invoked whenever the
// background scan computes a pressure level.
func (c *Controller) RegisterPressureCallback(cb PressureCallback) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs = append(c.subs, cb)
}

// RegisterMitigationCallback registers a callback invoked every time a
// mitigation action runs.
func (c *Controller) RegisterMitigationCallback(cb MitigationCallback) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.mitigationSubs = append(c.mitigationSubs, cb)
}

func (c *Controller) publishMitigation(kind string) {
	c.subMu.Lock()
	subs := append([]MitigationCallback(nil), c.mitigationSubs...)
	c.subMu.Unlock()
	for _, cb := range subs {
		cb(kind)
	}
}

// Start begins the background pressure-scan worker. Idempotent.
func (c *Controller) Start() {
	c.runMu.Lock()
	if c.active {
		c.runMu.Unlock()
		return
	}
	c.active = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.runMu.Unlock()
	go c.run()
}

// Stop halts the background worker. Idempotent.
func (c *Controller) Stop() {
	c.runMu.Lock()
	if !c.active {
		c.runMu.Unlock()
		return
	}
	c.active = false
	stop, done := c.stop, c.done
	c.runMu.Unlock()
	close(stop)
	<-done
}

func (c *Controller) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.scanCycle()
		}
	}
}

func (c *Controller) scanCycle() {
	sys := c.source.GetSystem()
	level := c.Pressure()

	c.subMu.Lock()
	subs := append([]PressureCallback(nil), c.subs...)
	c.subMu.Unlock()
	for _, cb := range subs {
		cb(level, sys)
	}

	c.runMu.Lock()
	auto := c.autoOptimize
	c.runMu.Unlock()
	if !auto || level == model.PressureLow {
		return
	}
	c.handlePressure(level, sys)
}

// Pressure classifies the current system memory scarcity.
func (c *Controller) Pressure() model.PressureLevel {
	used := c.source.GetSystem().UsedPct()
	return c.classify(used)
}

func (c *Controller) classify(usedPct float64) model.PressureLevel {
	c.runMu.Lock()
	t := c.thresholds
	c.runMu.Unlock()

	highThreshold := (t.LowThreshold + t.CriticalThreshold) / 2
	switch {
	case usedPct >= t.CriticalThreshold:
		return model.PressureCritical
	case usedPct >= highThreshold:
		return model.PressureHigh
	case usedPct >= t.LowThreshold:
		return model.PressureMedium
	default:
		return model.PressureLow
	}
}

// SystemInfo returns the latest system snapshot.
func (c *Controller) SystemInfo() model.SystemSnapshot {
	return c.source.GetSystem()
}

// ProcessInfo returns a single process's snapshot, if present.
func (c *Controller) ProcessInfo(pid int) (model.ProcessSnapshot, bool) {
	for _, p := range c.source.GetProcesses() {
		if p.PID == pid {
			return p, true
		}
	}
	return model.ProcessSnapshot{}, false
}

// TopMemory returns the n processes with highest RSS, ties by pid asc.
func (c *Controller) TopMemory(n int) []model.ProcessSnapshot {
	procs := c.source.GetProcesses()
	sort.Slice(procs, func(i, j int) bool {
		if procs[i].RSSKB != procs[j].RSSKB {
			return procs[i].RSSKB > procs[j].RSSKB
		}
		return procs[i].PID < procs[j].PID
	})
	if n < len(procs) {
		procs = procs[:n]
	}
	return procs
}

// IdentifyMemoryHogs is an alias for TopMemory, named per the external
// operation surface (§4.3).
func (c *Controller) IdentifyMemoryHogs(n int) []model.ProcessSnapshot {
	return c.TopMemory(n)
}

func (c *Controller) handlePressure(level model.PressureLevel, sys model.SystemSnapshot) {
	switch level {
	case model.PressureMedium:
		c.ClearPageCache()
	case model.PressureHigh:
		c.ClearAllCaches()
		c.optimizeTopHogs(5)
	case model.PressureCritical:
		c.ClearAllCaches()
		c.Compact()
		if sys.MemAvailKB < c.minimumFreeKB() {
			c.killHogsUntilDeficitMet(sys)
		}
	}
}

func (c *Controller) minimumFreeKB() uint64 {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.minFreeKB
}

// optimizeTopHogs lowers the priority (nice) of the top n memory
// consumers. This is a soft action: it never kills.
func (c *Controller) optimizeTopHogs(n int) {
	for _, p := range c.TopMemory(n) {
		c.optimizeOne(p)
	}
	c.publishMitigation("optimize")
}

func (c *Controller) optimizeOne(p model.ProcessSnapshot) {
	c.mu.Lock()
	trend := c.memoryTrend[p.PID]*0.8 + float64(p.RSSKB)*0.2
	c.memoryTrend[p.PID] = trend
	c.mu.Unlock()

	if c.processCtl != nil {
		_ = c.processCtl.SetNice(p.PID, p.Name, 19)
	}
}

// OptimizeProcessMemory is the explicit per-pid soft action named in
// §4.3: it lowers nice, it does not kill.
func (c *Controller) OptimizeProcessMemory(pid int) {
	p, ok := c.ProcessInfo(pid)
	if !ok {
		return
	}
	c.optimizeOne(p)
}

func (c *Controller) killHogsUntilDeficitMet(sys model.SystemSnapshot) {
	deficit := c.minimumFreeKB() - sys.MemAvailKB
	hogs := c.TopMemory(5)
	var freed uint64
	for _, p := range hogs {
		if freed >= deficit {
			return
		}
		if c.processCtl == nil {
			return
		}
		if err := c.processCtl.Terminate(p.PID, p.Name); err == nil {
			freed += p.RSSKB
			c.publishMitigation("kill")
		}
	}
}

// OptimizeSystemMemory runs the explicit, strategy-selected
// optimization pass (§4.3), distinct from the automatic pressure
// handlers run by the background scan.
func (c *Controller) OptimizeSystemMemory() {
	used := c.source.GetSystem().UsedPct()
	c.runMu.Lock()
	strategy := c.strategy
	c.runMu.Unlock()

	switch strategy {
	case model.StrategyConservative:
		if used > 85 {
			c.ClearPageCache()
		}
	case model.StrategyBalanced:
		if used > 75 {
			c.ClearPageCache()
			c.optimizeTopHogs(3)
		}
	case model.StrategyAggressive:
		c.ClearAllCaches()
		c.Compact()
		c.optimizeTopHogs(5)
	}
}

// ClearPageCache drops the page cache only (drop_caches=1). Cache-drop
// requires elevated privileges; absence is a non-fatal soft-fail.
func (c *Controller) ClearPageCache() bool {
	ok := c.writeSysctl("/proc/sys/vm/drop_caches", "1")
	c.publishMitigation("cache_drop")
	return ok
}

// ClearAllCaches drops all caches (drop_caches=3).
func (c *Controller) ClearAllCaches() bool {
	ok := c.writeSysctl("/proc/sys/vm/drop_caches", "3")
	c.publishMitigation("cache_drop")
	return ok
}

// Compact requests memory compaction.
func (c *Controller) Compact() bool {
	ok := c.writeSysctl("/proc/sys/vm/compact_memory", "1")
	c.publishMitigation("compaction")
	return ok
}

func (c *Controller) writeSysctl(path, value string) bool {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		c.log.Debug("sysctl write failed, soft-fail", "path", path, "error", err)
		return false
	}
	return true
}

// EmergencyCleanup drops all caches, compacts, and terminates memory
// hogs regardless of the current pressure level.
func (c *Controller) EmergencyCleanup() {
	c.ClearAllCaches()
	c.Compact()
	sys := c.source.GetSystem()
	c.killHogsUntilDeficitMet(sys)
}
