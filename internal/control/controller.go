// Package control implements the ProcessController: host process
// operations (signal, priority, affinity, resource-group) wrapped by a
// permission + criticality guard.
package control

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
	"golang.org/x/sys/unix"
)

// Errors returned by guarded operations. Callers can errors.Is against
// these to distinguish guard violations from host failures.
var (
	ErrGuardCritical    = errors.New("control: pid is guarded as critical")
	ErrPermissionDenied = errors.New("control: permission denied by host")
	ErrNotManaged       = errors.New("control: pid is not managed")
)

// ActionCallback receives a ProcessActionResult after every operation,
// success or failure.
type ActionCallback func(model.ProcessActionResult)

// defaultCriticalPrefixes seeds the guard with host-init processes,
// display/session managers, and kernel threads. Extensible at runtime
// via AddCritical.
var defaultCriticalPrefixes = []string{
	"init", "systemd", "kthreadd", "kworker", "ksoftirqd", "migration",
	"rcu_", "watchdog", "Xorg", "wayland", "dbus", "dbus-daemon",
	"NetworkManager", "sshd", "launchd", "logind",
}

// Controller wraps host process-control primitives behind a permission
// and criticality guard. The zero value is not usable; construct with
// New.
type Controller struct {
	log *slog.Logger

	mu       sync.Mutex
	managed  map[int]*model.ManagedProcess
	critical map[string]struct{}

	subMu sync.Mutex
	subs  []ActionCallback

	gracePeriod time.Duration

	autoMu sync.Mutex
	auto   *autoManager

	thresholdSubs []ThresholdCallback
}

// New constructs a Controller with the default critical-process seed
// list.
func New(log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	crit := make(map[string]struct{}, len(defaultCriticalPrefixes))
	for _, p := range defaultCriticalPrefixes {
		crit[strings.ToLower(p)] = struct{}{}
	}
	return &Controller{
		log:         log.With("component", "control"),
		managed:     make(map[int]*model.ManagedProcess),
		critical:    crit,
		gracePeriod: 3 * time.Second,
	}
}

// AddCritical extends the criticality guard at runtime (§4.2: "seeded
// from a fixed list ... extensible at runtime").
func (c *Controller) AddCritical(namePrefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.critical[strings.ToLower(namePrefix)] = struct{}{}
}

// Subscribe registers a callback invoked after every operation.
func (c *Controller) Subscribe(cb ActionCallback) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subs = append(c.subs, cb)
}

func (c *Controller) publish(res model.ProcessActionResult) {
	c.subMu.Lock()
	subs := append([]ActionCallback(nil), c.subs...)
	c.subMu.Unlock()
	for _, cb := range subs {
		cb(res)
	}
}

// isCritical reports whether name matches a critical prefix.
func (c *Controller) isCritical(name string) bool {
	lower := strings.ToLower(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	for prefix := range c.critical {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// permitted probes the host for permission via a null signal (signal 0).
func permitted(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// guard enforces both the permission probe and the criticality check
// before any operation runs. It never makes a host call when it
// returns a non-nil error.
func (c *Controller) guard(pid int, name string) error {
	c.mu.Lock()
	m, ok := c.managed[pid]
	criticalCategory := ok && m.Category == model.CategoryCritical
	c.mu.Unlock()
	if criticalCategory || c.isCritical(name) {
		return ErrGuardCritical
	}
	if !permitted(pid) {
		return ErrPermissionDenied
	}
	return nil
}

func (c *Controller) record(action string, pid int, err error) {
	res := model.ProcessActionResult{
		PID:       pid,
		Action:    action,
		Success:   err == nil,
		Timestamp: time.Now(),
	}
	if err != nil {
		res.Reason = err.Error()
	}
	c.publish(res)
	if err != nil {
		c.log.Warn("process action failed", "action", action, "pid", pid, "error", err)
	}
}

func (c *Controller) entry(pid int, name string) *model.ManagedProcess {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.managed[pid]
	if !ok {
		nice, _ := unix.Getpriority(unix.PRIO_PROCESS, pid)
		m = &model.ManagedProcess{
			PID:           pid,
			Name:          name,
			Category:      model.CategoryUser,
			OriginalNice:  20 - nice, // getpriority returns (20 - nice) on Linux
			CurrentNice:   20 - nice,
			OriginalState: model.RunStateRunning,
			CurrentState:  model.RunStateRunning,
			CPULimitPct:   100,
			LastActionAt:  time.Now(),
		}
		c.managed[pid] = m
	}
	return m
}

// Terminate sends a graceful termination signal, then force-kills if
// the process is still alive after a short grace period.
func (c *Controller) Terminate(pid int, name string) error {
	if err := c.guard(pid, name); err != nil {
		c.record("terminate", pid, err)
		return err
	}
	m := c.entry(pid, name)

	err := unix.Kill(pid, unix.SIGTERM)
	if err == nil {
		time.Sleep(c.gracePeriod)
		if permitted(pid) {
			err = unix.Kill(pid, unix.SIGKILL)
		}
	}
	if err == nil && permitted(pid) {
		err = fmt.Errorf("control: pid %d still alive after termination", pid)
	}

	c.mu.Lock()
	if err == nil {
		m.CurrentState = model.RunStateTerminated
		m.LastActionAt = time.Now()
	}
	c.mu.Unlock()

	c.record("terminate", pid, err)
	return err
}

// Pause sends a stop signal and marks the process Suspended.
func (c *Controller) Pause(pid int, name string) error {
	if err := c.guard(pid, name); err != nil {
		c.record("pause", pid, err)
		return err
	}
	m := c.entry(pid, name)
	err := unix.Kill(pid, unix.SIGSTOP)
	if err == nil {
		c.mu.Lock()
		m.CurrentState = model.RunStateSuspended
		m.LastActionAt = time.Now()
		c.mu.Unlock()
	}
	c.record("pause", pid, err)
	return err
}

// Resume sends a continue signal and marks the process Running. This
// is the public operation that mutates ManagedProcess.CurrentState; it
// is distinct from the internal host action it issues.
func (c *Controller) Resume(pid int, name string) error {
	if err := c.guard(pid, name); err != nil {
		c.record("resume", pid, err)
		return err
	}
	m := c.entry(pid, name)
	err := c.resumeHost(pid)
	if err == nil {
		c.mu.Lock()
		m.CurrentState = model.RunStateRunning
		m.LastActionAt = time.Now()
		c.mu.Unlock()
	}
	c.record("resume", pid, err)
	return err
}

// resumeHost issues the SIGCONT host action only; it does not touch
// ManagedProcess state.
func (c *Controller) resumeHost(pid int) error {
	return unix.Kill(pid, unix.SIGCONT)
}

// SetNice clamps n to [-20, 19] and applies it via the host's priority
// primitive.
func (c *Controller) SetNice(pid int, name string, n int) error {
	if err := c.guard(pid, name); err != nil {
		c.record("set_nice", pid, err)
		return err
	}
	n = clampNice(n)
	m := c.entry(pid, name)
	err := unix.Setpriority(unix.PRIO_PROCESS, pid, n)
	if err == nil {
		c.mu.Lock()
		m.CurrentNice = n
		m.LastActionAt = time.Now()
		c.mu.Unlock()
	}
	c.record("set_nice", pid, err)
	return err
}

// SetAffinity binds pid to the given set of logical cores.
func (c *Controller) SetAffinity(pid int, name string, cores []int) error {
	if err := c.guard(pid, name); err != nil {
		c.record("set_affinity", pid, err)
		return err
	}
	var set unix.CPUSet
	set.Zero()
	for _, core := range cores {
		set.Set(core)
	}
	err := unix.SchedSetaffinity(pid, &set)
	c.record("set_affinity", pid, err)
	return err
}

// ResourceGroupConfig describes the CPU share / memory ceiling to
// assign via a resource group.
type ResourceGroupConfig struct {
	GroupPath    string // e.g. /sys/fs/cgroup/cpu/smart_scheduler
	CPUShares    int
	MemoryLimitB int64
}

// AssignGroup writes pid into a shared resource group with the given
// CPU shares / memory limit.
func (c *Controller) AssignGroup(pid int, name string, cfg ResourceGroupConfig) error {
	if err := c.guard(pid, name); err != nil {
		c.record("assign_group", pid, err)
		return err
	}
	err := writeCgroupFiles(cfg, pid)
	c.record("assign_group", pid, err)
	return err
}

func writeCgroupFiles(cfg ResourceGroupConfig, pid int) error {
	if cfg.GroupPath == "" {
		return fmt.Errorf("control: empty resource group path")
	}
	if cfg.CPUShares > 0 {
		if err := os.WriteFile(cfg.GroupPath+"/cpu.shares", []byte(fmt.Sprintf("%d", cfg.CPUShares)), 0644); err != nil {
			return fmt.Errorf("write cpu.shares: %w", err)
		}
	}
	if cfg.MemoryLimitB > 0 {
		if err := os.WriteFile(cfg.GroupPath+"/memory.limit_in_bytes", []byte(fmt.Sprintf("%d", cfg.MemoryLimitB)), 0644); err != nil {
			return fmt.Errorf("write memory.limit_in_bytes: %w", err)
		}
	}
	if err := os.WriteFile(cfg.GroupPath+"/tasks", []byte(fmt.Sprintf("%d", pid)), 0644); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

// RestoreAll resumes every Suspended ManagedProcess and restores its
// original nice. Best-effort; dead pids are skipped silently; never
// returns an error.
func (c *Controller) RestoreAll() {
	c.mu.Lock()
	snapshot := make([]*model.ManagedProcess, 0, len(c.managed))
	for _, m := range c.managed {
		snapshot = append(snapshot, m)
	}
	c.mu.Unlock()

	for _, m := range snapshot {
		if !permitted(m.PID) {
			continue
		}
		if m.CurrentState == model.RunStateSuspended {
			_ = c.resumeHost(m.PID)
		}
		_ = unix.Setpriority(unix.PRIO_PROCESS, m.PID, m.OriginalNice)
		c.mu.Lock()
		m.CurrentState = model.RunStateRunning
		m.CurrentNice = m.OriginalNice
		c.mu.Unlock()
	}
}

// ReconcileVanished restores and drops every managed process whose pid
// is absent from live. Restoration is best-effort and only attempted
// while the pid is still alive on the host; the entry is dropped
// either way, matching ManagedProcess's documented lifecycle: created
// on first intervention, removed once the pid vanishes after a
// best-effort restoration attempt.
func (c *Controller) ReconcileVanished(live map[int]struct{}) {
	c.mu.Lock()
	var vanished []*model.ManagedProcess
	for pid, m := range c.managed {
		if _, ok := live[pid]; !ok {
			vanished = append(vanished, m)
		}
	}
	c.mu.Unlock()

	for _, m := range vanished {
		if permitted(m.PID) {
			if m.CurrentState == model.RunStateSuspended {
				_ = c.resumeHost(m.PID)
			}
			_ = unix.Setpriority(unix.PRIO_PROCESS, m.PID, m.OriginalNice)
		}
		c.mu.Lock()
		delete(c.managed, m.PID)
		c.mu.Unlock()
	}
}

// ManagedSnapshot returns a copy of every currently managed process.
func (c *Controller) ManagedSnapshot() []model.ManagedProcess {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ManagedProcess, 0, len(c.managed))
	for _, m := range c.managed {
		out = append(out, *m)
	}
	return out
}

// SetCategory sets the category of a managed process, creating its
// entry if needed.
func (c *Controller) SetCategory(pid int, name string, category model.ManagedCategory) {
	m := c.entry(pid, name)
	c.mu.Lock()
	m.Category = category
	c.mu.Unlock()
}

func clampNice(n int) int {
	if n < -20 {
		return -20
	}
	if n > 19 {
		return 19
	}
	return n
}
