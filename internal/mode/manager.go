// Package mode implements the ModeManager: a state machine that
// composes a target configuration across the Scheduler, the
// MemoryController, and the ProcessController, with transactional
// backup/restore and optional auto-detection.
package mode

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Taragi14/smart-resource-scheduler/internal/control"
	"github.com/Taragi14/smart-resource-scheduler/internal/memory"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
	"github.com/Taragi14/smart-resource-scheduler/internal/scheduler"
)

// ErrSwitchInProgress is returned when a switch is already in flight.
var ErrSwitchInProgress = errors.New("mode: a switch is already in progress")

// ErrSameMode is returned when switching to the currently active mode.
var ErrSameMode = errors.New("mode: target mode is already active")

// SnapshotSource is the minimal Observer view ModeManager needs for
// auto-detection. Defined locally to avoid an import cycle.
type SnapshotSource interface {
	GetProcesses() []model.ProcessSnapshot
	GetSystem() model.SystemSnapshot
	GetProcessesByName(substr string) []model.ProcessSnapshot
}

// SwitchCallback is invoked after every switch attempt, successful or
// not.
type SwitchCallback func(model.ModeSwitchResult)

// Manager composes Scheduler, MemoryController, and ProcessController
// configuration into named modes and switches between them
// transactionally.
type Manager struct {
	log        *slog.Logger
	sched      *scheduler.Scheduler
	memCtl     *memory.Controller
	processCtl *control.Controller
	hostsys    *control.HostSys
	source     SnapshotSource

	mu       sync.Mutex
	modes    map[model.Mode]model.ModeConfig
	active   model.Mode
	previous model.Mode

	switching atomic.Bool

	transitionDelay   time.Duration
	smoothTransitions bool

	subMu sync.Mutex
	subs  []SwitchCallback

	auto      *autoDetector
	quickStop chan struct{}
}

// New constructs a Manager with the compiled-in mode defaults, active
// mode Balanced.
func New(sched *scheduler.Scheduler, memCtl *memory.Controller, processCtl *control.Controller, source SnapshotSource, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:               log.With("component", "mode"),
		sched:             sched,
		memCtl:            memCtl,
		processCtl:        processCtl,
		hostsys:           control.NewHostSys(),
		source:            source,
		modes:             defaultModeTable(),
		active:            model.ModeBalanced,
		transitionDelay:   2 * time.Second,
		smoothTransitions: true,
	}
}

// SetModeOverride merges a JSON-decoded override onto the compiled-in
// default for that mode (§6 "per-mode configuration ... overridden by
// a JSON-shaped map").
func (m *Manager) SetModeOverride(target model.Mode, override model.ModeConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.modes[target]
	merged := mergeOverride(base, override)
	m.modes[target] = merged
}

// SetTransitionDelay overrides the sleep before applying a switch.
func (m *Manager) SetTransitionDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionDelay = d
}

// SetSmoothTransitions toggles whether Switch sleeps transitionDelay.
func (m *Manager) SetSmoothTransitions(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smoothTransitions = on
}

// ActiveMode returns the currently active mode.
func (m *Manager) ActiveMode() model.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// PreviousMode returns the mode active before the most recent
// successful switch.
func (m *Manager) PreviousMode() model.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// Subscribe registers a callback invoked after every switch attempt.
func (m *Manager) Subscribe(cb SwitchCallback) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subs = append(m.subs, cb)
}

func (m *Manager) publish(res model.ModeSwitchResult) {
	m.subMu.Lock()
	subs := append([]SwitchCallback(nil), m.subs...)
	m.subMu.Unlock()
	for _, cb := range subs {
		cb(res)
	}
}

// Switch applies target transactionally across Scheduler,
// MemoryController, ProcessController, and host hardware. On any
// failure during application, restore rolls back the scheduler
// algorithm, CPU governor, and per-process nice and run state, and
// active_mode is left unchanged (§4.5). The tick interval, boosting
// flags, and memory strategy already applied are not rolled back.
func (m *Manager) Switch(target model.Mode) error {
	m.mu.Lock()
	current := m.active
	cfg, known := m.modes[target]
	m.mu.Unlock()

	if !known {
		return fmt.Errorf("mode: unknown mode %v", target)
	}
	if current == target {
		return ErrSameMode
	}
	if !m.switching.CompareAndSwap(false, true) {
		return ErrSwitchInProgress
	}
	defer m.switching.Store(false)

	backup := m.buildBackup(current)

	m.mu.Lock()
	smooth := m.smoothTransitions
	delay := m.transitionDelay
	m.mu.Unlock()
	if smooth {
		time.Sleep(delay)
	}

	if err := m.apply(cfg); err != nil {
		m.restore(backup)
		m.log.Warn("mode switch failed, restored prior state", "target", target, "error", err)
		m.publish(model.ModeSwitchResult{
			BackupID: backup.ID, From: current, To: target, Success: false, Reason: err.Error(), Timestamp: time.Now(),
		})
		return err
	}

	m.mu.Lock()
	m.previous = m.active
	m.active = target
	m.mu.Unlock()

	m.publish(model.ModeSwitchResult{
		BackupID: backup.ID, From: current, To: target, Success: true, Timestamp: time.Now(),
	})
	return nil
}

func (m *Manager) buildBackup(current model.Mode) model.StateBackup {
	governor, _ := m.hostsys.Governor()
	backup := model.StateBackup{
		ID:             uuid.NewString(),
		TakenAt:        time.Now(),
		PriorMode:      current,
		PriorAlgorithm: m.sched.AlgorithmActive(),
		PriorGovernor:  governor,
		ProcessNice:    make(map[int]int),
		ProcessState:   make(map[int]model.RunState),
	}
	for _, mp := range m.processCtl.ManagedSnapshot() {
		backup.ProcessNice[mp.PID] = mp.CurrentNice
		backup.ProcessState[mp.PID] = mp.CurrentState
	}
	return backup
}

func (m *Manager) apply(cfg model.ModeConfig) error {
	m.sched.SetAlgorithm(cfg.Algorithm)
	m.sched.SetTickInterval(time.Duration(cfg.TimeSliceMs) * time.Millisecond)
	m.sched.SetPriorityBoosting(cfg.PriorityBoosting)
	m.sched.SetAdaptiveScheduling(cfg.AdaptiveScheduling)

	m.memCtl.SetStrategy(cfg.MemoryStrategy)
	m.memCtl.SetAutoOptimize(true)

	for _, tok := range cfg.HighPriorityNameTokens {
		for _, p := range m.source.GetProcessesByName(tok) {
			_ = m.processCtl.SetNice(p.PID, p.Name, -5)
		}
	}
	for _, tok := range cfg.SuspendNameTokens {
		for _, p := range m.source.GetProcessesByName(tok) {
			_ = m.processCtl.Pause(p.PID, p.Name)
		}
	}

	if cfg.CPUGovernor != "" {
		if err := m.hostsys.SetGovernor(cfg.CPUGovernor); err != nil {
			return fmt.Errorf("set governor: %w", err)
		}
	}
	if err := m.hostsys.SetTurbo(cfg.TurboOn); err != nil {
		return fmt.Errorf("set turbo: %w", err)
	}
	if cfg.ScreenBrightnessPct > 0 {
		if err := m.hostsys.SetBrightnessPct(cfg.ScreenBrightnessPct); err != nil {
			return fmt.Errorf("set brightness: %w", err)
		}
	}
	return nil
}

// restore re-applies backed-up algorithm, governor, per-pid nice, and
// resumes any pid that was suspended. Processes first managed during
// the switch get their original nice back and are resumed if
// suspended. Dead pids are skipped (§4.5).
func (m *Manager) restore(backup model.StateBackup) {
	m.sched.SetAlgorithm(backup.PriorAlgorithm)
	if backup.PriorGovernor != "" {
		_ = m.hostsys.SetGovernor(backup.PriorGovernor)
	}
	for pid, nice := range backup.ProcessNice {
		mp, ok := findManaged(m.processCtl, pid)
		if !ok {
			continue
		}
		_ = m.processCtl.SetNice(pid, mp.Name, nice)
		if backup.ProcessState[pid] == model.RunStateRunning && mp.CurrentState == model.RunStateSuspended {
			_ = m.processCtl.Resume(pid, mp.Name)
		}
	}
	for _, mp := range m.processCtl.ManagedSnapshot() {
		if _, ok := backup.ProcessNice[mp.PID]; ok {
			continue
		}
		_ = m.processCtl.SetNice(mp.PID, mp.Name, mp.OriginalNice)
		if mp.CurrentState == model.RunStateSuspended {
			_ = m.processCtl.Resume(mp.PID, mp.Name)
		}
	}
}

func findManaged(c *control.Controller, pid int) (model.ManagedProcess, bool) {
	for _, mp := range c.ManagedSnapshot() {
		if mp.PID == pid {
			return mp, true
		}
	}
	return model.ManagedProcess{}, false
}

// RestoreSystemState is run on ModeManager shutdown to leave the host
// as found (§5 "Shutdown of ModeManager runs restore_system_state").
func (m *Manager) RestoreSystemState() {
	m.processCtl.RestoreAll()
}

func mergeOverride(base, override model.ModeConfig) model.ModeConfig {
	if override.TimeSliceMs > 0 {
		base.TimeSliceMs = override.TimeSliceMs
	}
	if override.CPUGovernor != "" {
		base.CPUGovernor = override.CPUGovernor
	}
	if override.HighPriorityNameTokens != nil {
		base.HighPriorityNameTokens = override.HighPriorityNameTokens
	}
	if override.SuspendNameTokens != nil {
		base.SuspendNameTokens = override.SuspendNameTokens
	}
	if override.ScreenBrightnessPct > 0 {
		base.ScreenBrightnessPct = override.ScreenBrightnessPct
	}
	if override.FreqCapPct > 0 {
		base.FreqCapPct = override.FreqCapPct
	}
	base.Algorithm = override.Algorithm
	base.MemoryStrategy = override.MemoryStrategy
	base.RealTimeBoost = override.RealTimeBoost || base.RealTimeBoost
	base.PriorityBoosting = override.PriorityBoosting || base.PriorityBoosting
	base.AdaptiveScheduling = override.AdaptiveScheduling || base.AdaptiveScheduling
	base.SwapEnabled = override.SwapEnabled
	base.TurboOn = override.TurboOn
	return base
}
