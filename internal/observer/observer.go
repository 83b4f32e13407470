// Package observer implements the system & process observer described
// in the scheduler's core design: it polls the host's published process
// and system state on a fixed interval, computes delta-based CPU usage,
// and publishes snapshots to subscribers.
package observer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
	"github.com/shirou/gopsutil/v3/host"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = time.Second

// ProcessSubscriber is invoked on the Observer worker after each poll,
// never during shutdown.
type ProcessSubscriber func([]model.ProcessSnapshot)

// SystemSubscriber is invoked on the Observer worker after each poll,
// never during shutdown.
type SystemSubscriber func(model.SystemSnapshot)

// FailureSubscriber is invoked once, from the Observer's own worker,
// when a host state read fails fatally and the worker has stopped
// itself. A missing /proc is the common cause (container teardown,
// host going away mid-run).
type FailureSubscriber func(error)

// Observer polls host state and publishes snapshots. The zero value is
// not usable; construct with New.
type Observer struct {
	interval time.Duration
	log      *slog.Logger

	mu        sync.RWMutex
	processes []model.ProcessSnapshot
	system    model.SystemSnapshot
	started   bool

	subMu      sync.Mutex
	procSubs   []ProcessSubscriber
	systemSubs []SystemSubscriber
	failSubs   []FailureSubscriber

	prevProcSeconds map[int]float64
	prevGlobalTotal float64
	prevGlobalIdle  float64
	coreCount       int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs an Observer with the given poll interval. A zero or
// negative interval falls back to DefaultInterval.
func New(interval time.Duration, log *slog.Logger) *Observer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Observer{
		interval:        interval,
		log:             log.With("component", "observer"),
		prevProcSeconds: make(map[int]float64),
	}
}

// Start begins polling on a background goroutine. Idempotent.
func (o *Observer) Start() error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	o.mu.Unlock()

	if _, err := host.Info(); err != nil {
		o.log.Error("host state source unavailable", "error", err)
		return fmt.Errorf("observer: host state unavailable: %w", err)
	}

	go o.run()
	return nil
}

// Stop requests the worker to exit and waits for it to finish.
// Idempotent.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	stopCh := o.stopCh
	doneCh := o.doneCh
	o.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (o *Observer) run() {
	defer close(o.doneCh)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	if !o.poll() {
		o.markStopped()
		return
	}
	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			if !o.poll() {
				o.markStopped()
				return
			}
		}
	}
}

// markStopped flips the started flag without touching stopCh/doneCh,
// so a later Stop() call from a caller unaware of the self-stop is a
// harmless no-op instead of blocking forever on an already-closed
// worker.
func (o *Observer) markStopped() {
	o.mu.Lock()
	o.started = false
	o.mu.Unlock()
}

// poll runs one collection cycle. It returns false when the read
// failure is fatal (the host state source itself is gone, e.g. /proc
// disappearing), in which case the worker must stop rather than retry
// forever.
func (o *Observer) poll() bool {
	procs, sys, err := o.collect()
	if err != nil {
		o.log.Error("host state read failed, stopping observer", "error", err)
		o.publishFailure(fmt.Errorf("observer: host state read failed: %w", err))
		return false
	}

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
	return true
}

func (o *Observer) publishFailure(err error) {
	o.subMu.Lock()
	failSubs := append([]FailureSubscriber(nil), o.failSubs...)
	o.subMu.Unlock()
	for _, cb := range failSubs {
		cb(err)
	}
}

// GetProcesses returns the last completed poll's process snapshots.
func (o *Observer) GetProcesses() []model.ProcessSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.ProcessSnapshot, len(o.processes))
	copy(out, o.processes)
	return out
}

// GetProcess returns a single process snapshot, if present in the last
// completed poll.
func (o *Observer) GetProcess(pid int) (model.ProcessSnapshot, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, p := range o.processes {
		if p.PID == pid {
			return p, true
		}
	}
	return model.ProcessSnapshot{}, false
}

// GetProcessesByName returns every process whose name contains substr.
func (o *Observer) GetProcessesByName(substr string) []model.ProcessSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []model.ProcessSnapshot
	for _, p := range o.processes {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(substr)) {
			out = append(out, p)
		}
	}
	return out
}

// GetSystem returns the last completed poll's system snapshot.
func (o *Observer) GetSystem() model.SystemSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.system
}

// TopCPU returns the n processes with highest CPU%, ties broken by
// ascending pid.
func (o *Observer) TopCPU(n int) []model.ProcessSnapshot {
	procs := o.GetProcesses()
	sort.Slice(procs, func(i, j int) bool {
		if procs[i].CPUPct != procs[j].CPUPct {
			return procs[i].CPUPct > procs[j].CPUPct
		}
		return procs[i].PID < procs[j].PID
	})
	if n < len(procs) {
		procs = procs[:n]
	}
	return procs
}

// TopMemory returns the n processes with highest RSS, ties broken by
// ascending pid.
func (o *Observer) TopMemory(n int) []model.ProcessSnapshot {
	procs := o.GetProcesses()
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

// SubscribeProcess registers a callback invoked after every poll.
func (o *Observer) SubscribeProcess(cb ProcessSubscriber) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	o.procSubs = append(o.procSubs, cb)
}

// SubscribeSystem registers a callback invoked after every poll.
func (o *Observer) SubscribeSystem(cb SystemSubscriber) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	o.systemSubs = append(o.systemSubs, cb)
}

// SubscribeFailure registers a callback invoked once when the worker
// stops itself after a fatal host state read failure.
func (o *Observer) SubscribeFailure(cb FailureSubscriber) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	o.failSubs = append(o.failSubs, cb)
}
