// Package scheduler implements the pluggable scheduling policy engine:
// priority-based, round-robin, multilevel-feedback, and fair
// (virtual-runtime) selection, with anti-starvation aging and adaptive
// time-slicing.
package scheduler

import (
	"container/list"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/control"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

const (
	minTimeSliceMs           = 10
	maxTimeSliceMs           = 500
	defaultStarvationSeconds = 5
	defaultTickMs            = 50
	multilevelQueueCount     = 5
)

// SnapshotSource is the minimal Observer view the Scheduler needs.
// Defined locally to avoid an import cycle.
type SnapshotSource interface {
	GetProcesses() []model.ProcessSnapshot
	GetSystem() model.SystemSnapshot
}

// FailureCallback is invoked when a ProcessController call fails
// during the tick cycle; the scheduling choice still stands (§4.4).
type FailureCallback func(pid int, err error)

// ScheduleCallback is invoked after every tick that selects a process,
// reporting the active algorithm and whether this selection preempted
// the previously running pid.
type ScheduleCallback func(algorithm model.Algorithm, preempted bool)

// Scheduler owns the scheduled-process table and selects the next
// process to prefer on every tick.
type Scheduler struct {
	log        *slog.Logger
	source     SnapshotSource
	processCtl *control.Controller

	mu    sync.Mutex
	table map[int]*model.ScheduledProcess

	algorithm Algorithm

	rrQueue  *list.List
	mlQueues [multilevelQueueCount]*list.List

	realtimeOrder []int // pids in registration order

	priorityBoosting    bool
	adaptiveScheduling  bool
	starvationThreshold time.Duration

	currentRunning int

	subMu        sync.Mutex
	subs         []FailureCallback
	scheduleSubs []ScheduleCallback

	tickInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
	runMu        sync.Mutex
	active       bool
}

// Algorithm is re-exported for callers that only import scheduler.
type Algorithm = model.Algorithm

const (
	PriorityBased      = model.AlgorithmPriorityBased
	RoundRobin         = model.AlgorithmRoundRobin
	MultilevelFeedback = model.AlgorithmMultilevelFeedback
	Fair               = model.AlgorithmFair
)

// New constructs a Scheduler with PriorityBased active and the spec's
// default tick interval and starvation threshold.
func New(source SnapshotSource, processCtl *control.Controller, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		log:                 log.With("component", "scheduler"),
		source:              source,
		processCtl:          processCtl,
		table:               make(map[int]*model.ScheduledProcess),
		algorithm:           model.AlgorithmPriorityBased,
		rrQueue:             list.New(),
		priorityBoosting:    true,
		adaptiveScheduling:  true,
		starvationThreshold: defaultStarvationSeconds * time.Second,
		tickInterval:        defaultTickMs * time.Millisecond,
	}
	for i := range s.mlQueues {
		s.mlQueues[i] = list.New()
	}
	return s
}

// SetTickInterval overrides the per-tick period. Must be called before
// Start.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.tickInterval = d
}

// SetPriorityBoosting toggles anti-starvation aging.
func (s *Scheduler) SetPriorityBoosting(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorityBoosting = on
}

// SetAdaptiveScheduling toggles load-based time-slice scaling.
func (s *Scheduler) SetAdaptiveScheduling(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adaptiveScheduling = on
}

// SetStarvationThreshold overrides the anti-starvation wait bound.
func (s *Scheduler) SetStarvationThreshold(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starvationThreshold = d
}

// Subscribe registers a callback for ProcessController failures
// surfaced during a tick.
func (s *Scheduler) Subscribe(cb FailureCallback) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, cb)
}

func (s *Scheduler) publishFailure(pid int, err error) {
	s.subMu.Lock()
	subs := append([]FailureCallback(nil), s.subs...)
	s.subMu.Unlock()
	for _, cb := range subs {
		cb(pid, err)
	}
}

// SubscribeSchedule registers a callback invoked after every tick that
// selects a process.
func (s *Scheduler) SubscribeSchedule(cb ScheduleCallback) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.scheduleSubs = append(s.scheduleSubs, cb)
}

func (s *Scheduler) publishSchedule(algorithm model.Algorithm, preempted bool) {
	s.subMu.Lock()
	subs := append([]ScheduleCallback(nil), s.scheduleSubs...)
	s.subMu.Unlock()
	for _, cb := range subs {
		cb(algorithm, preempted)
	}
}

// Start begins the per-tick cycle on a background goroutine. Idempotent.
func (s *Scheduler) Start() {
	s.runMu.Lock()
	if s.active {
		s.runMu.Unlock()
		return
	}
	s.active = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	interval := s.tickInterval
	s.runMu.Unlock()

	go s.run(interval)
}

// Stop halts the tick worker. Idempotent.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	if !s.active {
		s.runMu.Unlock()
		return
	}
	s.active = false
	stop, done := s.stop, s.done
	s.runMu.Unlock()
	close(stop)
	<-done
}

func (s *Scheduler) run(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs exactly one per-tick cycle (§4.4). Exported so callers and
// tests can drive the scheduler deterministically without waiting on
// the background ticker.
func (s *Scheduler) Tick() {
	procs := s.source.GetProcesses()
	if procs == nil {
		s.log.Debug("tick skipped: observer unavailable")
		return
	}
	sys := s.source.GetSystem()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconcileLocked(procs)
	s.updateLocked(procs)
	if s.priorityBoosting {
		s.ageLocked()
	}

	selectedPID, ok := s.selectNextLocked()
	if ok {
		preempted := false
		if selectedPID != s.currentRunning {
			if out, ok := s.table[s.currentRunning]; ok {
				out.PreemptionCount++
				preempted = true
			}
			s.currentRunning = selectedPID
		}
		if sp, ok := s.table[selectedPID]; ok {
			if s.processCtl != nil {
				if err := s.processCtl.SetNice(sp.PID, sp.Name, sp.DynamicPriority); err != nil {
					s.publishFailure(sp.PID, err)
				}
			}
			sp.LastScheduledAt = time.Now()
			sp.ScheduleCount++
		}
		s.publishSchedule(s.algorithm, preempted)
	}

	if s.adaptiveScheduling && sys.CPUTotalPct > 80 {
		s.scaleTimeSlicesLocked()
	}
}

func (s *Scheduler) reconcileLocked(procs []model.ProcessSnapshot) {
	live := make(map[int]struct{}, len(procs))
	for _, p := range procs {
		live[p.PID] = struct{}{}
		if _, ok := s.table[p.PID]; ok {
			continue
		}
		class := classifyByName(p.Name)
		sp := &model.ScheduledProcess{
			PID:         p.PID,
			Name:        p.Name,
			BaseNice:    p.Nice,
			Class:       class,
			TimeSliceMs: initialTimeSlice(class),
			QueueLevel:  0,
			// Admission starts the wait clock, so a process that is
			// never selected still ages past starvationThreshold.
			LastScheduledAt: time.Now(),
		}
		s.table[p.PID] = sp
		s.admitLocked(sp)
	}
	for pid := range s.table {
		if _, ok := live[pid]; !ok {
			s.removeLocked(pid)
		}
	}
}

func (s *Scheduler) admitLocked(sp *model.ScheduledProcess) {
	s.rrQueue.PushBack(sp.PID)
	s.mlQueues[0].PushBack(sp.PID)
}

func (s *Scheduler) removeLocked(pid int) {
	delete(s.table, pid)
	removeFromList(s.rrQueue, pid)
	for _, q := range s.mlQueues {
		removeFromList(q, pid)
	}
	if s.currentRunning == pid {
		s.currentRunning = 0
	}
}

func removeFromList(l *list.List, pid int) {
	for e := l.Front(); e != nil; {
		next := e.Next()
		if e.Value.(int) == pid {
			l.Remove(e)
		}
		e = next
	}
}

func (s *Scheduler) updateLocked(procs []model.ProcessSnapshot) {
	bySnapshot := make(map[int]model.ProcessSnapshot, len(procs))
	for _, p := range procs {
		bySnapshot[p.PID] = p
	}
	for pid, sp := range s.table {
		p, ok := bySnapshot[pid]
		if !ok {
			continue
		}
		sp.PushCPUPct(p.CPUPct)
		sp.Class = reclassify(sp.Class, p.CPUPct)
		sp.DynamicPriority = dynamicPriority(sp, s.isStarvingLocked(sp))
	}
}

// ageLocked bumps dynamic_priority by +5 (clamped to 19) for every
// process whose wait exceeds starvationThreshold (§4.4 step 3).
func (s *Scheduler) ageLocked() {
	now := time.Now()
	for _, sp := range s.table {
		if sp.LastScheduledAt.IsZero() {
			continue
		}
		if now.Sub(sp.LastScheduledAt) > s.starvationThreshold {
			sp.DynamicPriority = clampNice(sp.DynamicPriority + 5)
		}
	}
}

func (s *Scheduler) isStarvingLocked(sp *model.ScheduledProcess) bool {
	if sp.LastScheduledAt.IsZero() {
		return false
	}
	return time.Since(sp.LastScheduledAt) > s.starvationThreshold
}

// dynamicPriority implements the PriorityBased formula (§4.4); other
// algorithms ignore this field except for the anti-starvation bump
// applied uniformly in ageLocked.
func dynamicPriority(sp *model.ScheduledProcess, starving bool) int {
	p := sp.BaseNice
	if sp.Class == model.ClassInteractive {
		p += 5
	}
	if sp.LatestCPUPct() > 80 {
		p -= 3
	}
	if starving {
		p += 10
	}
	return clampNice(p)
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

func (s *Scheduler) scaleTimeSlicesLocked() {
	for _, sp := range s.table {
		if sp.Class == model.ClassRealTime || sp.RealTime {
			continue
		}
		scaled := int(float64(sp.TimeSliceMs) * 0.8)
		sp.TimeSliceMs = clampSlice(scaled)
	}
}

// SetAlgorithm switches the active selection algorithm, rebuilding
// queues from the current scheduled table. virtual_runtime and
// queue_level are preserved where relevant, reset otherwise (§4.4).
func (s *Scheduler) SetAlgorithm(a model.Algorithm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == s.algorithm {
		return
	}
	s.algorithm = a

	pids := make([]int, 0, len(s.table))
	for pid := range s.table {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	switch a {
	case model.AlgorithmRoundRobin:
		s.rrQueue = list.New()
		for _, pid := range pids {
			s.rrQueue.PushBack(pid)
		}
	case model.AlgorithmMultilevelFeedback:
		for i := range s.mlQueues {
			s.mlQueues[i] = list.New()
		}
		for _, pid := range pids {
			level := s.table[pid].QueueLevel
			if level < 0 || level >= multilevelQueueCount {
				level = 0
				s.table[pid].QueueLevel = 0
			}
			s.mlQueues[level].PushBack(pid)
		}
	case model.AlgorithmFair:
		// virtual_runtime is already a field on ScheduledProcess and
		// needs no separate structure; nothing to rebuild.
	case model.AlgorithmPriorityBased:
		// priority is recomputed every tick; nothing to rebuild.
	}
}

// AlgorithmActive returns the currently active algorithm.
func (s *Scheduler) AlgorithmActive() model.Algorithm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.algorithm
}

// RegisterRealTime marks a pid as real-time with the given registration
// priority (lower value selected first among real-time processes).
func (s *Scheduler) RegisterRealTime(pid int, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.table[pid]; ok {
		sp.RealTime = true
		sp.RealTimePriority = priority
		sp.Class = model.ClassRealTime
		sp.TimeSliceMs = initialTimeSlice(model.ClassRealTime)
	}
	for _, p := range s.realtimeOrder {
		if p == pid {
			return
		}
	}
	s.realtimeOrder = append(s.realtimeOrder, pid)
}

// Snapshot returns a copy of every currently scheduled process.
func (s *Scheduler) Snapshot() []model.ScheduledProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScheduledProcess, 0, len(s.table))
	for _, sp := range s.table {
		out = append(out, *sp)
	}
	return out
}

// Get returns a copy of a single scheduled process, if present.
func (s *Scheduler) Get(pid int) (model.ScheduledProcess, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.table[pid]
	if !ok {
		return model.ScheduledProcess{}, false
	}
	return *sp, true
}
