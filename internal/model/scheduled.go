package model

import "time"

// ProcessClass is the scheduler's classification of a process, used to
// pick an initial time slice and to weight priority.
type ProcessClass int

const (
	ClassInteractive ProcessClass = iota
	ClassBatch
	ClassSystem
	ClassRealTime
	ClassIdle
)

func (c ProcessClass) String() string {
	switch c {
	case ClassInteractive:
		return "interactive"
	case ClassBatch:
		return "batch"
	case ClassSystem:
		return "system"
	case ClassRealTime:
		return "realtime"
	case ClassIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Algorithm selects which select-next strategy the Scheduler runs.
type Algorithm int

const (
	AlgorithmPriorityBased Algorithm = iota
	AlgorithmRoundRobin
	AlgorithmMultilevelFeedback
	AlgorithmFair
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmPriorityBased:
		return "priority"
	case AlgorithmRoundRobin:
		return "round_robin"
	case AlgorithmMultilevelFeedback:
		return "multilevel"
	case AlgorithmFair:
		return "fair"
	default:
		return "unknown"
	}
}

// CPUHistorySize bounds the ring buffer kept per ScheduledProcess.
const CPUHistorySize = 8

// ScheduledProcess is the Scheduler's view of a live process. Owned
// exclusively by Scheduler; created when Observer first reports the
// pid and destroyed when the pid disappears.
type ScheduledProcess struct {
	PID              int
	Name             string
	BaseNice         int
	DynamicPriority  int
	Class            ProcessClass
	TimeSliceMs      int
	VirtualRuntime   float64
	QueueLevel       int
	ScheduleCount    int
	PreemptionCount  int
	LastScheduledAt  time.Time
	CPUPctHistory    [CPUHistorySize]float64
	cpuHistoryFilled int
	RealTime         bool
	RealTimePriority int
}

// PushCPUPct records a new sample into the ring buffer.
func (p *ScheduledProcess) PushCPUPct(v float64) {
	idx := p.cpuHistoryFilled % CPUHistorySize
	p.CPUPctHistory[idx] = v
	p.cpuHistoryFilled++
}

// LatestCPUPct returns the most recent recorded CPU percentage, or 0 if
// none has been recorded yet.
func (p *ScheduledProcess) LatestCPUPct() float64 {
	if p.cpuHistoryFilled == 0 {
		return 0
	}
	idx := (p.cpuHistoryFilled - 1) % CPUHistorySize
	return p.CPUPctHistory[idx]
}
