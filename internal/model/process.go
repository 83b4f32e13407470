// Package model holds the data types shared across the scheduler's
// components. Each type is owned by exactly one component (see the
// owner noted in its doc comment); other components only ever read
// copies handed to them through snapshots or callbacks.
package model

import "time"

// ProcessState mirrors the one-letter states reported by the host's
// process table.
type ProcessState byte

const (
	StateRunning ProcessState = 'R'
	StateSleep   ProcessState = 'S'
	StateDisk    ProcessState = 'D'
	StateStopped ProcessState = 'T'
	StateZombie  ProcessState = 'Z'
)

// ProcessSnapshot is one process as observed during a single poll.
// Immutable once constructed; owned by Observer.
type ProcessSnapshot struct {
	PID            int
	Name           string
	Command        string
	State          ProcessState
	ParentPID      int
	ThreadCount    int
	Nice           int
	VSizeKB        uint64
	RSSKB          uint64
	CPUUserTicks   uint64
	CPUSystemTicks uint64
	LastObservedAt time.Time
	CPUPct         float64
}

// SystemSnapshot is the system-wide state as observed during a single
// poll. Owned by Observer.
type SystemSnapshot struct {
	CPUTotalPct   float64
	CPUUser       uint64
	CPUNice       uint64
	CPUSystem     uint64
	CPUIdle       uint64
	CPUIowait     uint64
	CPUIrq        uint64
	CPUSoftirq    uint64
	CPUSteal      uint64
	MemTotalKB    uint64
	MemAvailKB    uint64
	MemCachedKB   uint64
	MemBufferedKB uint64
	SwapTotalKB   uint64
	SwapFreeKB    uint64
	Load1         float64
	Load5         float64
	Load15        float64
	CoreCount     int
	Timestamp     time.Time
}

// MemUsedKB is mem_total - mem_available, per the spec invariant.
func (s SystemSnapshot) MemUsedKB() uint64 {
	if s.MemAvailKB >= s.MemTotalKB {
		return 0
	}
	return s.MemTotalKB - s.MemAvailKB
}

// UsedPct is the percentage of total memory in use.
func (s SystemSnapshot) UsedPct() float64 {
	if s.MemTotalKB == 0 {
		return 0
	}
	return 100 * float64(s.MemUsedKB()) / float64(s.MemTotalKB)
}
