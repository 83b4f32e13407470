package model

import "time"

// ProcessActionResult is the fan-out payload for any ProcessController
// operation, successful or not (§7).
type ProcessActionResult struct {
	ID        string
	PID       int
	Action    string
	Success   bool
	Reason    string
	Timestamp time.Time
}

// ResourceLimitExceeded is emitted by the ProcessController's
// auto-management loop when a ManagedProcess crosses its own limit.
type ResourceLimitExceeded struct {
	PID       int
	Name      string
	Kind      string // "memory" or "cpu"
	Limit     float64
	Observed  float64
	Timestamp time.Time
}

// SystemThresholdExceeded is emitted when a system-wide CPU or memory
// threshold is crossed.
type SystemThresholdExceeded struct {
	Kind      string // "cpu" or "memory"
	Threshold float64
	Observed  float64
	Timestamp time.Time
}

// ModeSwitchResult is the fan-out payload for a completed mode switch
// attempt, successful or not.
type ModeSwitchResult struct {
	BackupID  string
	From      Mode
	To        Mode
	Success   bool
	Reason    string
	Timestamp time.Time
}
