package app

import (
	"fmt"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// The methods below are the §6 "operations exposed upward to CLI /
// dashboard" surface. They do nothing but delegate into the owned
// components; external collaborators (cmd/srsctl, cmd/dashboard) must
// go through this facade rather than reaching into internal/* types.

// SwitchMode switches to the named mode.
func (a *App) SwitchMode(m model.Mode) error {
	return a.Mode.Switch(m)
}

// CurrentMode returns the currently active mode.
func (a *App) CurrentMode() model.Mode {
	return a.Mode.ActiveMode()
}

// TopCPU returns the n processes with highest CPU usage.
func (a *App) TopCPU(n int) []model.ProcessSnapshot {
	return a.Observer.TopCPU(n)
}

// TopMemory returns the n processes with highest RSS.
func (a *App) TopMemory(n int) []model.ProcessSnapshot {
	return a.Observer.TopMemory(n)
}

// SystemSnapshot returns the last completed system-wide poll.
func (a *App) SystemSnapshot() model.SystemSnapshot {
	return a.Observer.GetSystem()
}

// Pause suspends pid, subject to the ProcessController guard.
func (a *App) Pause(pid int) error {
	p, ok := a.Observer.GetProcess(pid)
	if !ok {
		return errProcessNotObserved(pid)
	}
	return a.Control.Pause(pid, p.Name)
}

// Resume resumes pid, subject to the ProcessController guard.
func (a *App) Resume(pid int) error {
	p, ok := a.Observer.GetProcess(pid)
	if !ok {
		return errProcessNotObserved(pid)
	}
	return a.Control.Resume(pid, p.Name)
}

// Terminate terminates pid, subject to the ProcessController guard.
func (a *App) Terminate(pid int) error {
	p, ok := a.Observer.GetProcess(pid)
	if !ok {
		return errProcessNotObserved(pid)
	}
	return a.Control.Terminate(pid, p.Name)
}

// SetNice sets pid's nice value, clamped to [-20, 19].
func (a *App) SetNice(pid int, n int) error {
	p, ok := a.Observer.GetProcess(pid)
	if !ok {
		return errProcessNotObserved(pid)
	}
	return a.Control.SetNice(pid, p.Name, n)
}

// OptimizeMemory runs the explicit, strategy-selected memory
// optimization pass.
func (a *App) OptimizeMemory() {
	a.Memory.OptimizeSystemMemory()
}

// ClearCaches drops all page caches.
func (a *App) ClearCaches() bool {
	return a.Memory.ClearAllCaches()
}

type processNotObservedError struct{ pid int }

func (e processNotObservedError) Error() string {
	return fmt.Sprintf("app: pid %d not present in the last completed poll", e.pid)
}

func errProcessNotObserved(pid int) error {
	return processNotObservedError{pid: pid}
}
