// Package app is the top-level owner: it constructs Observer,
// ProcessController, MemoryController, Scheduler, and ModeManager
// exactly once, wires their callbacks, and exposes the §6 "operations
// exposed upward" facade consumed by external collaborators (CLI,
// dashboard). No component holds a reference to another except through
// this owner, avoiding the shared-pointer cycles the Design Notes (§9)
// warn against.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Taragi14/smart-resource-scheduler/internal/config"
	"github.com/Taragi14/smart-resource-scheduler/internal/control"
	"github.com/Taragi14/smart-resource-scheduler/internal/memory"
	"github.com/Taragi14/smart-resource-scheduler/internal/metrics"
	"github.com/Taragi14/smart-resource-scheduler/internal/mode"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
	"github.com/Taragi14/smart-resource-scheduler/internal/observer"
	"github.com/Taragi14/smart-resource-scheduler/internal/scheduler"
)

// App owns every core component and is the only type that references
// more than one of them.
type App struct {
	Log *slog.Logger

	Observer  *observer.Observer
	Control   *control.Controller
	Memory    *memory.Controller
	Scheduler *scheduler.Scheduler
	Mode      *mode.Manager
	Metrics   *metrics.Metrics

	cfg config.Config
}

// New constructs every component, wires their callbacks, and applies
// cfg's starting values. It does not start any worker; call Start.
func New(cfg config.Config, reg prometheus.Registerer) *App {
	levelVar := new(slog.LevelVar)
	levelVar.Set(cfg.LogLevel)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})
	log := slog.New(handler)

	obs := observer.New(cfg.MonitoringInterval, log)
	ctl := control.New(log)
	memCtl := memory.New(obs, ctl, log)
	memCtl.SetThresholds(memory.Thresholds{
		LowThreshold:      cfg.MemoryThresholdPct,
		CriticalThreshold: 90,
	})
	memCtl.SetAutoOptimize(cfg.EnableAutoOptimize)

	sched := scheduler.New(obs, ctl, log)
	sched.SetAlgorithm(cfg.DefaultAlgorithm)
	sched.SetTickInterval(time.Duration(cfg.DefaultTimeSliceMs) * time.Millisecond)

	modeMgr := mode.New(sched, memCtl, ctl, obs, log)

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	a := &App{
		Log:       log,
		Observer:  obs,
		Control:   ctl,
		Memory:    memCtl,
		Scheduler: sched,
		Mode:      modeMgr,
		Metrics:   m,
		cfg:       cfg,
	}
	a.wireCallbacks()
	return a
}

func (a *App) wireCallbacks() {
	a.Control.Subscribe(func(res model.ProcessActionResult) {
		if !res.Success {
			a.Log.Warn("process action failed", "pid", res.PID, "action", res.Action, "reason", res.Reason)
		}
	})
	a.Scheduler.Subscribe(func(pid int, err error) {
		a.Log.Warn("scheduler apply failed", "pid", pid, "error", err)
	})
	if a.Metrics != nil {
		a.Scheduler.SubscribeSchedule(func(algorithm model.Algorithm, preempted bool) {
			a.Metrics.ObserveSchedule(algorithm.String(), preempted)
		})
	}
	a.Memory.RegisterPressureCallback(func(level model.PressureLevel, _ model.SystemSnapshot) {
		if a.Metrics != nil {
			a.Metrics.ObservePressure(level)
		}
		if level != model.PressureLow {
			a.Log.Info("memory pressure", "level", level.String())
		}
	})
	if a.Metrics != nil {
		a.Memory.RegisterMitigationCallback(func(kind string) {
			a.Metrics.ObserveMitigation(kind)
		})
	}
	a.Mode.Subscribe(func(res model.ModeSwitchResult) {
		if a.Metrics != nil {
			a.Metrics.ObserveModeSwitch(res.Success)
		}
		if res.Success {
			a.Log.Info("mode switched", "from", res.From, "to", res.To)
		} else {
			a.Log.Warn("mode switch failed", "to", res.To, "reason", res.Reason)
		}
	})
	if a.Metrics != nil {
		a.Observer.SubscribeSystem(func(sys model.SystemSnapshot) {
			a.Metrics.CPUTotalPct.Set(sys.CPUTotalPct)
		})
	}
	a.Observer.SubscribeFailure(func(err error) {
		a.Log.Error("observer stopped", "error", err)
	})
}

// Start begins every component's background worker, in leaves-first
// order: Observer first (everything else depends on its snapshots),
// then MemoryController and Scheduler, then ProcessController's
// auto-management loop (it also reads Observer).
func (a *App) Start() error {
	if err := a.Observer.Start(); err != nil {
		return fmt.Errorf("app: start observer: %w", err)
	}
	a.Memory.Start()
	a.Scheduler.Start()
	a.Control.StartAutoManage(a.Observer, control.DefaultAutoManageConfig())
	if a.cfg.EnableAutoMode {
		a.Mode.EnableAutoDetect(mode.DefaultAutoDetectPeriod, mode.DefaultAutoDetectThresholds(), nil)
	}
	if err := a.Mode.Switch(a.cfg.DefaultMode); err != nil {
		a.Log.Debug("initial mode switch skipped", "mode", a.cfg.DefaultMode, "reason", err)
	}
	return nil
}

// Stop halts every worker, in reverse order, and restores host state.
func (a *App) Stop() {
	a.Mode.DisableAutoDetect()
	a.Mode.RestoreSystemState()
	a.Control.StopAutoManage()
	a.Scheduler.Stop()
	a.Memory.Stop()
	a.Observer.Stop()
}
