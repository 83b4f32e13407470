package mode

import (
	"sync"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// DefaultAutoDetectPeriod matches the spec's stated default.
const DefaultAutoDetectPeriod = 30 * time.Second

// AutoDetectThresholds configures detect_optimal_mode()'s decision
// points (§4.5).
type AutoDetectThresholds struct {
	BatteryLowPct    float64
	TemperatureHighC float64
	GamingCPUPct     float64
	GamingRSSKB      uint64
}

// DefaultAutoDetectThresholds matches the spec's implied defaults.
func DefaultAutoDetectThresholds() AutoDetectThresholds {
	return AutoDetectThresholds{
		BatteryLowPct:    20,
		TemperatureHighC: 80,
		GamingCPUPct:     30,
		GamingRSSKB:      1024 * 1024,
	}
}

var gamingTokens = []string{"game", "steam"}
var productivityTokens = []string{"code", "editor", "docs", "office", "slack", "terminal"}

type autoDetector struct {
	mgr        *Manager
	period     time.Duration
	thresholds AutoDetectThresholds
	onBattery  func() bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// EnableAutoDetect starts the auto-detection loop. Idempotent.
func (m *Manager) EnableAutoDetect(period time.Duration, thresholds AutoDetectThresholds, onBattery func() bool) {
	m.mu.Lock()
	if m.auto != nil {
		m.mu.Unlock()
		return
	}
	if period <= 0 {
		period = DefaultAutoDetectPeriod
	}
	if onBattery == nil {
		onBattery = func() bool { return false }
	}
	ad := &autoDetector{mgr: m, period: period, thresholds: thresholds, onBattery: onBattery, stop: make(chan struct{}), done: make(chan struct{})}
	m.auto = ad
	m.mu.Unlock()
	go ad.run()
}

// DisableAutoDetect stops the auto-detection loop. Idempotent.
func (m *Manager) DisableAutoDetect() {
	m.mu.Lock()
	ad := m.auto
	m.auto = nil
	m.mu.Unlock()
	if ad == nil {
		return
	}
	close(ad.stop)
	<-ad.done
}

func (ad *autoDetector) run() {
	defer close(ad.done)
	ticker := time.NewTicker(ad.period)
	defer ticker.Stop()
	for {
		select {
		case <-ad.stop:
			return
		case <-ticker.C:
			ad.cycle()
		}
	}
}

func (ad *autoDetector) cycle() {
	target := ad.detectOptimalMode()
	if target == ad.mgr.ActiveMode() {
		return
	}
	_ = ad.mgr.Switch(target)
}

// detectOptimalMode implements §4.5's decision tree.
func (ad *autoDetector) detectOptimalMode() model.Mode {
	m := ad.mgr
	t := ad.thresholds

	if ad.onBattery() {
		if pct, _ := m.hostsys.BatteryStatus(); pct > 0 && pct < t.BatteryLowPct {
			return model.ModePowerSaving
		}
	}
	if temp, err := m.hostsys.ThermalZoneTempC(); err == nil && temp > t.TemperatureHighC {
		return model.ModePowerSaving
	}

	for _, tok := range gamingTokens {
		for _, p := range m.source.GetProcessesByName(tok) {
			if p.CPUPct > t.GamingCPUPct || p.RSSKB > t.GamingRSSKB {
				return model.ModeGaming
			}
		}
	}

	matches := 0
	for _, tok := range productivityTokens {
		if len(m.source.GetProcessesByName(tok)) > 0 {
			matches++
		}
	}
	if matches >= 2 {
		return model.ModeProductivity
	}
	return model.ModeBalanced
}

// QuickBoost switches to Gaming and schedules a return to the prior
// mode after duration (§4.5).
func (m *Manager) QuickBoost(duration time.Duration) error {
	return m.quickOverride(model.ModeGaming, duration)
}

// QuickPowerSave switches to PowerSaving and schedules a return to the
// prior mode after duration (§4.5).
func (m *Manager) QuickPowerSave(duration time.Duration) error {
	return m.quickOverride(model.ModePowerSaving, duration)
}

func (m *Manager) quickOverride(target model.Mode, duration time.Duration) error {
	before := m.ActiveMode()
	if err := m.Switch(target); err != nil {
		return err
	}
	go func() {
		time.Sleep(duration)
		if m.ActiveMode() == target {
			_ = m.Switch(before)
		}
	}()
	return nil
}
