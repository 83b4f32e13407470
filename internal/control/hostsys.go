package control

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// HostSys wraps the hardware-level sysfs sinks/sources the ModeManager
// applies when switching modes (§6): CPU governor, turbo, brightness,
// battery, and thermal. These are not guarded by the criticality check
// since they are not per-pid operations.
type HostSys struct {
	cpuGovernorGlob string
	turboPath       string
	backlightGlob   string
}

// NewHostSys constructs a HostSys using the standard sysfs paths.
func NewHostSys() *HostSys {
	return &HostSys{
		cpuGovernorGlob: "/sys/devices/system/cpu/cpu*/cpufreq/scaling_governor",
		turboPath:       "/sys/devices/system/cpu/intel_pstate/no_turbo",
		backlightGlob:   "/sys/class/backlight/*/brightness",
	}
}

// SetGovernor writes the named governor to every core's
// scaling_governor file. Returns the first error encountered, if any,
// but attempts every core.
func (h *HostSys) SetGovernor(name string) error {
	paths, _ := filepath.Glob(h.cpuGovernorGlob)
	var firstErr error
	for _, p := range paths {
		if err := os.WriteFile(p, []byte(name), 0644); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write %s: %w", p, err)
		}
	}
	return firstErr
}

// Governor reads the first core's current governor.
func (h *HostSys) Governor() (string, error) {
	paths, _ := filepath.Glob(h.cpuGovernorGlob)
	if len(paths) == 0 {
		return "", fmt.Errorf("control: no cpufreq governor path found")
	}
	b, err := os.ReadFile(paths[0])
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// SetTurbo enables or disables turbo boost. intel_pstate's no_turbo is
// inverted: writing "0" enables turbo.
func (h *HostSys) SetTurbo(on bool) error {
	val := "1"
	if on {
		val = "0"
	}
	if err := os.WriteFile(h.turboPath, []byte(val), 0644); err == nil {
		return nil
	}
	boostVal := "0"
	if on {
		boostVal = "1"
	}
	return os.WriteFile("/sys/devices/system/cpu/cpufreq/boost", []byte(boostVal), 0644)
}

// SetBrightnessPct sets screen brightness as a percentage of the
// device's max_brightness.
func (h *HostSys) SetBrightnessPct(pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	dirs, _ := filepath.Glob(h.backlightGlob)
	var firstErr error
	for _, brightnessPath := range dirs {
		dir := filepath.Dir(brightnessPath)
		maxBytes, err := os.ReadFile(filepath.Join(dir, "max_brightness"))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		maxVal, _ := strconv.Atoi(strings.TrimSpace(string(maxBytes)))
		target := maxVal * pct / 100
		if err := os.WriteFile(brightnessPath, []byte(strconv.Itoa(target)), 0644); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BatteryStatus reports battery percentage and charge state; zero
// value if no battery is present.
func (h *HostSys) BatteryStatus() (pct float64, state string) {
	paths, _ := filepath.Glob("/sys/class/power_supply/BAT*/capacity")
	for _, capPath := range paths {
		b, err := os.ReadFile(capPath)
		if err != nil {
			continue
		}
		v, _ := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
		stateBytes, _ := os.ReadFile(filepath.Join(filepath.Dir(capPath), "status"))
		return v, strings.TrimSpace(string(stateBytes))
	}
	return 0, ""
}

// ThermalZoneTempC returns the highest reported zone temperature in
// Celsius, preferring gopsutil's sensor wrapper over a raw sysfs glob.
func (h *HostSys) ThermalZoneTempC() (float64, error) {
	temps, err := host.SensorsTemperatures()
	if err == nil && len(temps) > 0 {
		max := temps[0].Temperature
		for _, t := range temps[1:] {
			if t.Temperature > max {
				max = t.Temperature
			}
		}
		return max, nil
	}

	paths, gerr := filepath.Glob("/sys/class/thermal/thermal_zone*/temp")
	if gerr != nil || len(paths) == 0 {
		return 0, fmt.Errorf("control: no thermal zone available")
	}
	b, rerr := os.ReadFile(paths[0])
	if rerr != nil {
		return 0, rerr
	}
	milli, _ := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	return milli / 1000, nil
}
