package scheduler

import (
	"strings"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

var systemPrefixes = []string{"kernel", "systemd", "kthread", "init"}
var interactivePrefixes = []string{"display", "desktop", "gnome", "kde", "x11", "wayland", "firefox", "chrome", "chromium", "safari", "game", "steam"}
var batchPrefixes = []string{"build", "compile", "make", "gcc", "clang", "backup", "rsync", "tar"}

// classifyByName infers an initial ProcessClass from the process name
// on first admission (§4.4).
func classifyByName(name string) model.ProcessClass {
	lower := strings.ToLower(name)
	for _, p := range systemPrefixes {
		if strings.HasPrefix(lower, p) {
			return model.ClassSystem
		}
	}
	for _, p := range interactivePrefixes {
		if strings.Contains(lower, p) {
			return model.ClassInteractive
		}
	}
	for _, p := range batchPrefixes {
		if strings.Contains(lower, p) {
			return model.ClassBatch
		}
	}
	return model.ClassInteractive
}

// reclassify adjusts a process's class on subsequent ticks based on
// observed CPU usage (§4.4).
func reclassify(class model.ProcessClass, cpuPct float64) model.ProcessClass {
	switch {
	case cpuPct > 80:
		return model.ClassBatch
	case cpuPct < 5:
		return model.ClassIdle
	default:
		return class
	}
}

// initialTimeSlice returns the class-seeded time slice, clamped to
// [minTimeSliceMs, maxTimeSliceMs] (§4.4).
func initialTimeSlice(class model.ProcessClass) int {
	switch class {
	case model.ClassRealTime:
		return clampSlice(20)
	case model.ClassInteractive:
		return clampSlice(50)
	case model.ClassSystem:
		return clampSlice(100)
	case model.ClassBatch:
		return clampSlice(200)
	case model.ClassIdle:
		return clampSlice(500)
	default:
		return clampSlice(50)
	}
}

func clampSlice(ms int) int {
	if ms < minTimeSliceMs {
		return minTimeSliceMs
	}
	if ms > maxTimeSliceMs {
		return maxTimeSliceMs
	}
	return ms
}
