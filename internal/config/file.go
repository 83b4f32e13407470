package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// LoadFile parses the §6 key=value config file using godotenv, which
// already implements that exact grammar (# comments, optionally
// double-quoted values), and applies recognized keys onto cfg. Unknown
// keys are ignored; out-of-range time-slice and percentage values are
// clamped rather than rejected (§7 "Invalid configuration"), while a
// non-positive or unparsable monitoring_interval_ms is ignored.
func LoadFile(path string, cfg *Config) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	applyKeyValue(values, cfg)
	return nil
}

func applyKeyValue(values map[string]string, cfg *Config) {
	if v, ok := values["monitoring_interval_ms"]; ok {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.MonitoringInterval = msDuration(ms)
		}
	}
	if v, ok := values["default_scheduling_algorithm"]; ok {
		cfg.DefaultAlgorithm = parseAlgorithm(v)
	}
	if v, ok := values["default_time_slice_ms"]; ok {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.DefaultTimeSliceMs = clampTimeSlice(ms)
		}
	}
	if v, ok := values["memory_threshold_percent"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MemoryThresholdPct = clampPercent(f)
		}
	}
	if v, ok := values["cpu_threshold_percent"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.CPUThresholdPct = clampPercent(f)
		}
	}
	if v, ok := values["enable_auto_optimization"]; ok {
		cfg.EnableAutoOptimize = parseBool(v, cfg.EnableAutoOptimize)
	}
	if v, ok := values["enable_auto_mode"]; ok {
		cfg.EnableAutoMode = parseBool(v, cfg.EnableAutoMode)
	}
	if v, ok := values["default_mode"]; ok {
		if m, ok := model.ParseMode(v); ok {
			cfg.DefaultMode = m
		}
	}
	if v, ok := values["log_level"]; ok {
		if lvl, ok := LevelFromString(v); ok {
			cfg.LogLevel = lvl
		}
	}
}

func parseAlgorithm(v string) model.Algorithm {
	switch v {
	case "round_robin":
		return model.AlgorithmRoundRobin
	case "multilevel":
		return model.AlgorithmMultilevelFeedback
	case "fair":
		return model.AlgorithmFair
	default:
		return model.AlgorithmPriorityBased
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func clampPercent(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

func clampTimeSlice(ms int) int {
	if ms < 10 {
		return 10
	}
	if ms > 500 {
		return 500
	}
	return ms
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// LoadModeOverrides reads a JSON-shaped map of per-mode configuration
// overrides (§6 "Per-mode configuration is ... overridden by a
// JSON-shaped map of the same fields") keyed by mode name.
func LoadModeOverrides(path string) (map[model.Mode]model.ModeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read overrides %s: %w", path, err)
	}
	var decoded map[string]modeOverrideJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("config: parse overrides %s: %w", path, err)
	}
	out := make(map[model.Mode]model.ModeConfig, len(decoded))
	for name, ov := range decoded {
		m, ok := model.ParseMode(name)
		if !ok {
			continue
		}
		out[m] = ov.toModeConfig(m)
	}
	return out, nil
}

type modeOverrideJSON struct {
	Algorithm              string   `json:"algorithm"`
	TimeSliceMs            int      `json:"time_slice_ms"`
	RealTimeBoost          bool     `json:"real_time_boost"`
	PriorityBoosting       bool     `json:"priority_boosting"`
	AdaptiveScheduling     bool     `json:"adaptive_scheduling"`
	MemoryStrategy         string   `json:"memory_strategy"`
	SwapEnabled            bool     `json:"swap_enabled"`
	HighPriorityNameTokens []string `json:"high_priority_name_tokens"`
	SuspendNameTokens      []string `json:"suspend_name_tokens"`
	CPUGovernor            string   `json:"cpu_governor"`
	TurboOn                bool     `json:"turbo_on"`
	ScreenBrightnessPct    int      `json:"screen_brightness_pct"`
	FreqCapPct             int      `json:"freq_cap_pct"`
}

func (ov modeOverrideJSON) toModeConfig(m model.Mode) model.ModeConfig {
	return model.ModeConfig{
		Mode:                   m,
		Algorithm:              parseAlgorithm(ov.Algorithm),
		TimeSliceMs:            ov.TimeSliceMs,
		RealTimeBoost:          ov.RealTimeBoost,
		PriorityBoosting:       ov.PriorityBoosting,
		AdaptiveScheduling:     ov.AdaptiveScheduling,
		MemoryStrategy:         parseStrategy(ov.MemoryStrategy),
		SwapEnabled:            ov.SwapEnabled,
		HighPriorityNameTokens: ov.HighPriorityNameTokens,
		SuspendNameTokens:      ov.SuspendNameTokens,
		CPUGovernor:            ov.CPUGovernor,
		TurboOn:                ov.TurboOn,
		ScreenBrightnessPct:    ov.ScreenBrightnessPct,
		FreqCapPct:             ov.FreqCapPct,
	}
}

func parseStrategy(v string) model.MemoryStrategy {
	switch v {
	case "aggressive":
		return model.StrategyAggressive
	case "conservative":
		return model.StrategyConservative
	default:
		return model.StrategyBalanced
	}
}
