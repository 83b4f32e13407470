package mode

import "github.com/Taragi14/smart-resource-scheduler/internal/model"

// defaultModeTable holds the compiled-in per-mode configuration
// defaults (§4.5).
func defaultModeTable() map[model.Mode]model.ModeConfig {
	return map[model.Mode]model.ModeConfig{
		model.ModeGaming: {
			Mode:                   model.ModeGaming,
			Algorithm:              model.AlgorithmPriorityBased,
			TimeSliceMs:            50,
			RealTimeBoost:          true,
			PriorityBoosting:       true,
			AdaptiveScheduling:     true,
			MemoryStrategy:         model.StrategyConservative,
			SwapEnabled:            false,
			HighPriorityNameTokens: []string{"game", "steam"},
			SuspendNameTokens:      []string{"updater", "update"},
			CPUGovernor:            "performance",
			TurboOn:                true,
		},
		model.ModeProductivity: {
			Mode:               model.ModeProductivity,
			Algorithm:          model.AlgorithmFair,
			TimeSliceMs:        100,
			PriorityBoosting:   true,
			AdaptiveScheduling: true,
			MemoryStrategy:     model.StrategyBalanced,
			SwapEnabled:        true,
			CPUGovernor:        "ondemand",
			TurboOn:            false,
		},
		model.ModePowerSaving: {
			Mode:                model.ModePowerSaving,
			Algorithm:           model.AlgorithmRoundRobin,
			TimeSliceMs:         200,
			PriorityBoosting:    true,
			AdaptiveScheduling:  true,
			MemoryStrategy:      model.StrategyAggressive,
			SwapEnabled:         true,
			CPUGovernor:         "powersave",
			TurboOn:             false,
			ScreenBrightnessPct: 30,
			FreqCapPct:          60,
		},
		model.ModeBalanced: {
			Mode:               model.ModeBalanced,
			Algorithm:          model.AlgorithmPriorityBased,
			TimeSliceMs:        100,
			PriorityBoosting:   true,
			AdaptiveScheduling: true,
			MemoryStrategy:     model.StrategyBalanced,
			SwapEnabled:        true,
			CPUGovernor:        "ondemand",
			TurboOn:            false,
		},
	}
}
