// Package config parses the scheduler's runtime configuration: the §6
// key=value file format (via godotenv) plus per-mode JSON overrides,
// and command-line/environment overrides in the teacher's own
// FromFlags style.
package config

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// Config carries runtime options for the scheduler daemon.
type Config struct {
	MonitoringInterval time.Duration
	DefaultAlgorithm   model.Algorithm
	DefaultTimeSliceMs int
	MemoryThresholdPct float64
	CPUThresholdPct    float64
	EnableAutoOptimize bool
	EnableAutoMode     bool
	DefaultMode        model.Mode
	LogLevel           slog.Level

	ConfigFilePath string
}

// Default returns the spec's stated defaults.
func Default() Config {
	return Config{
		MonitoringInterval: time.Second,
		DefaultAlgorithm:   model.AlgorithmPriorityBased,
		DefaultTimeSliceMs: 50,
		MemoryThresholdPct: 70,
		CPUThresholdPct:    80,
		EnableAutoOptimize: true,
		EnableAutoMode:     false,
		DefaultMode:        model.ModeBalanced,
		LogLevel:           slog.LevelInfo,
	}
}

// FromFlags parses command-line flags and environment overrides on top
// of Default(), following the teacher's own config.FromFlags shape.
func FromFlags(args []string) Config {
	cfg := Default()
	fs := flag.NewFlagSet("srsd", flag.ContinueOnError)
	fs.DurationVar(&cfg.MonitoringInterval, "interval", cfg.MonitoringInterval, "observer poll interval")
	fs.IntVar(&cfg.DefaultTimeSliceMs, "time-slice", cfg.DefaultTimeSliceMs, "scheduler default time slice (ms)")
	fs.Float64Var(&cfg.MemoryThresholdPct, "mem-threshold", cfg.MemoryThresholdPct, "memory low-pressure threshold percent")
	fs.Float64Var(&cfg.CPUThresholdPct, "cpu-threshold", cfg.CPUThresholdPct, "cpu alert threshold percent")
	fs.BoolVar(&cfg.EnableAutoOptimize, "auto-optimize", cfg.EnableAutoOptimize, "enable memory auto-optimization")
	fs.BoolVar(&cfg.EnableAutoMode, "auto-mode", cfg.EnableAutoMode, "enable mode auto-detection")
	configPath := fs.String("config", "", "path to key=value config file")
	_ = fs.Parse(args)

	if v := os.Getenv("SRS_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.MonitoringInterval = parsed
		}
	}
	if v := os.Getenv("SRS_AUTO_MODE"); v == "0" {
		cfg.EnableAutoMode = false
	} else if v == "1" {
		cfg.EnableAutoMode = true
	}
	cfg.ConfigFilePath = *configPath
	if cfg.ConfigFilePath == "" {
		cfg.ConfigFilePath = os.Getenv("SRS_CONFIG")
	}
	return cfg
}

// LevelFromString maps the §6 log_level key's spelling to a slog.Level.
func LevelFromString(s string) (slog.Level, bool) {
	switch s {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warning", "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "critical":
		return slog.LevelError + 4, true
	default:
		return slog.LevelInfo, false
	}
}
