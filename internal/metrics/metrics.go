// Package metrics exposes Prometheus counters and gauges for the
// figures the original implementation's PerformanceTracker logged to a
// file (§1 non-goals exclude the log-sink itself, not the figures).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

// Metrics bundles the scheduler's Prometheus collectors. Register once
// with a prometheus.Registerer and share the instance across
// components.
type Metrics struct {
	ScheduleTotal   *prometheus.CounterVec
	PreemptionTotal prometheus.Counter
	ModeSwitchTotal *prometheus.CounterVec
	MemoryPressure  prometheus.Gauge
	CPUTotalPct     prometheus.Gauge
	MitigationTotal *prometheus.CounterVec
}

// New constructs and registers the scheduler's metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScheduleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srs",
			Subsystem: "scheduler",
			Name:      "schedule_total",
			Help:      "Count of scheduling selections per algorithm.",
		}, []string{"algorithm"}),
		PreemptionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "srs",
			Subsystem: "scheduler",
			Name:      "preemption_total",
			Help:      "Count of context switches away from a running process.",
		}),
		ModeSwitchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srs",
			Subsystem: "mode",
			Name:      "switch_total",
			Help:      "Count of mode switch attempts by result.",
		}, []string{"result"}),
		MemoryPressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "srs",
			Subsystem: "memory",
			Name:      "pressure_level",
			Help:      "Current memory pressure level (0=low .. 3=critical).",
		}),
		CPUTotalPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "srs",
			Subsystem: "observer",
			Name:      "cpu_total_pct",
			Help:      "Most recently observed system-wide CPU percentage.",
		}),
		MitigationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "srs",
			Subsystem: "memory",
			Name:      "mitigation_total",
			Help:      "Count of memory mitigation actions by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.ScheduleTotal, m.PreemptionTotal, m.ModeSwitchTotal, m.MemoryPressure, m.CPUTotalPct, m.MitigationTotal)
	return m
}

// ObserveModeSwitch records a mode-switch outcome.
func (m *Metrics) ObserveModeSwitch(success bool) {
	if success {
		m.ModeSwitchTotal.WithLabelValues("success").Inc()
	} else {
		m.ModeSwitchTotal.WithLabelValues("failure").Inc()
	}
}

// ObservePressure records the current pressure level as a gauge value.
func (m *Metrics) ObservePressure(level model.PressureLevel) {
	m.MemoryPressure.Set(float64(level))
}

// ObserveSchedule records a scheduling selection for the given
// algorithm, and a preemption if this selection replaced the
// previously running process.
func (m *Metrics) ObserveSchedule(algorithm string, preempted bool) {
	m.ScheduleTotal.WithLabelValues(algorithm).Inc()
	if preempted {
		m.PreemptionTotal.Inc()
	}
}

// ObserveMitigation records a memory mitigation action of the given
// kind ("cache_drop", "compaction", "optimize", "kill").
func (m *Metrics) ObserveMitigation(kind string) {
	m.MitigationTotal.WithLabelValues(kind).Inc()
}
