package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	// A CounterVec is only gathered once it has at least one child, so
	// create one child per vector before counting families.
	m.ScheduleTotal.WithLabelValues("priority")
	m.ModeSwitchTotal.WithLabelValues("success")
	m.MitigationTotal.WithLabelValues("kill")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 6)
}

func TestObserveModeSwitchIncrementsCorrectLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveModeSwitch(true)
	m.ObserveModeSwitch(false)
	m.ObserveModeSwitch(false)

	var metric dto.Metric
	require.NoError(t, m.ModeSwitchTotal.WithLabelValues("success").Write(&metric))
	require.Equal(t, 1.0, metric.GetCounter().GetValue())

	require.NoError(t, m.ModeSwitchTotal.WithLabelValues("failure").Write(&metric))
	require.Equal(t, 2.0, metric.GetCounter().GetValue())
}

func TestObservePressureSetsGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePressure(model.PressureCritical)

	var metric dto.Metric
	require.NoError(t, m.MemoryPressure.Write(&metric))
	require.Equal(t, float64(model.PressureCritical), metric.GetGauge().GetValue())
}

func TestObserveScheduleIncrementsByAlgorithmAndCountsPreemptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSchedule("fair", false)
	m.ObserveSchedule("fair", true)
	m.ObserveSchedule("round_robin", false)

	var metric dto.Metric
	require.NoError(t, m.ScheduleTotal.WithLabelValues("fair").Write(&metric))
	require.Equal(t, 2.0, metric.GetCounter().GetValue())
	require.NoError(t, m.ScheduleTotal.WithLabelValues("round_robin").Write(&metric))
	require.Equal(t, 1.0, metric.GetCounter().GetValue())

	require.NoError(t, m.PreemptionTotal.Write(&metric))
	require.Equal(t, 1.0, metric.GetCounter().GetValue())
}

func TestObserveMitigationIncrementsCorrectLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveMitigation("cache_drop")
	m.ObserveMitigation("cache_drop")
	m.ObserveMitigation("kill")

	var metric dto.Metric
	require.NoError(t, m.MitigationTotal.WithLabelValues("cache_drop").Write(&metric))
	require.Equal(t, 2.0, metric.GetCounter().GetValue())
	require.NoError(t, m.MitigationTotal.WithLabelValues("kill").Write(&metric))
	require.Equal(t, 1.0, metric.GetCounter().GetValue())
}
