package app

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Taragi14/smart-resource-scheduler/internal/config"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

func TestNewWiresEveryComponent(t *testing.T) {
	a := New(config.Default(), nil)
	require.NotNil(t, a.Observer)
	require.NotNil(t, a.Control)
	require.NotNil(t, a.Memory)
	require.NotNil(t, a.Scheduler)
	require.NotNil(t, a.Mode)
	require.Nil(t, a.Metrics)
}

func TestNewRegistersMetricsWhenRegistererProvided(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(config.Default(), reg)
	require.NotNil(t, a.Metrics)
}

func TestSetNiceOnUnobservedPIDFails(t *testing.T) {
	a := New(config.Default(), nil)
	err := a.SetNice(1<<30, 0)
	require.Error(t, err)
}

func TestCurrentModeDefaultsToBalanced(t *testing.T) {
	a := New(config.Default(), nil)
	require.Equal(t, model.ModeBalanced, a.CurrentMode())
}
