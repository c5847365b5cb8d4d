package metrics_test

import (
	"testing"

	"github.com/2beens/tricoach/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RegistersDomainMetrics(t *testing.T) {
	m, reg := metrics.NewTestManagerAndRegistry()

	m.CounterWorkoutsAppended.WithLabelValues("Run").Inc()
	m.CounterWorkoutsAppended.WithLabelValues("Run").Inc()
	m.CounterAnalysisPasses.WithLabelValues("ok").Inc()
	m.CounterRowsDropped.Add(3)
	m.HistogramAnalysisDuration.Observe(0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterWorkoutsAppended.WithLabelValues("Run")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterRowsDropped))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}
	require.Contains(t, byName, "tricoach_test_server_analysis_duration_seconds")
	assert.Equal(t, uint64(1), byName["tricoach_test_server_analysis_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())
	require.Contains(t, byName, "tricoach_test_server_analysis_passes")
	assert.Equal(t, dto.MetricType_COUNTER, byName["tricoach_test_server_analysis_passes"].GetType())
}

func TestSetupPrometheus(t *testing.T) {
	reg := metrics.SetupPrometheus()
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
