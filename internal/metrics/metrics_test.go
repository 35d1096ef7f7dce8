package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := New(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func sum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range data.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetrics_Counters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Recorded(ctx, "a")
	m.Recorded(ctx, "b")
	m.Written(ctx, "/tmp/x.log")
	m.Failed(ctx, "/tmp/x.log")
	m.Replayed(ctx, 3, PhaseReplay)
	m.Replayed(ctx, 0, PhaseHandoff)

	assert.Equal(t, int64(2), sum(t, reader, "sysevents_events_recorded_total"))
	assert.Equal(t, int64(1), sum(t, reader, "sysevents_lines_written_total"))
	assert.Equal(t, int64(1), sum(t, reader, "sysevents_write_failures_total"))
	assert.Equal(t, int64(3), sum(t, reader, "sysevents_events_replayed_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Recorded(ctx, "a")
		m.Written(ctx, "p")
		m.Failed(ctx, "p")
		m.Replayed(ctx, 1, PhaseHandoff)
	})
}

func TestDefault(t *testing.T) {
	assert.NotNil(t, Default())
}

func TestDefault_RecordsThroughGlobalProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(noop.NewMeterProvider())
		_ = provider.Shutdown(context.Background())
	})

	m := Default()
	require.NotNil(t, m)
	m.Written(context.Background(), "/tmp/x.log")

	assert.Equal(t, int64(1), sum(t, reader, "sysevents_lines_written_total"))
}
