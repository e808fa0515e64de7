package extensions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	observe "github.com/substrate-fn/observe"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			sums[metric.Name] = total
		}
	}
	return sums
}

func TestMetricsHook(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	hook, err := NewMetricsHook(provider)
	require.NoError(t, err)
	require.Equal(t, "metrics", hook.Name())

	m := observe.New(observe.WithHook(hook))
	defer m.Close()

	observable := observe.NewObservable(1, observe.WithManager(m), observe.WithName("input"))
	observer, err := observe.MakeObserver(func(ctx *observe.ComputeCtx) (int, error) {
		v := observable.Observer().Read(ctx)
		if v == 13 {
			return 0, errors.New("unlucky")
		}
		return v + 1, nil
	}, observe.WithManager(m), observe.WithName("output"))
	require.NoError(t, err)

	handle := observer.AddCallback(func(observe.Snapshot[int]) {})
	defer handle.Cancel()

	observable.SetValue(2)
	m.WaitForAllUpdates()
	observable.SetValue(13)
	m.WaitForAllUpdates()

	sums := collectSums(t, reader)
	assert.Positive(t, sums["observe.recomputes"])
	assert.Positive(t, sums["observe.recompute_failures"])
	assert.Positive(t, sums["observe.commits"])
	assert.Positive(t, sums["observe.callbacks"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name == "observe.recompute_duration" {
				if h, ok := metric.Data.(metricdata.Histogram[float64]); ok && len(h.DataPoints) > 0 {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "recompute latency histogram must record")
}
