package extensions

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	observe "github.com/substrate-fn/observe"
)

const instrumentationName = "github.com/substrate-fn/observe"

// MetricsHook records scheduler activity as OpenTelemetry metrics:
// recompute and failure counts, commit counts, callback counts and
// recompute latency, each attributed to the node name.
type MetricsHook struct {
	observe.BaseHook

	recomputes metric.Int64Counter
	failures   metric.Int64Counter
	commits    metric.Int64Counter
	callbacks  metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewMetricsHook creates a metrics hook reporting through the given
// meter provider.
func NewMetricsHook(provider metric.MeterProvider) (*MetricsHook, error) {
	meter := provider.Meter(instrumentationName)
	h := &MetricsHook{BaseHook: observe.NewBaseHook("metrics")}

	var err error
	if h.recomputes, err = meter.Int64Counter(
		"observe.recomputes",
		metric.WithDescription("Recompute attempts, successful or contained"),
	); err != nil {
		return nil, err
	}
	if h.failures, err = meter.Int64Counter(
		"observe.recompute_failures",
		metric.WithDescription("Recomputes contained at the node"),
	); err != nil {
		return nil, err
	}
	if h.commits, err = meter.Int64Counter(
		"observe.commits",
		metric.WithDescription("Committed snapshots"),
	); err != nil {
		return nil, err
	}
	if h.callbacks, err = meter.Int64Counter(
		"observe.callbacks",
		metric.WithDescription("Subscriber invocations"),
	); err != nil {
		return nil, err
	}
	if h.latency, err = meter.Float64Histogram(
		"observe.recompute_duration",
		metric.WithDescription("Recompute duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *MetricsHook) OnRecompute(ev observe.RecomputeEvent) {
	attrs := metric.WithAttributes(attribute.String("node", ev.Node.Name))
	ctx := context.Background()
	h.recomputes.Add(ctx, 1, attrs)
	h.latency.Record(ctx, ev.Duration.Seconds(), attrs)
	if ev.Err != nil {
		h.failures.Add(ctx, 1, attrs)
	}
}

func (h *MetricsHook) OnCommit(ev observe.CommitEvent) {
	h.commits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("node", ev.Node.Name)))
}

func (h *MetricsHook) OnCallback(ev observe.CallbackEvent) {
	h.callbacks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("node", ev.Node.Name)))
}
