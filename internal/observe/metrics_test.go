package observe_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/madhatbot/madhat/internal/observe"
)

func TestNewMetricsRecords(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", "nn"),
		attribute.String("status", "ok"),
	))
	m.Shuffles.Add(ctx, 1)
	m.ShuffleDuration.Record(ctx, 0.02)
	m.ActiveGuilds.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("Collect: expected recorded metrics, got none")
	}

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, inst := range sm.Metrics {
			names[inst.Name] = true
		}
	}
	for _, want := range []string{"madhat.commands", "madhat.shuffles", "madhat.shuffle.duration", "madhat.active_guilds"} {
		if !names[want] {
			t.Errorf("Collect: missing instrument %q (got %v)", want, names)
		}
	}
}
