// Package observe provides application-wide observability primitives for
// madhat: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all madhat metrics.
const meterName = "github.com/madhatbot/madhat"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Commands counts slash command invocations. Use with attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// Renames counts nickname mutation calls issued to the gateway.
	// Use with attribute: attribute.String("op", ...)
	Renames metric.Int64Counter

	// Shuffles counts fired shuffles.
	Shuffles metric.Int64Counter

	// Restores counts completed restores.
	Restores metric.Int64Counter

	// TriggerSuppressed counts trigger messages that matched a keyword but
	// did not fire. Use with attribute: attribute.String("reason", ...)
	TriggerSuppressed metric.Int64Counter

	// ShuffleDuration tracks the time from trigger to the last rename call
	// being issued.
	ShuffleDuration metric.Float64Histogram

	// ActiveGuilds tracks the number of guilds the bot is connected to.
	ActiveGuilds metric.Int64UpDownCounter
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized
// for backup-plus-shuffle work over a guild member list.
var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Commands, err = m.Int64Counter("madhat.commands",
		metric.WithDescription("Total slash command invocations by command and status."),
	); err != nil {
		return nil, err
	}
	if met.Renames, err = m.Int64Counter("madhat.renames",
		metric.WithDescription("Total nickname mutation calls issued to the gateway."),
	); err != nil {
		return nil, err
	}
	if met.Shuffles, err = m.Int64Counter("madhat.shuffles",
		metric.WithDescription("Total nickname shuffles fired."),
	); err != nil {
		return nil, err
	}
	if met.Restores, err = m.Int64Counter("madhat.restores",
		metric.WithDescription("Total nickname restores completed."),
	); err != nil {
		return nil, err
	}
	if met.TriggerSuppressed, err = m.Int64Counter("madhat.trigger.suppressed",
		metric.WithDescription("Trigger messages suppressed, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ShuffleDuration, err = m.Float64Histogram("madhat.shuffle.duration",
		metric.WithDescription("Time from trigger to the last rename call issued."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveGuilds, err = m.Int64UpDownCounter("madhat.active_guilds",
		metric.WithDescription("Number of guilds the bot is connected to."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
