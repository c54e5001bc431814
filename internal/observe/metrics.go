// Package observe provides OpenTelemetry metrics for otgmoded and the
// adapter that feeds arbiter activity into them.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// for scraping through a Prometheus registry created by [InitProvider].
// Tests use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all otgmoded metrics.
const meterName = "github.com/ardnew/otgmode"

// Metrics holds the metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// Signals counts arbiter inputs. Attributes: signal, state, result.
	Signals metric.Int64Counter

	// Transitions counts state changes. Attributes: from, to.
	Transitions metric.Int64Counter

	// LineWrites counts OTG line writes. Attributes: enabled, status.
	LineWrites metric.Int64Counter

	// State is 1 for the current arbiter state and 0 for the others.
	// Attribute: state.
	State metric.Int64Gauge

	// HardwareEvents counts raw HAL events. Attribute: kind.
	HardwareEvents metric.Int64Counter

	// Subscribers tracks open event stream subscriptions.
	Subscribers metric.Int64UpDownCounter

	// HTTPRequestDuration tracks control API latency. Attributes: method,
	// path.
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics creates a [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.Signals, err = m.Int64Counter("otgmode.arbiter.signals",
		metric.WithDescription("Arbiter signals by kind, state, and disposition."),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("otgmode.arbiter.transitions",
		metric.WithDescription("Arbiter state transitions."),
	); err != nil {
		return nil, err
	}
	if met.LineWrites, err = m.Int64Counter("otgmode.line.writes",
		metric.WithDescription("OTG line writes by target level and status."),
	); err != nil {
		return nil, err
	}
	if met.HardwareEvents, err = m.Int64Counter("otgmode.hal.events",
		metric.WithDescription("Raw hardware events by kind."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.State, err = m.Int64Gauge("otgmode.arbiter.state",
		metric.WithDescription("1 for the current arbiter state, 0 otherwise."),
	); err != nil {
		return nil, err
	}
	if met.Subscribers, err = m.Int64UpDownCounter("otgmode.events.subscribers",
		metric.WithDescription("Open event stream subscriptions."),
	); err != nil {
		return nil, err
	}

	// HTTP.
	if met.HTTPRequestDuration, err = m.Float64Histogram("otgmode.http.request.duration",
		metric.WithDescription("Control API request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordHardwareEvent counts one raw HAL event.
func (m *Metrics) RecordHardwareEvent(ctx context.Context, kind string) {
	m.HardwareEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
