package observe

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
)

// Observer records arbiter activity into [Metrics].
type Observer struct {
	m *Metrics
}

var _ port.Observer = (*Observer)(nil)

// NewObserver returns an arbiter observer backed by m.
func NewObserver(m *Metrics) *Observer {
	return &Observer{m: m}
}

// Signal counts one dispatched signal.
func (o *Observer) Signal(sig port.Signal, state port.State, result pkg.Result) {
	o.m.Signals.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("signal", sig.Kind().String()),
		attribute.String("state", state.String()),
		attribute.String("result", result.String()),
	))
}

// Transition counts the state change and moves the state gauge.
func (o *Observer) Transition(from, to port.State) {
	ctx := context.Background()
	o.m.Transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
	o.m.State.Record(ctx, 0, metric.WithAttributes(attribute.String("state", from.String())))
	o.m.State.Record(ctx, 1, metric.WithAttributes(attribute.String("state", to.String())))
}

// LineWrite counts one OTG line write.
func (o *Observer) LineWrite(enabled bool, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.m.LineWrites.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("enabled", strconv.FormatBool(enabled)),
		attribute.String("status", status),
	))
}

// Initial records the state the arbiter starts in.
func (o *Observer) Initial(state port.State) {
	o.m.State.Record(context.Background(), 1, metric.WithAttributes(attribute.String("state", state.String())))
}
