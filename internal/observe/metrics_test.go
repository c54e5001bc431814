package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere returns the value of the int64 sum data point whose attributes
// include every key/value in attrs.
func sumWhere(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs map[string]string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if matches(dp.Attributes.ToSlice(), attrs) {
			return dp.Value
		}
	}
	return 0
}

func gaugeWhere(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs map[string]string) (int64, bool) {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	g, ok := met.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 gauge", name)
	}
	for _, dp := range g.DataPoints {
		if matches(dp.Attributes.ToSlice(), attrs) {
			return dp.Value, true
		}
	}
	return 0, false
}

func matches(kvs []attribute.KeyValue, want map[string]string) bool {
	found := 0
	for _, kv := range kvs {
		if v, ok := want[string(kv.Key)]; ok && kv.Value.AsString() == v {
			found++
		}
	}
	return found == len(want)
}

// =============================================================================
// Instrument Tests
// =============================================================================

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordHardwareEvent(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHardwareEvent(ctx, "headset")
	m.RecordHardwareEvent(ctx, "headset")
	m.RecordHardwareEvent(ctx, "usb_attach")

	rm := collect(t, reader)
	if got := sumWhere(t, rm, "otgmode.hal.events", map[string]string{"kind": "headset"}); got != 2 {
		t.Errorf("headset events = %d, want 2", got)
	}
	if got := sumWhere(t, rm, "otgmode.hal.events", map[string]string{"kind": "usb_attach"}); got != 1 {
		t.Errorf("usb_attach events = %d, want 1", got)
	}
}

// =============================================================================
// Observer Tests
// =============================================================================

func TestObserver_Signal(t *testing.T) {
	m, reader := newTestMetrics(t)
	o := NewObserver(m)

	o.Signal(port.HeadsetConnected(), port.StateDisconnected, pkg.ResultHandled)
	o.Signal(port.ProbeTimeout(), port.StateOTGMode, pkg.ResultUnhandled)
	o.Signal(port.ProbeTimeout(), port.StateOTGMode, pkg.ResultUnhandled)

	rm := collect(t, reader)
	got := sumWhere(t, rm, "otgmode.arbiter.signals", map[string]string{
		"signal": port.SignalProbeTimeout.String(),
		"state":  "otg",
		"result": pkg.ResultUnhandled.String(),
	})
	if got != 2 {
		t.Errorf("unhandled timeouts = %d, want 2", got)
	}
}

func TestObserver_Transition(t *testing.T) {
	m, reader := newTestMetrics(t)
	o := NewObserver(m)

	o.Initial(port.StateDisconnected)
	o.Transition(port.StateDisconnected, port.StateDetectWait)
	o.Transition(port.StateDetectWait, port.StateOTGMode)

	rm := collect(t, reader)
	if got := sumWhere(t, rm, "otgmode.arbiter.transitions", map[string]string{"from": "detect_wait", "to": "otg"}); got != 1 {
		t.Errorf("detect_wait->otg = %d, want 1", got)
	}

	tests := []struct {
		state string
		want  int64
	}{
		{"disconnected", 0},
		{"detect_wait", 0},
		{"otg", 1},
	}
	for _, tt := range tests {
		v, ok := gaugeWhere(t, rm, "otgmode.arbiter.state", map[string]string{"state": tt.state})
		if !ok {
			t.Errorf("no gauge point for %s", tt.state)
			continue
		}
		if v != tt.want {
			t.Errorf("state gauge %s = %d, want %d", tt.state, v, tt.want)
		}
	}
}

func TestObserver_LineWrite(t *testing.T) {
	m, reader := newTestMetrics(t)
	o := NewObserver(m)

	o.LineWrite(true, nil)
	o.LineWrite(false, errors.New("read-only file system"))

	rm := collect(t, reader)
	if got := sumWhere(t, rm, "otgmode.line.writes", map[string]string{"enabled": "true", "status": "ok"}); got != 1 {
		t.Errorf("ok writes = %d, want 1", got)
	}
	if got := sumWhere(t, rm, "otgmode.line.writes", map[string]string{"enabled": "false", "status": "error"}); got != 1 {
		t.Errorf("failed writes = %d, want 1", got)
	}
}

// =============================================================================
// HTTP Tests
// =============================================================================

func TestMiddleware_RecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)

	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/state", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "otgmode.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("data points = %+v, want one sample", hist.DataPoints)
	}
}

func TestProvider_Handler(t *testing.T) {
	p, err := InitProvider(context.Background(), ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	NewObserver(p.Metrics()).Transition(port.StateDisconnected, port.StateDetectWait)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "arbiter_transitions") && !strings.Contains(body, "arbiter.transitions") {
		t.Errorf("exposition missing transitions counter:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("exposition missing go runtime collector")
	}
}
