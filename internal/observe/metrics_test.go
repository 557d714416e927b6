package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
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

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
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

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"twinmind.segment.duration", m.SegmentDuration},
		{"twinmind.normalize.duration", m.NormalizeDuration},
		{"twinmind.stt.duration", m.STTDuration},
		{"twinmind.llm.duration", m.LLMDuration},
		{"twinmind.summary.duration", m.SummaryDuration},
		{"twinmind.tool_execution.duration", m.ToolExecutionDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			found := findMetric(rm, tc.name)
			if found == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := found.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a float64 histogram", tc.name)
			}
			if len(hist.DataPoints) != 1 {
				t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
			}
			if hist.DataPoints[0].Count != 2 {
				t.Errorf("count = %d, want 2", hist.DataPoints[0].Count)
			}
		})
	}
}

func TestGaugeUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)
	m.InFlightSegments.Add(ctx, 3)
	m.InFlightSegments.Add(ctx, -3)

	rm := collect(t, reader)

	sessions := findMetric(rm, "twinmind.active_sessions")
	if sessions == nil {
		t.Fatal("twinmind.active_sessions not found")
	}
	sum, ok := sessions.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("active_sessions is not an int64 sum")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("active_sessions = %d, want 1", got)
	}

	inflight := findMetric(rm, "twinmind.inflight_segments")
	if inflight == nil {
		t.Fatal("twinmind.inflight_segments not found")
	}
	sum, ok = inflight.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("inflight_segments is not an int64 sum")
	}
	if got := sum.DataPoints[0].Value; got != 0 {
		t.Errorf("inflight_segments = %d, want 0", got)
	}
}

func TestConvenienceRecorders(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "whisper", "stt", "ok")
	m.RecordToolCall(ctx, "ask_meeting", "ok")

	rm := collect(t, reader)

	if findMetric(rm, "twinmind.provider.requests") == nil {
		t.Error("twinmind.provider.requests not recorded")
	}
	if findMetric(rm, "twinmind.tool.calls") == nil {
		t.Error("twinmind.tool.calls not recorded")
	}
}
