// SPDX-License-Identifier: MIT
package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voicepiano/internal/analysis"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns Metrics backed by a ManualReader.
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

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, not an int64 sum", name, met.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestFrameAnalyzed(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.FrameAnalyzed(ctx, analysis.FrameResult{Peaks: []int{10, 20, 30}, Dropped: 1}, 2*time.Millisecond)
	m.FrameAnalyzed(ctx, analysis.FrameResult{Peaks: []int{10}}, time.Millisecond)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "voicepiano.frames.analyzed"); got != 2 {
		t.Errorf("frames.analyzed = %d, want 2", got)
	}
	if got := sumValue(t, rm, "voicepiano.notes.dropped"); got != 1 {
		t.Errorf("notes.dropped = %d, want 1", got)
	}

	peaks, ok := findMetric(rm, "voicepiano.frame.peaks").Data.(metricdata.Histogram[int64])
	if !ok || len(peaks.DataPoints) != 1 {
		t.Fatalf("frame.peaks = %+v", findMetric(rm, "voicepiano.frame.peaks"))
	}
	if dp := peaks.DataPoints[0]; dp.Count != 2 || dp.Sum != 4 {
		t.Errorf("frame.peaks count/sum = %d/%d, want 2/4", dp.Count, dp.Sum)
	}

	dur, ok := findMetric(rm, "voicepiano.frame.duration").Data.(metricdata.Histogram[float64])
	if !ok || len(dur.DataPoints) != 1 {
		t.Fatal("frame.duration missing")
	}
	if got := dur.DataPoints[0].Sum; got < 0.0029 || got > 0.0031 {
		t.Errorf("frame.duration sum = %v, want 0.003", got)
	}
}

func TestNoteCounters(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.NoteOn(0, analysis.NoteEvent{Note: 40, Amplitude: 1})
	m.NoteOn(0, analysis.NoteEvent{Note: 44, Amplitude: 1})
	m.NoteOff(time.Second, 40)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "voicepiano.note_on"); got != 2 {
		t.Errorf("note_on = %d, want 2", got)
	}
	if got := sumValue(t, rm, "voicepiano.note_off"); got != 1 {
		t.Errorf("note_off = %d, want 1", got)
	}
	if got := sumValue(t, rm, "voicepiano.keys_down"); got != 1 {
		t.Errorf("keys_down = %d, want 1", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	p, err := InitProvider(context.Background(), ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider)
	if err != nil {
		t.Fatal(err)
	}
	m.NoteOn(0, analysis.NoteEvent{Note: 1, Amplitude: 1})

	srv := httptest.NewServer(p.Handler)
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "voicepiano_note_on") {
		t.Errorf("scrape output lacks voicepiano_note_on:\n%s", body)
	}
}
