// SPDX-License-Identifier: MIT

// Package observe records pipeline metrics through the OpenTelemetry
// Metrics API. A Prometheus bridge is available via InitProvider so they
// can be scraped from /metrics; tests should use NewMetrics with their own
// metric.MeterProvider.
package observe

import (
	"context"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/piano"

	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all voicepiano metrics.
const meterName = "voicepiano"

// Metrics holds the metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// FramesAnalyzed counts analysed frames.
	FramesAnalyzed metric.Int64Counter

	// FrameDuration tracks the time to analyse one frame.
	FrameDuration metric.Float64Histogram

	// PeaksPerFrame tracks how many peaks each frame produced.
	PeaksPerFrame metric.Int64Histogram

	// NotesDropped counts peaks whose note fell off the keyboard after the
	// shift.
	NotesDropped metric.Int64Counter

	// NoteOns and NoteOffs count emitted key transitions.
	NoteOns  metric.Int64Counter
	NoteOffs metric.Int64Counter

	// KeysDown tracks the number of sounding keys.
	KeysDown metric.Int64UpDownCounter
}

// frameBuckets covers per-frame analysis times, in seconds.
var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesAnalyzed, err = m.Int64Counter("voicepiano.frames.analyzed",
		metric.WithDescription("Total analysed frames."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("voicepiano.frame.duration",
		metric.WithDescription("Time to analyse one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PeaksPerFrame, err = m.Int64Histogram("voicepiano.frame.peaks",
		metric.WithDescription("Spectral peaks found per frame."),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 6, 8, 12, 16),
	); err != nil {
		return nil, err
	}
	if met.NotesDropped, err = m.Int64Counter("voicepiano.notes.dropped",
		metric.WithDescription("Peaks dropped because the shifted note left the keyboard."),
	); err != nil {
		return nil, err
	}
	if met.NoteOns, err = m.Int64Counter("voicepiano.note_on",
		metric.WithDescription("Total note-on events."),
	); err != nil {
		return nil, err
	}
	if met.NoteOffs, err = m.Int64Counter("voicepiano.note_off",
		metric.WithDescription("Total note-off events."),
	); err != nil {
		return nil, err
	}
	if met.KeysDown, err = m.Int64UpDownCounter("voicepiano.keys_down",
		metric.WithDescription("Number of sounding keys."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// FrameAnalyzed records one analysed frame.
func (m *Metrics) FrameAnalyzed(ctx context.Context, res analysis.FrameResult, elapsed time.Duration) {
	m.FramesAnalyzed.Add(ctx, 1)
	m.FrameDuration.Record(ctx, elapsed.Seconds())
	m.PeaksPerFrame.Record(ctx, int64(len(res.Peaks)))
	if res.Dropped > 0 {
		m.NotesDropped.Add(ctx, int64(res.Dropped))
	}
}

func (m *Metrics) NoteOn(time.Duration, analysis.NoteEvent) {
	ctx := context.Background()
	m.NoteOns.Add(ctx, 1)
	m.KeysDown.Add(ctx, 1)
}

func (m *Metrics) NoteOff(time.Duration, int) {
	ctx := context.Background()
	m.NoteOffs.Add(ctx, 1)
	m.KeysDown.Add(ctx, -1)
}

var (
	_ analysis.Observer = (*Metrics)(nil)
	_ piano.Sink        = (*Metrics)(nil)
)
