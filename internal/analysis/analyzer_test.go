// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"voicepiano/internal/fft"
	"voicepiano/internal/frame"
	"voicepiano/pkg/utils"
)

var testEngine = fft.NewEngine()

type countingObserver struct {
	mu     sync.Mutex
	frames []int
}

func (o *countingObserver) FrameAnalyzed(_ context.Context, res FrameResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, res.Index)
}

func newTestAnalyzer(t *testing.T, mutate func(*Config)) *Analyzer {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewAnalyzer(cfg, testEngine)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func notesOf(events []NoteEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Note
	}
	return out
}

// A4 at full scale: bin 41 (441.4 Hz), key 48, shifted down five to 43.
func TestAnalyzeFrameA4(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	f := frame.Frame{Samples: utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 1.0)}

	res, err := a.AnalyzeFrame(context.Background(), f)
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	if !slices.Equal(res.Peaks, []int{41}) {
		t.Errorf("peaks = %v, want [41]", res.Peaks)
	}
	if len(res.Notes) != 1 || res.Notes[0].Note != 43 {
		t.Fatalf("notes = %v, want [43]", res.Notes)
	}
	if amp := res.Notes[0].Amplitude; amp < 0.8 || amp > 0.9 {
		t.Errorf("amplitude = %f, want about 0.85", amp)
	}
	if len(res.Spectrum) != testFrameSize/2 {
		t.Errorf("spectrum has %d bins, want %d", len(res.Spectrum), testFrameSize/2)
	}
}

func TestAnalyzeFrameChord(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	f := frame.Frame{Samples: utils.GenerateChord(testFrameSize, testSampleRate, 261.63, 329.63, 392.0)}

	res, err := a.AnalyzeFrame(context.Background(), f)
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	// C4 E4 G4 shifted down a fourth.
	if got := notesOf(res.Notes); !slices.Equal(got, []int{34, 38, 41}) {
		t.Errorf("notes = %v, want [34 38 41]", got)
	}
}

func TestAnalyzeFrameSilence(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	res, err := a.AnalyzeFrame(context.Background(), frame.Frame{Samples: make([]float64, testFrameSize)})
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	if len(res.Peaks) != 0 || len(res.Notes) != 0 {
		t.Errorf("silence produced peaks %v notes %v", res.Peaks, res.Notes)
	}
}

func TestAnalyzeFrameInvalidSize(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	for _, n := range []int{4095, 2048, 0} {
		_, err := a.AnalyzeFrame(context.Background(), frame.Frame{Samples: make([]float64, n)})
		if !errors.Is(err, frame.ErrInvalidFrameSize) {
			t.Errorf("size %d: err = %v, want ErrInvalidFrameSize", n, err)
		}
	}
}

func TestAnalyzeBuffer(t *testing.T) {
	a := newTestAnalyzer(t, func(c *Config) { c.Workers = 2 })
	obs := &countingObserver{}
	a.SetObserver(obs)

	samples := utils.Concat(
		utils.GenerateSineWave(testFrameSize, testSampleRate, 440, 1.0),
		make([]float64, testFrameSize),
		utils.GenerateSineWave(testFrameSize/2, testSampleRate, 440, 1.0),
	)
	results, err := a.AnalyzeBuffer(context.Background(), frame.Buffer{Samples: samples, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("AnalyzeBuffer: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d frames, want 3", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
	}
	if len(results[0].Notes) != 1 || len(results[1].Notes) != 0 {
		t.Errorf("frame notes = %v / %v", results[0].Notes, results[1].Notes)
	}

	slices.Sort(obs.frames)
	if !slices.Equal(obs.frames, []int{0, 1, 2}) {
		t.Errorf("observer saw frames %v", obs.frames)
	}
}

func TestAnalyzeBufferLowPass(t *testing.T) {
	a := newTestAnalyzer(t, func(c *Config) { c.LowPass = true })
	samples := utils.GenerateSineWave(2*testFrameSize, testSampleRate, 440, 1.0)
	results, err := a.AnalyzeBuffer(context.Background(), frame.Buffer{Samples: samples, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("AnalyzeBuffer: %v", err)
	}
	if got := notesOf(results[1].Notes); !slices.Equal(got, []int{43}) {
		t.Errorf("notes = %v, want [43]", got)
	}
}

func TestAnalyzeBufferEmpty(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	obs := &countingObserver{}
	a.SetObserver(obs)

	results, err := a.AnalyzeBuffer(context.Background(), frame.Buffer{SampleRate: testSampleRate})
	if !errors.Is(err, frame.ErrNoAudioData) {
		t.Fatalf("err = %v, want ErrNoAudioData", err)
	}
	if results != nil || len(obs.frames) != 0 {
		t.Errorf("empty buffer produced %d results, %d observed frames", len(results), len(obs.frames))
	}
}

func TestAnalyzeBufferErrors(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	buf := frame.Buffer{Samples: make([]float64, testFrameSize), SampleRate: 48000}
	if _, err := a.AnalyzeBuffer(context.Background(), buf); err == nil {
		t.Error("sample rate mismatch should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf.SampleRate = testSampleRate
	if _, err := a.AnalyzeBuffer(ctx, buf); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		isSize bool
	}{
		{"frame size", func(c *Config) { c.FrameSize = 4095 }, true},
		{"sample rate", func(c *Config) { c.SampleRate = 0 }, false},
		{"low-pass above nyquist", func(c *Config) { c.LowPass = true; c.LowPassHz = 30000 }, false},
		{"workers", func(c *Config) { c.Workers = -1 }, false},
		{"peaks", func(c *Config) { c.Peaks.Trigger = 0 }, false},
		{"notes", func(c *Config) { c.Notes.Attenuation = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg, nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.isSize && !errors.Is(err, frame.ErrInvalidFrameSize) {
				t.Errorf("err = %v, want ErrInvalidFrameSize", err)
			}
		})
	}

	if got := DefaultConfig().FramePeriod(); got < 92*time.Millisecond || got > 93*time.Millisecond {
		t.Errorf("FramePeriod = %v, want about 92.9ms", got)
	}
}

func BenchmarkAnalyzeFrame(b *testing.B) {
	a, _ := NewAnalyzer(DefaultConfig(), testEngine)
	f := frame.Frame{Samples: utils.GenerateChord(testFrameSize, testSampleRate, 261.63, 329.63, 392.0)}
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		_, _ = a.AnalyzeFrame(ctx, f)
	}
}
