// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"voicepiano/internal/fft"
	"voicepiano/internal/frame"
	"voicepiano/internal/log"

	"golang.org/x/sync/errgroup"
)

// Config is the full analysis configuration, fixed at construction.
type Config struct {
	SampleRate float64
	FrameSize  int
	LowHz      float64
	HighHz     float64
	Window     WindowFunc
	LowPass    bool
	LowPassHz  float64
	Level      LevelConfig
	Peaks      PeakConfig
	Notes      MapperConfig
	// Workers bounds concurrent frame analysis; zero means GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the 4096-point, 44.1 kHz configuration over the
// full piano range with no window and no pre-filter.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		FrameSize:  4096,
		LowHz:      LowestFrequency,
		HighHz:     HighestFrequency,
		Window:     None,
		LowPassHz:  DefaultLowPassHz,
		Level:      DefaultLevelConfig(),
		Peaks:      DefaultPeakConfig(),
		Notes:      DefaultMapperConfig(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if err := frame.CheckSize(c.FrameSize); err != nil {
		return err
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %f", c.SampleRate)
	}
	if c.LowPass && (c.LowPassHz <= 0 || c.LowPassHz >= c.SampleRate/2) {
		return fmt.Errorf("low-pass cutoff must be in (0, %g) Hz, got %g", c.SampleRate/2, c.LowPassHz)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if err := c.Level.Validate(); err != nil {
		return err
	}
	if err := c.Peaks.Validate(); err != nil {
		return err
	}
	return c.Notes.Validate()
}

// FramePeriod is the playback cadence: one frame's duration.
func (c Config) FramePeriod() time.Duration {
	return time.Duration(frame.Duration(c.FrameSize, c.SampleRate) * float64(time.Second))
}

// FrameResult is everything the analysis produced for one frame. Spectrum
// is on the configured level scale.
type FrameResult struct {
	Index    int
	Spectrum fft.Spectrum
	Peaks    []int
	Notes    []NoteEvent
	Dropped  int
}

// Analyzer runs frames through transform, level scaling, peak detection
// and note mapping. It holds no per-frame state and is safe for concurrent
// use.
type Analyzer struct {
	cfg      Config
	engine   *fft.Engine
	detector *PeakDetector
	mapper   *NoteMapper
	taper    []float64
	observer Observer
	scratch  sync.Pool
}

type scratch struct {
	ws       *fft.Workspace
	windowed []float64
}

// NewAnalyzer validates cfg and precomputes the bin range, note table and
// window. A nil engine gets a private one.
func NewAnalyzer(cfg Config, engine *fft.Engine) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		engine = fft.NewEngine()
	}

	detector, err := NewPeakDetector(cfg.Peaks, cfg.SampleRate, cfg.FrameSize, cfg.LowHz, cfg.HighHz)
	if err != nil {
		return nil, err
	}
	mapper, err := NewNoteMapper(cfg.Notes, NewNoteTable(), cfg.SampleRate, cfg.FrameSize, cfg.Level.MaxValue(cfg.FrameSize))
	if err != nil {
		return nil, err
	}

	lo, hi := detector.Range()
	log.Infof("Analysis: %d-point frames at %.0f Hz, bins %d-%d, %s peaks, %s window, %s levels",
		cfg.FrameSize, cfg.SampleRate, lo, hi, cfg.Peaks.Mode, cfg.Window, cfg.Level.Scale)

	a := &Analyzer{
		cfg:      cfg,
		engine:   engine,
		detector: detector,
		mapper:   mapper,
		taper:    windowCoefficients(cfg.FrameSize, cfg.Window),
	}
	a.scratch.New = func() any {
		ws, err := engine.NewWorkspace(cfg.FrameSize)
		if err != nil {
			// FrameSize was validated above.
			panic(err)
		}
		return &scratch{ws: ws, windowed: make([]float64, cfg.FrameSize)}
	}
	return a, nil
}

// SetObserver installs an observer notified after every analysed frame.
// It must be called before analysis starts.
func (a *Analyzer) SetObserver(o Observer) { a.observer = o }

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Detector returns the peak detector.
func (a *Analyzer) Detector() *PeakDetector { return a.detector }

// Mapper returns the note mapper.
func (a *Analyzer) Mapper() *NoteMapper { return a.mapper }

// AnalyzeFrame processes a single frame. The frame must be exactly the
// configured size.
func (a *Analyzer) AnalyzeFrame(ctx context.Context, f frame.Frame) (FrameResult, error) {
	if f.Len() != a.cfg.FrameSize {
		if err := frame.CheckSize(f.Len()); err != nil {
			return FrameResult{}, err
		}
		return FrameResult{}, fmt.Errorf("%w: analyzer expects %d samples, got %d",
			frame.ErrInvalidFrameSize, a.cfg.FrameSize, f.Len())
	}

	start := time.Now()
	s := a.scratch.Get().(*scratch)
	applyWindow(s.windowed, f.Samples, a.taper)
	mags, err := s.ws.Transform(s.windowed)
	if err != nil {
		a.scratch.Put(s)
		return FrameResult{}, err
	}
	spectrum := make(fft.Spectrum, len(mags))
	copy(spectrum, mags)
	a.scratch.Put(s)

	a.cfg.Level.Apply(spectrum, a.cfg.FrameSize)
	peaks := a.detector.FindPeaks(spectrum)
	notes, dropped := a.mapper.Map(peaks, spectrum)

	res := FrameResult{
		Index:    f.Index,
		Spectrum: spectrum,
		Peaks:    peaks,
		Notes:    notes,
		Dropped:  dropped,
	}
	if a.observer != nil {
		a.observer.FrameAnalyzed(ctx, res, time.Since(start))
	}
	return res, nil
}

// AnalyzeBuffer segments buf and analyses all frames concurrently. Results
// are returned in frame order. An empty buffer yields ErrNoAudioData and
// no frames.
func (a *Analyzer) AnalyzeBuffer(ctx context.Context, buf frame.Buffer) ([]FrameResult, error) {
	if buf.Empty() {
		return nil, frame.ErrNoAudioData
	}
	if buf.SampleRate > 0 && buf.SampleRate != a.cfg.SampleRate {
		return nil, fmt.Errorf("buffer sample rate %.0f Hz does not match analysis rate %.0f Hz",
			buf.SampleRate, a.cfg.SampleRate)
	}

	samples := buf.Samples
	if a.cfg.LowPass {
		samples = LowPass(samples, a.cfg.SampleRate, a.cfg.LowPassHz)
	}

	frames, err := frame.Segment(samples, a.cfg.FrameSize)
	if err != nil {
		return nil, err
	}
	log.Debugf("Analysis: %d samples (%.2fs) in %d frames", len(buf.Samples), buf.Duration(), len(frames))

	workers := a.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]FrameResult, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := a.AnalyzeFrame(gctx, f)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
