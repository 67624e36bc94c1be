// SPDX-License-Identifier: MIT

// Package fft implements the forward, magnitude-only Fourier transform
// used by the analysis pipeline: a recursive radix-2 decimation-in-time
// Cooley-Tukey transform over real input with cached twiddle tables.
//
// Phase is never consumed downstream, so the engine exposes magnitudes
// of the first N/2 bins only. Coefficients is kept for verification.
package fft

import (
	"fmt"
	"math"
	"sync"

	"voicepiano/internal/frame"
)

// Spectrum holds N/2 non-negative magnitudes; bin k is centred on
// k*sampleRate/N Hz.
type Spectrum []float64

// BinFrequency returns the centre frequency (Hz) of bin for a transform of
// size points at sampleRate.
func BinFrequency(bin int, sampleRate float64, size int) float64 {
	if size <= 0 {
		return 0
	}
	return float64(bin) * sampleRate / float64(size)
}

// twiddles holds cos/sin of 2*pi*k/N for k in [0, N/2).
type twiddles struct {
	cos []float64
	sin []float64
}

func newTwiddles(n int) *twiddles {
	half := n / 2
	tw := &twiddles{
		cos: make([]float64, half),
		sin: make([]float64, half),
	}
	theta := 2 * math.Pi / float64(n)
	for k := range half {
		angle := theta * float64(k)
		tw.cos[k] = math.Cos(angle)
		tw.sin[k] = math.Sin(angle)
	}
	return tw
}

// Engine computes transforms of any power-of-two size. Twiddle tables are
// built once per size and shared; an Engine is safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	tables map[int]*twiddles
}

// NewEngine returns an engine with an empty twiddle cache.
func NewEngine() *Engine {
	return &Engine{tables: make(map[int]*twiddles)}
}

// table returns the cached twiddles for size n, building them on first use.
func (e *Engine) table(n int) *twiddles {
	e.mu.RLock()
	tw, ok := e.tables[n]
	e.mu.RUnlock()
	if ok {
		return tw
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tw, ok = e.tables[n]; ok {
		return tw
	}
	tw = newTwiddles(n)
	e.tables[n] = tw
	return tw
}

// CachedSizes reports how many distinct sizes have twiddle tables.
func (e *Engine) CachedSizes() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tables)
}

// Transform returns the magnitude spectrum of samples. The result is a
// fresh slice owned by the caller.
func (e *Engine) Transform(samples []float64) (Spectrum, error) {
	ws, err := e.NewWorkspace(len(samples))
	if err != nil {
		return nil, err
	}
	return ws.Transform(samples)
}

// TransformFrame is Transform over a segmented frame.
func (e *Engine) TransformFrame(f frame.Frame) (Spectrum, error) {
	return e.Transform(f.Samples)
}

// Coefficients returns the full complex transform as separate real and
// imaginary parts of length N.
func (e *Engine) Coefficients(samples []float64) (re, im []float64, err error) {
	ws, err := e.NewWorkspace(len(samples))
	if err != nil {
		return nil, nil, err
	}
	ws.run(samples)
	return ws.re, ws.im, nil
}

// Workspace holds the scratch buffers for repeated transforms of one size.
// It is not safe for concurrent use; give each goroutine its own.
type Workspace struct {
	size      int
	table     *twiddles
	re        []float64
	im        []float64
	magnitude Spectrum
}

// NewWorkspace pre-allocates buffers for transforms of size points.
func (e *Engine) NewWorkspace(size int) (*Workspace, error) {
	if err := frame.CheckSize(size); err != nil {
		return nil, fmt.Errorf("fft: %w", err)
	}
	return &Workspace{
		size:      size,
		table:     e.table(size),
		re:        make([]float64, size),
		im:        make([]float64, size),
		magnitude: make(Spectrum, size/2),
	}, nil
}

// Size returns the transform length the workspace was built for.
func (w *Workspace) Size() int { return w.size }

// Transform computes the magnitude spectrum of samples without allocating.
// The returned slice is reused by the next call.
func (w *Workspace) Transform(samples []float64) (Spectrum, error) {
	if len(samples) != w.size {
		return nil, fmt.Errorf("fft: %w: workspace size %d, got %d samples",
			frame.ErrInvalidFrameSize, w.size, len(samples))
	}
	w.run(samples)
	for k := range w.magnitude {
		w.magnitude[k] = math.Hypot(w.re[k], w.im[k])
	}
	return w.magnitude, nil
}

func (w *Workspace) run(samples []float64) {
	transform(samples, w.table, 0, 1, w.size, w.re, w.im)
}

// transform writes the n-point DFT of data[start], data[start+stride], ...
// into re/im. The even half lands in [0, n/2) and the odd half in
// [n/2, n) before the butterflies combine them in place.
func transform(data []float64, tw *twiddles, start, stride, n int, re, im []float64) {
	if n == 1 {
		re[0] = data[start]
		im[0] = 0
		return
	}

	half := n / 2
	transform(data, tw, start, stride*2, half, re[:half], im[:half])
	transform(data, tw, start+stride, stride*2, half, re[half:], im[half:])

	for i := range half {
		k := i * stride
		c, s := tw.cos[k], tw.sin[k]

		// (c - i*s) * odd[i]
		or, oi := re[i+half], im[i+half]
		br := c*or + s*oi
		bi := c*oi - s*or

		er, ei := re[i], im[i]
		re[i] = er + br
		im[i] = ei + bi
		re[i+half] = er - br
		im[i+half] = ei - bi
	}
}
