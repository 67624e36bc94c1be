// SPDX-License-Identifier: MIT
package synth

import (
	"fmt"
	"io"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/log"
	"voicepiano/internal/piano"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Renderer is a Sink that schedules voices on a timeline for offline
// rendering. Use it with a non-realtime Player.
type Renderer struct {
	rate   beep.SampleRate
	gain   float64
	table  *analysis.NoteTable
	voices []scheduled
	active map[int]int // key to index in voices
	end    time.Duration
}

type scheduled struct {
	start int
	voice *Voice
}

// NewRenderer creates an offline renderer at rate with master gain.
func NewRenderer(rate beep.SampleRate, gain float64) (*Renderer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if gain <= 0 || gain > 1 {
		return nil, fmt.Errorf("gain must be in (0, 1], got %g", gain)
	}
	return &Renderer{
		rate:   rate,
		gain:   gain,
		table:  analysis.NewNoteTable(),
		active: make(map[int]int),
	}, nil
}

func (r *Renderer) NoteOn(at time.Duration, ev analysis.NoteEvent) {
	freq := r.table.Frequency(ev.Note)
	if freq == 0 {
		return
	}
	r.release(at, ev.Note)
	r.voices = append(r.voices, scheduled{
		start: r.rate.N(at),
		voice: NewVoice(freq, r.gain*ev.Amplitude, r.rate),
	})
	r.active[ev.Note] = len(r.voices) - 1
	r.end = max(r.end, at+End)
}

func (r *Renderer) NoteOff(at time.Duration, note int) {
	if note < 0 || note >= analysis.NumKeys {
		return
	}
	r.release(at, note)
}

func (r *Renderer) release(at time.Duration, note int) {
	i, ok := r.active[note]
	if !ok {
		return
	}
	sv := r.voices[i]
	sv.voice.ReleaseAfter(r.rate.N(at) - sv.start)
	delete(r.active, note)
}

// Voices returns the number of scheduled voices.
func (r *Renderer) Voices() int { return len(r.voices) }

// Length is the time at which the last voice has faded.
func (r *Renderer) Length() time.Duration { return r.end }

// streamer mixes every voice at its offset, clipped to [-1, 1] and cut at
// length.
func (r *Renderer) streamer(length time.Duration) beep.Streamer {
	streamers := make([]beep.Streamer, 0, len(r.voices))
	for _, sv := range r.voices {
		streamers = append(streamers, beep.Seq(beep.Silence(sv.start), sv.voice))
	}
	// Silence pads the mix out to the full length.
	streamers = append(streamers, beep.Silence(r.rate.N(length)))

	mix := beep.Mix(streamers...)
	clipped := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n, ok := mix.Stream(samples)
		for i := range samples[:n] {
			for c := range samples[i] {
				samples[i][c] = max(-1, min(1, samples[i][c]))
			}
		}
		return n, ok
	})
	return beep.Take(r.rate.N(length), clipped)
}

// Samples renders the timeline to mono samples. It may be called once;
// voices keep their position.
func (r *Renderer) Samples(length time.Duration) []float64 {
	s := r.streamer(length)
	out := make([]float64, 0, r.rate.N(length))
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for _, v := range buf[:n] {
			out = append(out, v[0])
		}
		if !ok {
			return out
		}
	}
}

// Encode writes the timeline as 16-bit mono WAV. It may be called once.
func (r *Renderer) Encode(w io.WriteSeeker, length time.Duration) error {
	format := beep.Format{SampleRate: r.rate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(w, r.streamer(length), format); err != nil {
		return fmt.Errorf("failed to encode WAV: %w", err)
	}
	log.Infof("Synth: Rendered %d voices, %.2fs", len(r.voices), length.Seconds())
	return nil
}

var _ piano.Sink = (*Renderer)(nil)
