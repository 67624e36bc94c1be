// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voicepiano/internal/analysis"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

const testRate = beep.SampleRate(8000)

func TestEnvelopeLevel(t *testing.T) {
	tests := []struct {
		at   time.Duration
		want float64
	}{
		{-time.Millisecond, 0},
		{0, 0},
		{20 * time.Millisecond, 0.45},
		{AttackTime, PeakLevel},
		{170 * time.Millisecond, 0.75},
		{DecayTime, SustainLevel},
		{400 * time.Millisecond, 0.3},
		{End, 0},
		{time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.at.String(), func(t *testing.T) {
			if got := EnvelopeLevel(tt.at); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EnvelopeLevel(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

// drain streams v to completion and returns the mono samples.
func drain(s beep.Streamer) []float64 {
	var out []float64
	buf := make([][2]float64, 256)
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

func peakBetween(samples []float64, from, to time.Duration) float64 {
	var peak float64
	for _, v := range samples[testRate.N(from):min(len(samples), testRate.N(to))] {
		peak = max(peak, math.Abs(v))
	}
	return peak
}

func TestVoiceFullEnvelope(t *testing.T) {
	v := NewVoice(440, 0.5, testRate)
	samples := drain(v)

	if len(samples) != testRate.N(End) {
		t.Errorf("voice lasted %d samples, want %d", len(samples), testRate.N(End))
	}
	if !v.Done() {
		t.Error("voice not done after draining")
	}
	if p := peakBetween(samples, 30*time.Millisecond, 60*time.Millisecond); math.Abs(p-0.45) > 0.02 {
		t.Errorf("peak near attack end = %.3f, want ~0.45", p)
	}
	if p := peakBetween(samples, 0, End); p > 0.45+1e-9 {
		t.Errorf("peak %.3f exceeds gain*PeakLevel", p)
	}
}

func TestVoiceRelease(t *testing.T) {
	v := NewVoice(440, 1, testRate)
	head := make([][2]float64, testRate.N(100*time.Millisecond))
	if n, ok := v.Stream(head); !ok || n != len(head) {
		t.Fatalf("Stream = %d, %v", n, ok)
	}

	v.Release()
	v.Release()
	if !v.Released() {
		t.Fatal("Released() = false")
	}
	tail := drain(v)
	if len(tail) != testRate.N(ReleaseTime) {
		t.Errorf("release lasted %d samples, want %d", len(tail), testRate.N(ReleaseTime))
	}
}

func TestVoiceReleaseAfterEnd(t *testing.T) {
	v := NewVoice(440, 1, testRate)
	v.ReleaseAfter(testRate.N(End))
	if v.Released() {
		t.Error("release past the envelope end should be ignored")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Error("zero rate should fail")
	}
	if _, err := New(testRate, 0); err == nil {
		t.Error("zero gain should fail")
	}
	if _, err := NewRenderer(testRate, 1.5); err == nil {
		t.Error("gain above 1 should fail")
	}
}

func TestSynthVoices(t *testing.T) {
	s, err := New(testRate, 1)
	if err != nil {
		t.Fatal(err)
	}

	s.NoteOn(0, analysis.NoteEvent{Note: 48, Amplitude: 0.5})
	s.NoteOn(0, analysis.NoteEvent{Note: 52, Amplitude: 0.5})
	if got := s.Active(); got != 2 {
		t.Fatalf("Active = %d, want 2", got)
	}

	s.NoteOff(0, 48)
	s.NoteOff(0, 200)
	buf := make([][2]float64, testRate.N(100*time.Millisecond))
	s.mixer.Stream(buf)
	if got := s.Active(); got != 1 {
		t.Errorf("Active after release = %d, want 1", got)
	}

	for range 5 {
		s.mixer.Stream(buf)
	}
	if got := s.Active(); got != 0 {
		t.Errorf("Active after envelope end = %d, want 0", got)
	}
}

func TestSynthPlayKey(t *testing.T) {
	s, _ := New(testRate, 0.25)
	if err := s.PlayKey(analysis.NumKeys); err == nil {
		t.Error("PlayKey out of range should fail")
	}
	if err := s.PlayKey(48); err != nil {
		t.Fatal(err)
	}
	samples := drain(s.voices[48])
	// Manual keys ignore the master gain.
	if p := peakBetween(samples, 30*time.Millisecond, 60*time.Millisecond); p < 0.85 {
		t.Errorf("PlayKey peak = %.3f, want ~0.9", p)
	}

	s.Close()
	if s.Active() != 0 {
		t.Error("Close should clear every voice")
	}
}

func TestSynthClosesSpeaker(t *testing.T) {
	origInit, origPlay, origClose := speakerInit, speakerPlay, speakerClose
	t.Cleanup(func() { speakerInit, speakerPlay, speakerClose = origInit, origPlay, origClose })

	var inits, plays, closes int
	speakerInit = func(beep.SampleRate, int) error { inits++; return nil }
	speakerPlay = func(...beep.Streamer) { plays++ }
	speakerClose = func() { closes++ }

	s, _ := New(testRate, 1)
	s.Close()
	if closes != 0 {
		t.Fatal("Close before Start must not touch the speaker")
	}

	for range 2 {
		if err := s.Start(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.PlayKey(48); err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()
	if inits != 1 || plays != 1 || closes != 1 {
		t.Errorf("init/play/close = %d/%d/%d, want 1/1/1", inits, plays, closes)
	}
	if s.Active() != 0 {
		t.Error("Close should clear every voice")
	}

	if err := s.Start(); err != nil || inits != 2 {
		t.Errorf("restart: err = %v, inits = %d", err, inits)
	}
	s.Close()
}

func TestRendererTimeline(t *testing.T) {
	r, err := NewRenderer(testRate, 1)
	if err != nil {
		t.Fatal(err)
	}

	r.NoteOn(100*time.Millisecond, analysis.NoteEvent{Note: 48, Amplitude: 1})
	r.NoteOff(200*time.Millisecond, 48)
	r.NoteOn(400*time.Millisecond, analysis.NoteEvent{Note: 36, Amplitude: 0.5})

	if r.Voices() != 2 {
		t.Errorf("Voices = %d, want 2", r.Voices())
	}
	if want := 900 * time.Millisecond; r.Length() != want {
		t.Errorf("Length = %v, want %v", r.Length(), want)
	}

	samples := r.Samples(r.Length())
	if len(samples) != testRate.N(r.Length()) {
		t.Fatalf("rendered %d samples, want %d", len(samples), testRate.N(r.Length()))
	}
	if p := peakBetween(samples, 0, 100*time.Millisecond); p != 0 {
		t.Errorf("sound before first note: %v", p)
	}
	if p := peakBetween(samples, 130*time.Millisecond, 170*time.Millisecond); p < 0.8 {
		t.Errorf("first note too quiet: %.3f", p)
	}
	if p := peakBetween(samples, 235*time.Millisecond, 400*time.Millisecond); p != 0 {
		t.Errorf("released note still audible: %v", p)
	}
	if p := peakBetween(samples, 430*time.Millisecond, 470*time.Millisecond); p < 0.4 || p > 0.46 {
		t.Errorf("second note peak = %.3f, want ~0.45", p)
	}
}

func TestRendererEncode(t *testing.T) {
	r, _ := NewRenderer(testRate, 1)
	r.NoteOn(0, analysis.NoteEvent{Note: 48, Amplitude: 1})

	path := filepath.Join(t.TempDir(), "piano.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Encode(f, r.Length()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	s, format, err := wav.Decode(in)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer s.Close()
	if format.SampleRate != testRate || format.NumChannels != 1 {
		t.Errorf("format = %+v", format)
	}
	if s.Len() != testRate.N(End) {
		t.Errorf("Len = %d, want %d", s.Len(), testRate.N(End))
	}
}
