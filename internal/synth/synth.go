// SPDX-License-Identifier: MIT
package synth

import (
	"fmt"
	"sync"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/log"
	"voicepiano/internal/piano"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// DefaultSampleRate is the output rate of the live synth.
const DefaultSampleRate = beep.SampleRate(44100)

// Speaker hooks, swapped out in tests.
var (
	speakerInit  = speaker.Init
	speakerPlay  = speaker.Play
	speakerClose = speaker.Close
)

// Synth plays the note stream through the default output device. Each
// note-on starts a fresh voice; a note-off releases it.
type Synth struct {
	mu          sync.Mutex
	rate        beep.SampleRate
	gain        float64
	table       *analysis.NoteTable
	mixer       *beep.Mixer
	voices      [analysis.NumKeys]*Voice
	initialized bool
}

// New creates a synth at rate with a master gain in (0, 1].
func New(rate beep.SampleRate, gain float64) (*Synth, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if gain <= 0 || gain > 1 {
		return nil, fmt.Errorf("gain must be in (0, 1], got %g", gain)
	}
	return &Synth{
		rate:  rate,
		gain:  gain,
		table: analysis.NewNoteTable(),
		mixer: &beep.Mixer{},
	}, nil
}

// Start opens the speaker and begins streaming the mixer.
func (s *Synth) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := speakerInit(s.rate, s.rate.N(50*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to open speaker: %w", err)
	}
	speakerPlay(s.mixer)
	s.initialized = true
	log.Infof("Synth: Speaker started at %d Hz, gain %.2f", s.rate, s.gain)
	return nil
}

// Close silences every voice and releases the output device. A closed
// synth can be started again.
func (s *Synth) Close() {
	s.withMixer(func() {
		s.mixer.Clear()
		s.voices = [analysis.NumKeys]*Voice{}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speakerClose()
	s.initialized = false
	log.Infof("Synth: Speaker closed")
}

// withMixer runs fn with the speaker callback excluded.
func (s *Synth) withMixer(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}

func (s *Synth) NoteOn(_ time.Duration, ev analysis.NoteEvent) {
	s.press(ev.Note, s.gain*ev.Amplitude)
}

func (s *Synth) NoteOff(_ time.Duration, note int) {
	if note < 0 || note >= analysis.NumKeys {
		return
	}
	s.withMixer(func() {
		if v := s.voices[note]; v != nil {
			v.Release()
			s.voices[note] = nil
		}
	})
}

// PlayKey sounds one key at full gain, outside any playback.
func (s *Synth) PlayKey(note int) error {
	if note < 0 || note >= analysis.NumKeys {
		return fmt.Errorf("key %d out of range [0, %d)", note, analysis.NumKeys)
	}
	log.Debugf("Synth: Key %s", analysis.NoteName(note))
	s.press(note, 1)
	return nil
}

func (s *Synth) press(note int, gain float64) {
	freq := s.table.Frequency(note)
	if freq == 0 {
		return
	}
	s.withMixer(func() {
		if old := s.voices[note]; old != nil {
			old.Release()
		}
		v := NewVoice(freq, gain, s.rate)
		s.voices[note] = v
		s.mixer.Add(v)
	})
}

// Active returns the number of voices still audible.
func (s *Synth) Active() int {
	n := 0
	s.withMixer(func() { n = s.mixer.Len() })
	return n
}

var _ piano.Sink = (*Synth)(nil)
