// SPDX-License-Identifier: MIT

// Package midi exports the note stream as a Standard MIDI File.
package midi

import (
	"fmt"
	"io"
	"math"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/log"
	"voicepiano/internal/piano"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// KeyOffset maps piano key 0 (A0) to MIDI note 21.
	KeyOffset = 21

	// Tempo of the exported file. Event times are exact at any tempo.
	Tempo = 120.0

	resolution = 960
	channel    = 0
)

// Writer is a Sink collecting note-on/off events into a single-track SMF.
type Writer struct {
	ticks  smf.MetricTicks
	track  smf.Track
	last   uint32 // absolute tick of the previous event
	events int
}

// NewWriter starts a track named name with an acoustic piano program.
func NewWriter(name string) *Writer {
	w := &Writer{ticks: smf.MetricTicks(resolution)}
	w.track.Add(0, smf.MetaTrackSequenceName(name))
	w.track.Add(0, smf.MetaTempo(Tempo))
	w.track.Add(0, midi.ProgramChange(channel, 0))
	return w
}

// Key converts a piano key index to a MIDI note number.
func Key(note int) uint8 { return uint8(note + KeyOffset) }

// Velocity converts an amplitude in [0, 1] to a note-on velocity in [1, 127].
func Velocity(amplitude float64) uint8 {
	v := math.Round(amplitude * 127)
	return uint8(max(1, min(127, v)))
}

func (w *Writer) NoteOn(at time.Duration, ev analysis.NoteEvent) {
	if ev.Note < 0 || ev.Note >= analysis.NumKeys {
		return
	}
	w.add(at, midi.NoteOn(channel, Key(ev.Note), Velocity(ev.Amplitude)))
}

func (w *Writer) NoteOff(at time.Duration, note int) {
	if note < 0 || note >= analysis.NumKeys {
		return
	}
	w.add(at, midi.NoteOff(channel, Key(note)))
}

func (w *Writer) add(at time.Duration, msg midi.Message) {
	abs := w.ticks.Ticks(Tempo, at)
	if abs < w.last {
		abs = w.last
	}
	w.track.Add(abs-w.last, msg)
	w.last = abs
	w.events++
}

// Events returns the number of note messages written.
func (w *Writer) Events() int { return w.events }

// WriteTo encodes the file. The writer can keep collecting afterwards.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	track := append(smf.Track(nil), w.track...)
	track.Close(0)

	s := smf.New()
	s.TimeFormat = w.ticks
	if err := s.Add(track); err != nil {
		return 0, fmt.Errorf("failed to add track: %w", err)
	}
	n, err := s.WriteTo(out)
	if err != nil {
		return n, fmt.Errorf("failed to write MIDI file: %w", err)
	}
	log.Infof("MIDI: Wrote %d note events (%d bytes)", w.events, n)
	return n, nil
}

var (
	_ piano.Sink  = (*Writer)(nil)
	_ io.WriterTo = (*Writer)(nil)
)
