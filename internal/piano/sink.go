// SPDX-License-Identifier: MIT
package piano

import (
	"time"

	"voicepiano/internal/analysis"
)

// Sink consumes the note stream: sound output, key displays, recorders.
// at is the offset of the frame from the start of playback. Calls arrive
// from a single goroutine in chronological order.
type Sink interface {
	NoteOn(at time.Duration, ev analysis.NoteEvent)
	NoteOff(at time.Duration, note int)
}

// FrameObserver receives every analysed frame before its events are
// emitted, for spectrum and peak displays.
type FrameObserver interface {
	ObserveFrame(at time.Duration, res analysis.FrameResult)
}

// Sinks fans one note stream out to several sinks in order.
type Sinks []Sink

func (s Sinks) NoteOn(at time.Duration, ev analysis.NoteEvent) {
	for _, sink := range s {
		sink.NoteOn(at, ev)
	}
}

func (s Sinks) NoteOff(at time.Duration, note int) {
	for _, sink := range s {
		sink.NoteOff(at, note)
	}
}

// Observers fans frames out to several observers.
type Observers []FrameObserver

func (o Observers) ObserveFrame(at time.Duration, res analysis.FrameResult) {
	for _, obs := range o {
		obs.ObserveFrame(at, res)
	}
}

// Recorder is a Sink that keeps every event, mostly for tests and offline
// rendering.
type Recorder struct {
	Events []Event
}

// Event is one recorded transition.
type Event struct {
	At        time.Duration
	Note      int
	Amplitude float64
	On        bool
}

func (r *Recorder) NoteOn(at time.Duration, ev analysis.NoteEvent) {
	r.Events = append(r.Events, Event{At: at, Note: ev.Note, Amplitude: ev.Amplitude, On: true})
}

func (r *Recorder) NoteOff(at time.Duration, note int) {
	r.Events = append(r.Events, Event{At: at, Note: note})
}

// Notes returns, for each note-on in order, its start, length and
// amplitude. Notes still sounding at the end get length until end.
func (r *Recorder) Notes(end time.Duration) []Note {
	var notes []Note
	open := make(map[int]int)
	for _, ev := range r.Events {
		if ev.On {
			open[ev.Note] = len(notes)
			notes = append(notes, Note{Note: ev.Note, Start: ev.At, Amplitude: ev.Amplitude})
			continue
		}
		if i, ok := open[ev.Note]; ok {
			notes[i].Length = ev.At - notes[i].Start
			delete(open, ev.Note)
		}
	}
	for _, i := range open {
		notes[i].Length = end - notes[i].Start
	}
	return notes
}

// Note is a played key with its extent.
type Note struct {
	Note      int
	Start     time.Duration
	Length    time.Duration
	Amplitude float64
}

var _ Sink = Sinks(nil)
var _ Sink = (*Recorder)(nil)
var _ FrameObserver = Observers(nil)
