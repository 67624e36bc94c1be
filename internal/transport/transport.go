// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/piano"
)

// Transport sends display messages to whatever is listening.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// FrameMessage describes one analysed frame for spectrum displays.
type FrameMessage struct {
	Type     string               `json:"type"` // always "frame"
	AtMs     int64                `json:"at_ms"`
	Index    int                  `json:"index"`
	Spectrum []float32            `json:"spectrum"` // levels across the searched range
	LowBin   int                  `json:"low_bin"`
	Peaks    []int                `json:"peaks"`
	Notes    []NoteMessage        `json:"notes"`
	Bands    []analysis.BandLevel `json:"bands"`
}

// NoteMessage is a note event with its display name.
type NoteMessage struct {
	Note      int     `json:"note"`
	Name      string  `json:"name"`
	Amplitude float64 `json:"amplitude"`
}

// KeyMessage is a key press or release.
type KeyMessage struct {
	Type      string  `json:"type"` // always "key"
	AtMs      int64   `json:"at_ms"`
	Note      int     `json:"note"`
	Name      string  `json:"name"`
	Amplitude float64 `json:"amplitude,omitempty"`
	On        bool    `json:"on"`
}

// Broadcaster turns the playback stream into messages on a Transport.
// It is both a piano.Sink and a piano.FrameObserver.
type Broadcaster struct {
	transport  Transport
	lowBin     int
	highBin    int
	sampleRate float64
	frameSize  int
	maxValue   float64
}

// NewBroadcaster sends frames analysed by a with cfg to t. Only the bins
// inside the peak search range are included in FrameMessage.Spectrum.
func NewBroadcaster(t Transport, a *analysis.Analyzer) *Broadcaster {
	cfg := a.Config()
	low, high := a.Detector().Range()
	return &Broadcaster{
		transport:  t,
		lowBin:     low,
		highBin:    high,
		sampleRate: cfg.SampleRate,
		frameSize:  cfg.FrameSize,
		maxValue:   cfg.Level.MaxValue(cfg.FrameSize),
	}
}

func (b *Broadcaster) ObserveFrame(at time.Duration, res analysis.FrameResult) {
	msg := FrameMessage{
		Type:   "frame",
		AtMs:   at.Milliseconds(),
		Index:  res.Index,
		LowBin: b.lowBin,
		Peaks:  res.Peaks,
		Notes:  make([]NoteMessage, len(res.Notes)),
		Bands:  analysis.BandLevels(analysis.PianoBands, res.Spectrum, b.sampleRate, b.frameSize, b.maxValue),
	}
	if b.highBin < len(res.Spectrum) {
		msg.Spectrum = make([]float32, 0, b.highBin-b.lowBin+1)
		for _, v := range res.Spectrum[b.lowBin : b.highBin+1] {
			msg.Spectrum = append(msg.Spectrum, float32(v))
		}
	}
	for i, ev := range res.Notes {
		msg.Notes[i] = NoteMessage{Note: ev.Note, Name: analysis.NoteName(ev.Note), Amplitude: ev.Amplitude}
	}
	b.send(msg)
}

func (b *Broadcaster) NoteOn(at time.Duration, ev analysis.NoteEvent) {
	b.send(KeyMessage{
		Type:      "key",
		AtMs:      at.Milliseconds(),
		Note:      ev.Note,
		Name:      analysis.NoteName(ev.Note),
		Amplitude: ev.Amplitude,
		On:        true,
	})
}

func (b *Broadcaster) NoteOff(at time.Duration, note int) {
	b.send(KeyMessage{Type: "key", AtMs: at.Milliseconds(), Note: note, Name: analysis.NoteName(note)})
}

func (b *Broadcaster) send(msg any) {
	// Transports drop rather than block; errors here are not actionable.
	_ = b.transport.Send(msg)
}

var (
	_ piano.Sink          = (*Broadcaster)(nil)
	_ piano.FrameObserver = (*Broadcaster)(nil)
)
