// SPDX-License-Identifier: MIT

// Package synth turns the note stream into sound: sine voices with a short
// piano-like envelope, played live through the speaker or rendered to WAV.
package synth

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// Envelope breakpoints. A voice rises to its peak, decays to the sustain
// level and fades out by End even if never released.
const (
	AttackTime  = 40 * time.Millisecond
	DecayTime   = 300 * time.Millisecond
	End         = 500 * time.Millisecond
	ReleaseTime = 30 * time.Millisecond

	PeakLevel    = 0.9
	SustainLevel = 0.6
)

// EnvelopeLevel returns the unreleased envelope at t, relative to gain 1.
func EnvelopeLevel(t time.Duration) float64 {
	switch {
	case t < 0 || t >= End:
		return 0
	case t < AttackTime:
		return PeakLevel * float64(t) / float64(AttackTime)
	case t < DecayTime:
		frac := float64(t-AttackTime) / float64(DecayTime-AttackTime)
		return PeakLevel + (SustainLevel-PeakLevel)*frac
	default:
		return SustainLevel * float64(End-t) / float64(End-DecayTime)
	}
}

// Voice is one sounding key: a sine at the key's frequency shaped by the
// envelope. It drains when the envelope reaches zero.
type Voice struct {
	rate  beep.SampleRate
	step  float64 // phase increment per sample
	gain  float64
	phase float64
	pos   int

	end       int // envelope end, in samples
	releaseAt int // -1 until released
	relLen    int
	relFrom   float64
}

// NewVoice starts a voice for freq Hz at gain.
func NewVoice(freq, gain float64, rate beep.SampleRate) *Voice {
	return &Voice{
		rate:      rate,
		step:      freq / float64(rate),
		gain:      gain,
		end:       rate.N(End),
		releaseAt: -1,
		relLen:    max(1, rate.N(ReleaseTime)),
	}
}

// Release fades the voice out over ReleaseTime from its current position.
// Releasing twice or after the envelope ended has no effect.
func (v *Voice) Release() { v.ReleaseAfter(v.pos) }

// ReleaseAfter schedules the release n samples after the voice started.
func (v *Voice) ReleaseAfter(n int) {
	if v.releaseAt >= 0 || n >= v.end {
		return
	}
	if n < 0 {
		n = 0
	}
	v.releaseAt = n
	v.relFrom = v.envelope(n)
}

// Released reports whether a release has been scheduled.
func (v *Voice) Released() bool { return v.releaseAt >= 0 }

// Done reports whether the voice has finished.
func (v *Voice) Done() bool {
	if v.releaseAt >= 0 && v.pos >= v.releaseAt+v.relLen {
		return true
	}
	return v.pos >= v.end
}

func (v *Voice) level() float64 {
	if v.releaseAt >= 0 && v.pos >= v.releaseAt {
		left := v.releaseAt + v.relLen - v.pos
		return v.relFrom * float64(left) / float64(v.relLen)
	}
	return v.envelope(v.pos)
}

func (v *Voice) envelope(pos int) float64 {
	return v.gain * EnvelopeLevel(v.rate.D(pos))
}

func (v *Voice) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if v.Done() {
			return i, i > 0
		}
		val := v.level() * math.Sin(2*math.Pi*v.phase)
		samples[i][0] = val
		samples[i][1] = val

		v.phase += v.step
		v.phase -= math.Floor(v.phase)
		v.pos++
	}
	return len(samples), true
}

func (v *Voice) Err() error { return nil }

var _ beep.Streamer = (*Voice)(nil)
