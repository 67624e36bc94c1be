// SPDX-License-Identifier: MIT
package frame

import "errors"

// ErrNoAudioData reports that a capture produced no samples. It is a normal
// user-facing condition: the pipeline is not entered.
var ErrNoAudioData = errors.New("no audio data")

// Buffer is a captured mono recording. The analysis borrows it read-only.
type Buffer struct {
	Samples    []float64
	SampleRate float64
}

// Empty reports whether the buffer holds no samples.
func (b Buffer) Empty() bool { return len(b.Samples) == 0 }

// Duration returns the recording length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / b.SampleRate
}
