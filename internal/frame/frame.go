// SPDX-License-Identifier: MIT

// Package frame splits a captured sample buffer into the fixed-size,
// zero-padded frames consumed by the spectral analysis.
package frame

import (
	"errors"
	"fmt"

	"voicepiano/pkg/bitint"
)

// ErrInvalidFrameSize is returned whenever a frame length is not a power of
// two. The FFT engine wraps the same value so callers test a single error.
var ErrInvalidFrameSize = errors.New("frame size is not a power of two")

// Frame is one analysis window: exactly len(Samples) == frame size values
// plus its position in the source buffer.
type Frame struct {
	Index   int
	Samples []float64
}

// Len returns the frame length.
func (f Frame) Len() int { return len(f.Samples) }

// CheckSize returns ErrInvalidFrameSize (wrapped with the offending size
// and the nearest valid one above it) when n is not a positive power of two.
func CheckSize(n int) error {
	if !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("%w: got %d, try %d", ErrInvalidFrameSize, n, bitint.NextPowerOfTwo(n))
	}
	return nil
}

// Segment cuts samples into consecutive, non-overlapping frames of
// frameSize values. The last partial frame is zero-padded on the right;
// no extra frame is emitted when the buffer divides evenly. A buffer
// shorter than frameSize (including an empty one) yields a single
// zero-padded frame. The input slice is never modified.
func Segment(samples []float64, frameSize int) ([]Frame, error) {
	if err := CheckSize(frameSize); err != nil {
		return nil, err
	}

	count := (len(samples) + frameSize - 1) / frameSize
	if count == 0 {
		count = 1
	}

	// One backing array for all frames keeps this to two allocations.
	backing := make([]float64, count*frameSize)
	copy(backing, samples)

	frames := make([]Frame, count)
	for i := range frames {
		frames[i] = Frame{
			Index:   i,
			Samples: backing[i*frameSize : (i+1)*frameSize : (i+1)*frameSize],
		}
	}
	return frames, nil
}

// Duration returns the playback period of one frame in seconds.
func Duration(frameSize int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(frameSize) / sampleRate
}
