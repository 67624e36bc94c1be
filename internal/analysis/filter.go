// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// DefaultLowPassHz is the pre-filter cutoff; voice harmonics above it only
// add spurious peaks.
const DefaultLowPassHz = 2000.0

// LowPass returns a second-order Butterworth low-passed copy of samples.
// The input is left untouched.
func LowPass(samples []float64, sampleRate, cutoff float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	section := biquad.NewSection(design.Lowpass(cutoff, 1/math.Sqrt2, sampleRate))
	section.ProcessBlockTo(out, samples)
	return out
}
