// SPDX-License-Identifier: MIT
package audio

import "math"

// Gate is a peak-level noise gate over int32 PCM blocks. The threshold is
// stored as an absolute amplitude so the per-block check is integer only.
type Gate struct {
	enabled   bool
	threshold int32 // Absolute amplitude threshold (0-2147483647)
}

// NewGate returns an enabled gate at threshold (0-1 of full scale).
func NewGate(threshold float64) *Gate {
	g := &Gate{enabled: true}
	g.SetThreshold(threshold)
	return g
}

func (g *Gate) Enable() {
	g.enabled = true
}

func (g *Gate) Disable() {
	g.enabled = false
}

// Enabled reports whether the gate filters blocks.
func (g *Gate) Enabled() bool { return g.enabled }

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	g.threshold = int32(threshold * float64(math.MaxInt32))
}

// Threshold returns the current noise gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold) / float64(math.MaxInt32)
}

// Open reports whether block should pass. A disabled gate is always open.
func (g *Gate) Open(block []int32) bool {
	if !g.enabled {
		return true
	}
	return PeakAmplitude(block) > g.threshold
}

// PeakAmplitude returns the largest absolute sample of block without
// branching in the loop.
func PeakAmplitude(block []int32) int32 {
	var maxAmplitude int32
	for _, sample := range block {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}

// Trim drops leading and trailing samples whose magnitude does not exceed
// threshold. A buffer that never exceeds it trims to nil. The result
// aliases samples.
func Trim(samples []float64, threshold float64) []float64 {
	first := -1
	for i, s := range samples {
		if math.Abs(s) > threshold {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	last := first
	for i := len(samples) - 1; i > first; i-- {
		if math.Abs(samples[i]) > threshold {
			last = i
			break
		}
	}
	return samples[first : last+1]
}
