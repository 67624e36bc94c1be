// SPDX-License-Identifier: MIT
// Package utils holds helpers shared by the test suites: synthetic
// signals and a transport double that records what it was sent.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport Send/Close contract for tests.
// Every payload is kept so assertions can inspect the full sequence.
type MockTransport struct {
	mu       sync.Mutex
	Payloads []any
	Closed   bool
}

// Send stores the payload for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	m.Payloads = append(m.Payloads, data)
	m.mu.Unlock()
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Len returns the number of payloads received so far.
func (m *MockTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads)
}

// GenerateSineWave returns size samples of a sinusoid at frequency Hz with
// the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateChord sums equal-amplitude sinusoids, scaled so the result
// stays within [-1, 1].
func GenerateChord(size int, sampleRate float64, frequencies ...float64) []float64 {
	buffer := make([]float64, size)
	if len(frequencies) == 0 {
		return buffer
	}
	amplitude := 1.0 / float64(len(frequencies))
	for _, f := range frequencies {
		for i := range buffer {
			t := float64(i) / sampleRate
			buffer[i] += amplitude * math.Sin(2*math.Pi*f*t)
		}
	}
	return buffer
}

// Concat joins sample slices end to end.
func Concat(parts ...[]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float64, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin+1]. Bounds are clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
