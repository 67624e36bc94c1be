// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"strconv"
	"testing"
)

var (
	quietBuffer = makeBuffer(1024, math.MaxInt32/10000) // ~ -80 dBFS
	testBuffer  = makeBuffer(1024, math.MaxInt32/10)    // ~ -20 dBFS
	loudBuffer  = makeBuffer(1024, math.MaxInt32/2)     // ~ -6 dBFS

	lowThreshold  = int32(math.MaxInt32 / 1000)
	highThreshold = int32(math.MaxInt32 / 4 * 3)
)

// makeBuffer returns an alternating-sign ramp peaking at amplitude.
func makeBuffer(n int, amplitude int32) []int32 {
	buf := make([]int32, n)
	for i := range buf {
		v := int32(int64(amplitude) * int64(i%64) / 63)
		if i%2 == 1 {
			v = -v
		}
		buf[i] = v
	}
	return buf
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func TestGateEnable(t *testing.T) {
	gate := NewGate(0.1)
	if !gate.Enabled() {
		t.Error("Gate should be enabled initially")
	}

	gate.Disable()
	gate.Disable() // Multiple calls should be idempotent
	if gate.Enabled() {
		t.Error("Gate should be disabled after Disable()")
	}
	if !gate.Open(quietBuffer) {
		t.Error("Disabled gate should pass everything")
	}

	gate.Enable()
	gate.Enable()
	if !gate.Enabled() {
		t.Error("Gate should remain enabled after multiple Enable()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.25, 0.25},
		{0.5, 0.5},   // Middle
		{0.999, 0.999},
		{1.0, 1.0}, // Maximum
		{1.5, 1.0}, // Above max
	}

	gate := NewGate(0)
	for _, tt := range tests {
		t.Run(formatFloat(tt.input), func(t *testing.T) {
			gate.SetThreshold(tt.input)
			if got := gate.Threshold(); math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("Gate threshold conversion: got %.6f, want %.6f", got, tt.expected)
			}
		})
	}
}

func TestGateDetection(t *testing.T) {
	tests := []struct {
		desc          string
		buffer        []int32
		gateEnabled   bool
		threshold     float64
		shouldTrigger bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.00001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, true, 0.999, false},
		{"Gate enabled/Silence", make([]int32, 64), true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			gate := NewGate(tt.threshold)
			if !tt.gateEnabled {
				gate.Disable()
			}
			if got := gate.Open(tt.buffer); got != tt.shouldTrigger {
				t.Errorf("Open() = %v, want %v (peak %d, threshold %d)",
					got, tt.shouldTrigger, PeakAmplitude(tt.buffer), gate.threshold)
			}
		})
	}
}

func TestPeakAmplitude(t *testing.T) {
	tests := []struct {
		name  string
		block []int32
		want  int32
	}{
		{"empty", nil, 0},
		{"positive", []int32{1, 5, 3}, 5},
		{"negative wins", []int32{1, -9, 3}, 9},
		{"max", []int32{0, math.MaxInt32, -math.MaxInt32}, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakAmplitude(tt.block); got != tt.want {
				t.Errorf("PeakAmplitude = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPeakAmplitudeZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = PeakAmplitude(testBuffer)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in noise gate hot path, got %.1f", allocs)
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"nothing to trim", []float64{0.5, -0.5}, []float64{0.5, -0.5}},
		{"both ends", []float64{0, 0.001, 0.5, 0, -0.3, 0.002, 0}, []float64{0.5, 0, -0.3}},
		{"single loud sample", []float64{0, 0.9, 0}, []float64{0.9}},
		{"all quiet", []float64{0.001, -0.001}, nil},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trim(tt.in, 0.01)
			if len(got) != len(tt.want) {
				t.Fatalf("Trim = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Trim = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func BenchmarkGateThresholdConversion(b *testing.B) {
	gate := NewGate(0)
	for _, v := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		b.Run(formatFloat(v), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				gate.SetThreshold(v)
				_ = gate.Threshold()
			}
		})
	}
}

func BenchmarkGateProcessing(b *testing.B) {
	benchmarks := []struct {
		name      string
		buffer    []int32
		threshold int32
		enabled   bool
	}{
		{"Gate disabled/Normal", testBuffer, lowThreshold, false},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, lowThreshold, true},
		{"Gate enabled/Normal signal/Low threshold", testBuffer, lowThreshold, true},
		{"Gate enabled/Loud signal/High threshold", loudBuffer, highThreshold, true},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			gate := &Gate{enabled: bm.enabled, threshold: bm.threshold}
			b.ReportAllocs()
			for b.Loop() {
				_ = gate.Open(bm.buffer)
			}
		})
	}
}
