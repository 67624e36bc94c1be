// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"voicepiano/internal/fft"
)

// FrequencyBand is a named slice of the spectrum used for the level meters.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// BandLevel is the mean level of one band for one frame, in [0, 1].
type BandLevel struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// PianoBands splits the keyboard into registers.
var PianoBands = []FrequencyBand{
	{Name: "sub", LowHz: LowestFrequency, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "high", LowHz: 2000, HighHz: HighestFrequency},
}

// BandLevels averages the energy of spectrum over each band and returns
// its RMS normalised by maxValue.
func BandLevels(bands []FrequencyBand, spectrum fft.Spectrum, sampleRate float64, frameSize int, maxValue float64) []BandLevel {
	levels := make([]BandLevel, len(bands))
	for i, band := range bands {
		levels[i].Name = band.Name
		lo := int(math.Ceil(band.LowHz * float64(frameSize) / sampleRate))
		hi := int(math.Ceil(band.HighHz * float64(frameSize) / sampleRate))
		if hi > len(spectrum) {
			hi = len(spectrum)
		}
		if lo >= hi || maxValue <= 0 {
			continue
		}

		var energy float64
		for _, m := range spectrum[lo:hi] {
			energy += m * m
		}
		level := math.Sqrt(energy/float64(hi-lo)) / maxValue
		levels[i].Level = math.Min(1.0, level)
	}
	return levels
}
