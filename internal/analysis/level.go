// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"

	"voicepiano/internal/fft"
)

// MaxLevel is the top of the byte-style level scale the peak thresholds are
// expressed in.
const MaxLevel = 255.0

// Scale selects how raw transform magnitudes are mapped onto [0, MaxLevel].
type Scale int

const (
	// DecibelScale maps 20*log10(m/FullScale) over [MinDecibels,
	// MaxDecibels] linearly onto the level range, clamping outside it.
	DecibelScale Scale = iota
	// LinearScale maps m/FullScale over [0, 1] linearly onto the level range.
	LinearScale
	// RawScale leaves magnitudes untouched.
	RawScale
)

func (s Scale) String() string {
	switch s {
	case DecibelScale:
		return "decibel"
	case LinearScale:
		return "linear"
	case RawScale:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseScale converts a config name to a Scale.
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(name) {
	case "decibel", "db", "":
		return DecibelScale, nil
	case "linear":
		return LinearScale, nil
	case "raw":
		return RawScale, nil
	default:
		return DecibelScale, fmt.Errorf("unknown level scale: '%s'", name)
	}
}

// LevelConfig configures the magnitude-to-level conversion.
type LevelConfig struct {
	Scale       Scale
	MinDecibels float64
	MaxDecibels float64
}

// DefaultLevelConfig maps -100..0 dBFS onto 0..255.
func DefaultLevelConfig() LevelConfig {
	return LevelConfig{Scale: DecibelScale, MinDecibels: -100, MaxDecibels: 0}
}

// Validate checks the decibel range.
func (c LevelConfig) Validate() error {
	if c.Scale == DecibelScale && c.MaxDecibels <= c.MinDecibels {
		return fmt.Errorf("max decibels (%g) must exceed min decibels (%g)", c.MaxDecibels, c.MinDecibels)
	}
	return nil
}

// FullScale is the magnitude of a unit-amplitude sinusoid centred on a bin
// for an unwindowed transform of frameSize points.
func FullScale(frameSize int) float64 {
	return float64(frameSize) / 2
}

// MaxValue is the largest value Apply can produce for frameSize, used to
// normalise amplitudes into [0, 1].
func (c LevelConfig) MaxValue(frameSize int) float64 {
	if c.Scale == RawScale {
		return FullScale(frameSize)
	}
	return MaxLevel
}

// Apply converts spec in place from raw magnitudes to levels.
func (c LevelConfig) Apply(spec fft.Spectrum, frameSize int) {
	full := FullScale(frameSize)
	switch c.Scale {
	case RawScale:
		return
	case LinearScale:
		for i, m := range spec {
			spec[i] = clampLevel(m / full * MaxLevel)
		}
	default:
		span := c.MaxDecibels - c.MinDecibels
		for i, m := range spec {
			if m <= 0 {
				spec[i] = 0
				continue
			}
			db := 20 * math.Log10(m/full)
			spec[i] = clampLevel((db - c.MinDecibels) / span * MaxLevel)
		}
	}
}

func clampLevel(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > MaxLevel:
		return MaxLevel
	default:
		return v
	}
}
