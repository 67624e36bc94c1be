// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"

	"voicepiano/internal/fft"
)

// PeakMode selects how the hysteresis detector decides that the spectrum
// has turned.
type PeakMode int

const (
	// RatioMode turns when valley/value or value/peak drops below Cutoff.
	RatioMode PeakMode = iota
	// AbsoluteMode turns when the difference exceeds Trigger level units.
	AbsoluteMode
)

func (m PeakMode) String() string {
	switch m {
	case RatioMode:
		return "ratio"
	case AbsoluteMode:
		return "absolute"
	default:
		return "unknown"
	}
}

// ParsePeakMode converts a config name to a PeakMode.
func ParsePeakMode(name string) (PeakMode, error) {
	switch strings.ToLower(name) {
	case "ratio", "":
		return RatioMode, nil
	case "absolute", "abs":
		return AbsoluteMode, nil
	default:
		return RatioMode, fmt.Errorf("unknown peak mode: '%s'", name)
	}
}

// FloorPolicy decides whether bins below MinimumStrength take part in the
// sweep at all.
type FloorPolicy int

const (
	// FloorModeDefault skips weak bins in ratio mode and examines them in
	// absolute mode.
	FloorModeDefault FloorPolicy = iota
	// FloorSkip never examines weak bins as peak or valley candidates.
	FloorSkip
	// FloorExamine lets weak bins drive valley tracking; they are still
	// never emitted as peaks.
	FloorExamine
)

func (f FloorPolicy) String() string {
	switch f {
	case FloorSkip:
		return "skip"
	case FloorExamine:
		return "examine"
	default:
		return "default"
	}
}

// ParseFloorPolicy converts a config name to a FloorPolicy.
func ParseFloorPolicy(name string) (FloorPolicy, error) {
	switch strings.ToLower(name) {
	case "default", "":
		return FloorModeDefault, nil
	case "skip":
		return FloorSkip, nil
	case "examine":
		return FloorExamine, nil
	default:
		return FloorModeDefault, fmt.Errorf("unknown floor policy: '%s'", name)
	}
}

// PeakConfig parameterises the detector. Cutoff applies in RatioMode,
// Trigger in AbsoluteMode.
type PeakConfig struct {
	Mode            PeakMode
	Cutoff          float64
	Trigger         float64
	MinimumStrength float64
	Floor           FloorPolicy
}

// DefaultPeakConfig returns absolute mode with a 20-level trigger, the
// half-height ratio cutoff and a noise floor of 30 on the 0-255 level scale.
func DefaultPeakConfig() PeakConfig {
	return PeakConfig{
		Mode:            AbsoluteMode,
		Cutoff:          0.5,
		Trigger:         20,
		MinimumStrength: 30,
	}
}

// Validate checks the thresholds for the selected mode.
func (c PeakConfig) Validate() error {
	switch c.Mode {
	case RatioMode:
		if c.Cutoff <= 0 || c.Cutoff >= 1 {
			return fmt.Errorf("peak cutoff must be in (0, 1), got %g", c.Cutoff)
		}
	case AbsoluteMode:
		if c.Trigger <= 0 {
			return fmt.Errorf("peak trigger must be positive, got %g", c.Trigger)
		}
	default:
		return fmt.Errorf("unknown peak mode %d", c.Mode)
	}
	if c.MinimumStrength < 0 {
		return fmt.Errorf("minimum strength must not be negative, got %g", c.MinimumStrength)
	}
	return nil
}

// skipsFloor resolves the policy against the mode.
func (c PeakConfig) skipsFloor() bool {
	switch c.Floor {
	case FloorSkip:
		return true
	case FloorExamine:
		return false
	default:
		return c.Mode == RatioMode
	}
}

// PeakDetector finds local maxima of a spectrum inside the piano range with
// a single left-to-right hysteresis sweep. It holds no per-frame state and
// is safe for concurrent use.
type PeakDetector struct {
	cfg     PeakConfig
	skip    bool
	lowBin  int
	highBin int
}

// NewPeakDetector precomputes the bin range [lowBin, highBin] for frames of
// frameSize samples at sampleRate: every bin whose band (centre plus or
// minus half a bin) reaches into [lowHz, highHz]. A tone on either end of
// the range can peak at such an edge bin.
func NewPeakDetector(cfg PeakConfig, sampleRate float64, frameSize int, lowHz, highHz float64) (*PeakDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if lowHz <= 0 || highHz <= lowHz {
		return nil, fmt.Errorf("invalid peak range [%g, %g] Hz", lowHz, highHz)
	}

	binWidth := sampleRate / float64(frameSize)
	lowBin := int(math.Ceil(lowHz/binWidth - 0.5))
	highBin := int(math.Floor(highHz/binWidth + 0.5))
	if last := frameSize/2 - 1; highBin > last {
		highBin = last
	}
	if lowBin > highBin {
		return nil, fmt.Errorf("no spectrum bins inside [%g, %g] Hz at %d points / %.0f Hz",
			lowHz, highHz, frameSize, sampleRate)
	}

	return &PeakDetector{
		cfg:     cfg,
		skip:    cfg.skipsFloor(),
		lowBin:  lowBin,
		highBin: highBin,
	}, nil
}

// Range returns the inclusive bin range peaks are reported from.
func (d *PeakDetector) Range() (lowBin, highBin int) {
	return d.lowBin, d.highBin
}

// Config returns the detector's configuration.
func (d *PeakDetector) Config() PeakConfig { return d.cfg }

// rose reports that value has climbed far enough above valley to count as
// a new rising edge.
func (d *PeakDetector) rose(valley, value float64) bool {
	if d.cfg.Mode == AbsoluteMode {
		return value-valley > d.cfg.Trigger
	}
	return valley/value < d.cfg.Cutoff
}

// fell reports that value has dropped far enough below peak to complete it.
func (d *PeakDetector) fell(peak, value float64) bool {
	if d.cfg.Mode == AbsoluteMode {
		return peak-value > d.cfg.Trigger
	}
	return value/peak < d.cfg.Cutoff
}

// FindPeaks returns the ascending bin indices of the peaks of spectrum
// that lie inside Range. The sweep covers the whole spectrum so a maximum
// on either edge of the range is judged against its real neighbours. A
// peak is reported once the sweep has fallen far enough past it; a maximum
// still rising at the end of the spectrum is not reported.
func (d *PeakDetector) FindPeaks(spectrum fft.Spectrum) []int {
	return d.AppendPeaks(nil, spectrum)
}

// AppendPeaks is FindPeaks appending into dst.
func (d *PeakDetector) AppendPeaks(dst []int, spectrum fft.Spectrum) []int {
	if len(spectrum) == 0 || d.lowBin >= len(spectrum) {
		return dst
	}

	floor := d.cfg.MinimumStrength
	peak, peakIndex := spectrum[0], 0
	valley := spectrum[0]
	descending := false

	for i := 1; i < len(spectrum); i++ {
		value := spectrum[i]
		if d.skip && value < floor {
			continue
		}

		if descending && d.rose(valley, value) {
			descending = false
			peak, peakIndex = value, i
		} else if !descending && value > peak {
			peak, peakIndex = value, i
		}

		if !descending && d.fell(peak, value) {
			descending = true
			valley = value
			if peak >= floor && peakIndex >= d.lowBin && peakIndex <= d.highBin {
				dst = append(dst, peakIndex)
			}
		} else if descending && value < valley {
			valley = value
		}
		// Nothing past highBin can be reported.
		if i > d.highBin && (descending || peakIndex > d.highBin) {
			break
		}
	}

	return dst
}
