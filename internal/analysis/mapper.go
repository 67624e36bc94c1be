// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"voicepiano/internal/fft"
)

// MapperConfig controls how peak bins become note events.
type MapperConfig struct {
	// Shift transposes every mapped note down by this many semitones.
	Shift int
	// Attenuation scales amplitude by 1 - Attenuation*note/87, taming the
	// upper register. Zero disables it.
	Attenuation float64
}

// DefaultMapperConfig shifts down a perfect fourth and attenuates the top
// key to 70%.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{Shift: 5, Attenuation: 0.3}
}

// Validate checks the attenuation bound.
func (c MapperConfig) Validate() error {
	if c.Attenuation < 0 || c.Attenuation > 1 {
		return fmt.Errorf("note attenuation must be in [0, 1], got %g", c.Attenuation)
	}
	return nil
}

// NoteMapper converts peak bins into ascending, de-duplicated note events.
type NoteMapper struct {
	cfg        MapperConfig
	table      *NoteTable
	sampleRate float64
	frameSize  int
	maxValue   float64
}

// NewNoteMapper binds the mapper to a frame geometry. maxValue is the
// largest spectrum value, used to normalise amplitudes.
func NewNoteMapper(cfg MapperConfig, table *NoteTable, sampleRate float64, frameSize int, maxValue float64) (*NoteMapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = NewNoteTable()
	}
	if maxValue <= 0 {
		return nil, fmt.Errorf("max spectrum value must be positive, got %g", maxValue)
	}
	return &NoteMapper{
		cfg:        cfg,
		table:      table,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		maxValue:   maxValue,
	}, nil
}

// Map returns one event per distinct note among peaks. Bins whose band
// misses the piano range and notes shifted off the keyboard are counted in dropped. When
// two bins land on the same key the louder one wins. peaks must be
// ascending, which keeps the result ascending too.
func (m *NoteMapper) Map(peaks []int, spectrum fft.Spectrum) (events []NoteEvent, dropped int) {
	for _, bin := range peaks {
		if bin < 0 || bin >= len(spectrum) {
			dropped++
			continue
		}
		f := m.edge(fft.BinFrequency(bin, m.sampleRate, m.frameSize))
		index, ok := m.table.Nearest(f)
		if !ok {
			dropped++
			continue
		}
		index -= m.cfg.Shift
		if index < 0 || index >= NumKeys {
			dropped++
			continue
		}

		amp := m.amplitude(index, spectrum[bin])
		if n := len(events); n > 0 && events[n-1].Note == index {
			if amp > events[n-1].Amplitude {
				events[n-1].Amplitude = amp
			}
			continue
		}
		events = append(events, NoteEvent{Note: index, Amplitude: amp})
	}
	return events, dropped
}

// edge moves a bin centre lying just off the keyboard onto its end when the
// bin's band still covers the end key.
func (m *NoteMapper) edge(f float64) float64 {
	half := m.sampleRate / float64(m.frameSize) / 2
	switch {
	case f < LowestFrequency && f+half >= LowestFrequency:
		return LowestFrequency
	case f > HighestFrequency && f-half <= HighestFrequency:
		return HighestFrequency
	default:
		return f
	}
}

func (m *NoteMapper) amplitude(note int, value float64) float64 {
	amp := value / m.maxValue
	if amp > 1 {
		amp = 1
	} else if amp < 0 {
		amp = 0
	}
	return amp * (1 - m.cfg.Attenuation*float64(note)/float64(NumKeys-1))
}
