// SPDX-License-Identifier: MIT
package config

import (
	"voicepiano/internal/analysis"
)

// AnalysisConfig converts the analysis, peaks and notes sections into the
// analyzer's configuration. The sample rate comes from the audio section.
func (c *Config) AnalysisConfig() (analysis.Config, error) {
	window, err := analysis.ParseWindowFunc(c.Analysis.Window)
	if err != nil {
		return analysis.Config{}, err
	}
	scale, err := analysis.ParseScale(c.Analysis.Scale)
	if err != nil {
		return analysis.Config{}, err
	}
	mode, err := analysis.ParsePeakMode(c.Peaks.Mode)
	if err != nil {
		return analysis.Config{}, err
	}
	floor, err := analysis.ParseFloorPolicy(c.Peaks.Floor)
	if err != nil {
		return analysis.Config{}, err
	}

	return analysis.Config{
		SampleRate: c.Audio.SampleRate,
		FrameSize:  c.Analysis.FrameSize,
		LowHz:      c.Analysis.LowCutoffHz,
		HighHz:     c.Analysis.HighCutoffHz,
		Window:     window,
		LowPass:    c.Analysis.LowPassEnabled,
		LowPassHz:  c.Analysis.LowPassHz,
		Level: analysis.LevelConfig{
			Scale:       scale,
			MinDecibels: c.Analysis.MinDecibels,
			MaxDecibels: c.Analysis.MaxDecibels,
		},
		Peaks: analysis.PeakConfig{
			Mode:            mode,
			Cutoff:          c.Peaks.Cutoff,
			Trigger:         c.Peaks.Trigger,
			MinimumStrength: c.Peaks.MinimumStrength,
			Floor:           floor,
		},
		Notes: analysis.MapperConfig{
			Shift:       c.Notes.Shift,
			Attenuation: c.Notes.Attenuation,
		},
		Workers: c.Analysis.Workers,
	}, nil
}

// EffectiveLogLevel resolves debug and log_level into a logger level.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
