// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"voicepiano/internal/frame"
	"voicepiano/internal/log"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Microphone capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Framing, transform and pre-processing.
	Peaks     PeaksConfig     `yaml:"peaks"`     // Spectral peak detector.
	Notes     NotesConfig     `yaml:"notes"`     // Peak to key mapping.
	Playback  PlaybackConfig  `yaml:"playback"`  // Piano output.
	Recording RecordingConfig `yaml:"recording"` // WAV recording settings.
	Transport TransportConfig `yaml:"transport"` // Network collaborators.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Channels to capture; the first one is analysed.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Leading/trailing silence below this peak level (0-1) is trimmed.
}

// AnalysisConfig holds the framing and spectrum settings.
type AnalysisConfig struct {
	FrameSize      int     `yaml:"frame_size"`      // Samples per analysis frame (power of two).
	LowCutoffHz    float64 `yaml:"low_cutoff_hz"`   // Lowest frequency searched for peaks.
	HighCutoffHz   float64 `yaml:"high_cutoff_hz"`  // Highest frequency searched for peaks.
	Window         string  `yaml:"window"`          // "none" or a gonum window name.
	Scale          string  `yaml:"scale"`           // "decibel", "linear" or "raw".
	MinDecibels    float64 `yaml:"min_decibels"`    // Bottom of the decibel scale.
	MaxDecibels    float64 `yaml:"max_decibels"`    // Top of the decibel scale.
	LowPassEnabled bool    `yaml:"lowpass_enabled"` // Low-pass the recording before analysis.
	LowPassHz      float64 `yaml:"lowpass_hz"`      // Low-pass cutoff.
	Workers        int     `yaml:"workers"`         // Concurrent frame analysis (0 = GOMAXPROCS).
}

// PeaksConfig configures the hysteresis peak detector.
type PeaksConfig struct {
	Mode            string  `yaml:"mode"`             // "absolute" or "ratio".
	Cutoff          float64 `yaml:"cutoff"`           // Ratio mode turn threshold, in (0, 1).
	Trigger         float64 `yaml:"trigger"`          // Absolute mode turn threshold, in level units.
	MinimumStrength float64 `yaml:"minimum_strength"` // Noise floor on the 0-255 level scale.
	Floor           string  `yaml:"floor"`            // "default", "skip" or "examine" for sub-floor bins.
}

// NotesConfig configures the note mapper.
type NotesConfig struct {
	Shift       int     `yaml:"shift"`       // Semitones to transpose down.
	Attenuation float64 `yaml:"attenuation"` // Upper register attenuation, in [0, 1].
}

// PlaybackConfig configures the piano output.
type PlaybackConfig struct {
	Realtime bool    `yaml:"realtime"` // Pace frames at their real duration.
	Synth    bool    `yaml:"synth"`    // Play through the speakers.
	Keyboard bool    `yaml:"keyboard"` // Show the terminal keyboard.
	Gain     float64 `yaml:"gain"`     // Master gain, in (0, 1].
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	BitDepth    int    `yaml:"bit_depth"`            // Bit depth for recorded audio (16, 24 or 32).
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum recording length in seconds (0 for unlimited).
}

// TransportConfig holds settings related to sending frames and keys over the network.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Broadcast frames and keys to browsers.
	HTTPAddress      string `yaml:"http_address"`       // Listen address for /ws and /metrics.
	MetricsEnabled   bool   `yaml:"metrics_enabled"`    // Serve Prometheus metrics on /metrics.
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send spectra over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
			InputChannels:   DefaultChannels,
			GateThreshold:   0.01,
		},
		Analysis: AnalysisConfig{
			FrameSize:      DefaultFrameSize,
			LowCutoffHz:    27.5,
			HighCutoffHz:   4186,
			Window:         "none",
			Scale:          "decibel",
			MinDecibels:    -100,
			MaxDecibels:    0,
			LowPassEnabled: true,
			LowPassHz:      2000,
		},
		Peaks: PeaksConfig{
			Mode:            "absolute",
			Cutoff:          0.5,
			Trigger:         20,
			MinimumStrength: 30,
			Floor:           "default",
		},
		Notes: NotesConfig{
			Shift:       5,
			Attenuation: 0.3,
		},
		Playback: PlaybackConfig{
			Realtime: true,
			Synth:    true,
			Keyboard: true,
			Gain:     1.0,
		},
		Recording: RecordingConfig{
			OutputDir:   "./recordings",
			BitDepth:    DefaultBitDepth,
			MaxDuration: 0, // 0 for unlimited.
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			HTTPAddress:      DefaultHTTPAddress,
			MetricsEnabled:   false,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "voicepiano.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Debugf("Config: Loaded %s", path)
	return cfg, nil
}

// Validate checks every section. Frame sizes that are not a power of two
// wrap frame.ErrInvalidFrameSize.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level '%s' is not recognised", c.LogLevel)
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1, got %d", a.InputChannels)
	}
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be %d (default) or a device index, got %d", MinDeviceID, a.InputDevice)
	}
	if a.GateThreshold < 0 || a.GateThreshold >= 1 {
		return fmt.Errorf("audio.gate_threshold must be in [0, 1), got %g", a.GateThreshold)
	}

	if err := frame.CheckSize(c.Analysis.FrameSize); err != nil {
		return fmt.Errorf("analysis.frame_size: %w", err)
	}
	if c.Analysis.FrameSize > MaxFrameSize {
		return fmt.Errorf("analysis.frame_size must not exceed %d, got %d", MaxFrameSize, c.Analysis.FrameSize)
	}
	if c.Analysis.LowCutoffHz <= 0 || c.Analysis.HighCutoffHz <= c.Analysis.LowCutoffHz {
		return fmt.Errorf("analysis cutoffs must satisfy 0 < low < high, got %g and %g",
			c.Analysis.LowCutoffHz, c.Analysis.HighCutoffHz)
	}

	if c.Playback.Gain <= 0 || c.Playback.Gain > 1 {
		return fmt.Errorf("playback.gain must be in (0, 1], got %g", c.Playback.Gain)
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}
	if c.Recording.MaxDuration < 0 {
		return fmt.Errorf("recording.max_duration_seconds must not be negative, got %d", c.Recording.MaxDuration)
	}

	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid: %w", c.Transport.UDPTargetAddress, err)
		}
	}
	if c.Transport.WebSocketEnabled || c.Transport.MetricsEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.HTTPAddress); err != nil {
			return fmt.Errorf("transport.http_address '%s' appears invalid: %w", c.Transport.HTTPAddress, err)
		}
	}

	// Mode, window and scale names plus every numeric threshold.
	ac, err := c.AnalysisConfig()
	if err != nil {
		return err
	}
	return ac.Validate()
}

// applyEnvOverrides lets ENV_* variables override file and default values.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Infof("Config: Overriding debug from env: %v", bVal)
		} else {
			log.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_INPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = iVal
			log.Infof("Config: Overriding audio.input_device from env: %d", iVal)
		} else {
			log.Warnf("Config: Ignoring ENV_INPUT_DEVICE=%q: %v", val, err)
		}
	}

	// ENV_FRAME_SIZE
	if val, ok := os.LookupEnv("ENV_FRAME_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Analysis.FrameSize = iVal
			log.Infof("Config: Overriding analysis.frame_size from env: %d", iVal)
		} else {
			log.Warnf("Config: Ignoring ENV_FRAME_SIZE=%q: %v", val, err)
		}
	}
	// ENV_PEAK_MODE
	if val, ok := os.LookupEnv("ENV_PEAK_MODE"); ok {
		c.Peaks.Mode = val
		log.Infof("Config: Overriding peaks.mode from env: %s", val)
	}
	// ENV_NOTE_SHIFT
	if val, ok := os.LookupEnv("ENV_NOTE_SHIFT"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Notes.Shift = iVal
			log.Infof("Config: Overriding notes.shift from env: %d", iVal)
		} else {
			log.Warnf("Config: Ignoring ENV_NOTE_SHIFT=%q: %v", val, err)
		}
	}

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			log.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_WEBSOCKET_ENABLED
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
			log.Infof("Config: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	// ENV_HTTP_ADDRESS
	if val, ok := os.LookupEnv("ENV_HTTP_ADDRESS"); ok {
		c.Transport.HTTPAddress = val
		log.Infof("Config: Overriding transport.http_address from env: %s", val)
	}
}
