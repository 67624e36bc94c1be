// SPDX-License-Identifier: MIT

// Package config loads the YAML configuration, applies ENV_* overrides and
// validates the result before any component is built from it.
package config

// Defaults and hardware limits.
const (
	DefaultChannels        = 1     // Mono capture
	DefaultDeviceID        = MinDeviceID
	DefaultFramesPerBuffer = 512   // Balanced latency/performance
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultFrameSize       = 4096  // Analysis frame, ~93ms at 44.1kHz
	DefaultBitDepth        = 16
	DefaultHTTPAddress     = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"

	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxFrameSize    = 65536  // Largest analysis frame
)
