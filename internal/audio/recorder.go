// SPDX-License-Identifier: MIT
/*
Package audio is the capture side of the piano: it records the microphone
through PortAudio into a mono sample buffer, and loads or saves buffers as
WAV files.

Thread Safety:
  - The PortAudio callback only appends under a short mutex
  - Recording state is an atomic flag
  - Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"voicepiano/internal/config"
	"voicepiano/internal/frame"
	"voicepiano/internal/log"

	"github.com/gordonklaus/portaudio"
)

// ErrNoAudioData is returned when a recording or file holds no samples.
var ErrNoAudioData = frame.ErrNoAudioData

// int32 PCM to [-1, 1).
const normFactor = 1.0 / float64(0x80000000)

// Recorder captures the first channel of an input device until stopped.
type Recorder struct {
	config config.AudioConfig

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	gate       *Gate
	maxSamples int

	// Captured samples and state.
	mu          sync.Mutex
	samples     []float64
	isRecording atomic.Bool
	peak        atomic.Int32 // last block's peak amplitude, for meters
}

// NewRecorder resolves the input device. PortAudio must be initialised.
// maxDuration of zero records until Stop.
func NewRecorder(cfg config.AudioConfig, maxDuration time.Duration) (*Recorder, error) {
	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	r := newRecorder(cfg, maxDuration)
	r.inputDevice = inputDevice
	if cfg.LowLatency {
		r.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		r.inputLatency = inputDevice.DefaultHighInputLatency
	}

	log.Infof("Audio: Recorder on '%s' (%.0f Hz, %d ch, %d frames/buffer)",
		inputDevice.Name, cfg.SampleRate, cfg.InputChannels, cfg.FramesPerBuffer)
	return r, nil
}

func newRecorder(cfg config.AudioConfig, maxDuration time.Duration) *Recorder {
	r := &Recorder{
		config: cfg,
		gate:   NewGate(cfg.GateThreshold),
	}
	if maxDuration > 0 {
		r.maxSamples = int(maxDuration.Seconds() * cfg.SampleRate)
	}
	// Room for ten seconds before the first reallocation.
	r.samples = make([]float64, 0, int(cfg.SampleRate)*10)
	return r
}

// Start opens the input stream and begins capturing. Previously captured
// samples are discarded.
func (r *Recorder) Start() error {
	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	r.mu.Lock()
	r.samples = r.samples[:0]
	r.mu.Unlock()

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: r.config.InputChannels,
			Device:   r.inputDevice,
			Latency:  r.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: r.config.FramesPerBuffer,
		SampleRate:      r.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, r.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	r.inputStream = stream

	r.isRecording.Store(true)
	if err := r.inputStream.Start(); err != nil {
		r.isRecording.Store(false)
		r.inputStream.Close()
		r.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	log.Infof("Audio: Recording started")
	return nil
}

// Stop closes the stream and returns the capture with leading and trailing
// silence below the gate threshold trimmed. A capture with nothing above
// the gate returns ErrNoAudioData.
func (r *Recorder) Stop() (frame.Buffer, error) {
	r.isRecording.Store(false)

	if r.inputStream != nil {
		if err := r.inputStream.Stop(); err != nil {
			return frame.Buffer{}, err
		}
		if err := r.inputStream.Close(); err != nil {
			return frame.Buffer{}, err
		}
		r.inputStream = nil
	}

	return r.buffer()
}

// buffer copies out the trimmed capture.
func (r *Recorder) buffer() (frame.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	captured := len(r.samples)
	samples := r.samples
	if r.gate.Enabled() {
		samples = Trim(samples, r.gate.Threshold())
	}
	log.Infof("Audio: Recording stopped, %d samples captured, %d kept", captured, len(samples))
	if len(samples) == 0 {
		return frame.Buffer{}, ErrNoAudioData
	}

	out := make([]float64, len(samples))
	copy(out, samples)
	return frame.Buffer{Samples: out, SampleRate: r.config.SampleRate}, nil
}

// Recording reports whether the stream is capturing.
func (r *Recorder) Recording() bool { return r.isRecording.Load() }

// Level returns the peak of the most recent block, 0-1.
func (r *Recorder) Level() float64 {
	return float64(r.peak.Load()) * normFactor
}

// Captured returns the capture length so far.
func (r *Recorder) Captured() time.Duration {
	r.mu.Lock()
	n := len(r.samples)
	r.mu.Unlock()
	return time.Duration(float64(n) / r.config.SampleRate * float64(time.Second))
}

// processInputStream is the PortAudio callback.
func (r *Recorder) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r.process(in)
}

// process appends the first channel of an interleaved block.
func (r *Recorder) process(in []int32) {
	if !r.isRecording.Load() {
		return
	}
	r.peak.Store(PeakAmplitude(in))

	channels := r.config.InputChannels
	if channels < 1 {
		channels = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < len(in); i += channels {
		if r.maxSamples > 0 && len(r.samples) >= r.maxSamples {
			return
		}
		r.samples = append(r.samples, float64(in[i])*normFactor)
	}
}
