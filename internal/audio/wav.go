// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"voicepiano/internal/frame"
	"voicepiano/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// LoadWAV reads a PCM WAV file into a mono buffer, averaging channels.
func LoadWAV(path string) (frame.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return frame.Buffer{}, err
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return frame.Buffer{}, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("Audio: Loaded %s (%.2fs at %.0f Hz)", path, buf.Duration(), buf.SampleRate)
	return buf, nil
}

// DecodeWAV decodes PCM WAV data. An empty data chunk returns
// ErrNoAudioData.
func DecodeWAV(r io.ReadSeeker) (frame.Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return frame.Buffer{}, fmt.Errorf("invalid WAV file")
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return frame.Buffer{}, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return frame.Buffer{}, fmt.Errorf("unsupported WAV bit depth %d", bitDepth)
	}
	// 8-bit WAV is unsigned; go-audio keeps the raw byte values.
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}
	scale := 1.0 / math.Pow(2, float64(bitDepth-1))

	frames := len(pcm.Data) / channels
	if frames == 0 {
		return frame.Buffer{}, ErrNoAudioData
	}

	samples := make([]float64, frames)
	for i := range samples {
		var sum float64
		for c := range channels {
			sum += float64(pcm.Data[i*channels+c]) - offset
		}
		samples[i] = sum / float64(channels) * scale
	}
	return frame.Buffer{Samples: samples, SampleRate: float64(decoder.SampleRate)}, nil
}

// SaveWAV writes buf as a mono PCM WAV file of bitDepth bits.
func SaveWAV(path string, buf frame.Buffer, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, buf, bitDepth); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Infof("Audio: Saved %s (%.2fs, %d-bit)", path, buf.Duration(), bitDepth)
	return nil
}

// EncodeWAV writes buf to w. Samples are clipped to [-1, 1].
func EncodeWAV(w io.WriteSeeker, buf frame.Buffer, bitDepth int) error {
	if buf.Empty() {
		return ErrNoAudioData
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	sampleRate := int(buf.SampleRate)
	encoder := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)

	full := math.Pow(2, float64(bitDepth-1)) - 1
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * full))
	}

	pcm := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := encoder.Write(pcm); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return encoder.Close()
}
