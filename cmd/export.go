// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicepiano/internal/midi"
	"voicepiano/internal/piano"
	"voicepiano/internal/synth"

	"github.com/spf13/cobra"
)

// offlineOptions plays frames back to back into sink.
func offlineOptions(sink piano.Sink) piano.PlayOptions {
	return piano.PlayOptions{Realtime: false, Sink: sink}
}

func newRenderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "render <in.wav> <out.wav>",
		Short: "Render a recording as piano into a WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, session, err := a.loadWAV(args[0])
			if err != nil {
				return err
			}
			renderer, err := synth.NewRenderer(synth.DefaultSampleRate, a.cfg.Playback.Gain)
			if err != nil {
				return err
			}
			if err := session.Play(cmd.Context(), buf, offlineOptions(renderer)); err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			length := max(renderer.Length(), time.Duration(buf.Duration()*float64(time.Second)))
			if err := renderer.Encode(f, length); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Rendered %d notes to %s (%.2fs)\n", renderer.Voices(), args[1], length.Seconds())
			return nil
		},
	}
}

func newMIDICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "midi <in.wav> <out.mid>",
		Short: "Export the notes of a recording as a MIDI file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, session, err := a.loadWAV(args[0])
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			w := midi.NewWriter(name)
			if err := session.Play(cmd.Context(), buf, offlineOptions(w)); err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if _, err := w.WriteTo(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Wrote %d note events to %s\n", w.Events(), args[1])
			return nil
		},
	}
}
