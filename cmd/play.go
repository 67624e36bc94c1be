// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voicepiano/internal/audio"

	"github.com/spf13/cobra"
)

type playFlags struct {
	noSynth    bool
	noKeyboard bool
	offline    bool
}

func (f *playFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noSynth, "no-synth", false, "Do not play through the speakers")
	cmd.Flags().BoolVar(&f.noKeyboard, "no-keyboard", false, "Do not show the terminal keyboard")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "Run frames as fast as possible instead of in real time")
}

func (a *app) outputFlags(f playFlags) outputFlags {
	if f.offline {
		a.cfg.Playback.Realtime = false
	}
	return outputFlags{
		synth:    a.cfg.Playback.Synth && !f.noSynth,
		keyboard: a.cfg.Playback.Keyboard && !f.noKeyboard,
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func newPlayCmd(a *app) *cobra.Command {
	var flags playFlags

	cmd := &cobra.Command{
		Use:   "play <file.wav>",
		Short: "Play a recording as piano",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, session, err := a.loadWAV(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			return a.perform(ctx, session, buf, a.outputFlags(flags))
		},
	}
	flags.register(cmd)
	return cmd
}

func newTalkCmd(a *app) *cobra.Command {
	var (
		flags playFlags
		save  bool
	)

	cmd := &cobra.Command{
		Use:   "talk",
		Short: "Record until Ctrl-C, then play it back as piano",
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := a.capture(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if save {
				path := defaultRecordingPath(a.cfg.Recording.OutputDir)
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := audio.SaveWAV(path, buf, a.cfg.Recording.BitDepth); err != nil {
					return err
				}
				fmt.Printf("Recording saved to: %s\n", path)
			}

			session, err := a.newSession(buf.SampleRate)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()
			return a.perform(ctx, session, buf, a.outputFlags(flags))
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Also save the recording to recording.output_dir")
	return cmd
}
