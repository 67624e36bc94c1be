// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"voicepiano/internal/audio"
	"voicepiano/internal/frame"
	"voicepiano/internal/log"

	"github.com/spf13/cobra"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		output  string
		seconds float64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the microphone to a WAV file (Ctrl-C stops)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultRecordingPath(a.cfg.Recording.OutputDir)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}

			buf, err := a.capture(cmd.Context(), seconds)
			if err != nil {
				return err
			}
			if err := audio.SaveWAV(output, buf, a.cfg.Recording.BitDepth); err != nil {
				return err
			}
			fmt.Printf("Recording saved to: %s (%.2fs)\n", output, buf.Duration())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Output file name. Default is <output_dir>/recording-DD-MM-YYYY-HHMMSS.wav")
	cmd.Flags().Float64Var(&seconds, "seconds", 0,
		"Stop after this many seconds (0: until Ctrl-C or recording.max_duration_seconds)")
	return cmd
}

func defaultRecordingPath(dir string) string {
	name := "recording-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	return filepath.Join(dir, name)
}

// capture records the microphone until Ctrl-C or the time limit.
func (a *app) capture(ctx context.Context, seconds float64) (frame.Buffer, error) {
	if err := audio.Initialize(); err != nil {
		return frame.Buffer{}, err
	}
	defer audio.Terminate()

	limit := time.Duration(seconds * float64(time.Second))
	if limit <= 0 {
		limit = time.Duration(a.cfg.Recording.MaxDuration) * time.Second
	}

	rec, err := audio.NewRecorder(a.cfg.Audio, limit)
	if err != nil {
		return frame.Buffer{}, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	if err := rec.Start(); err != nil {
		return frame.Buffer{}, err
	}
	fmt.Println("Recording... press Ctrl-C to stop.")

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-ticker.C:
			log.Debugf("Record: %.1fs, level %.2f", rec.Captured().Seconds(), rec.Level())
		}
	}
	return rec.Stop()
}
