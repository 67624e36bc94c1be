// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/synth"

	"github.com/spf13/cobra"
)

func newKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "key <note>...",
		Short: "Play piano keys by index (0-87) or name (A4, C#5)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes := make([]int, len(args))
			for i, arg := range args {
				n, err := analysis.ParseNote(arg)
				if err != nil {
					return err
				}
				notes[i] = n
			}

			s, err := synth.New(synth.DefaultSampleRate, 1)
			if err != nil {
				return err
			}
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Close()

			for _, n := range notes {
				fmt.Printf("%s (key %d, %.2f Hz)\n", analysis.NoteName(n), n, analysis.NewNoteTable().Frequency(n))
				if err := s.PlayKey(n); err != nil {
					return err
				}
				time.Sleep(synth.End)
			}
			// Let the speaker buffer drain.
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
}
