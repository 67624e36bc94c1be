// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"voicepiano/internal/audio"
	"voicepiano/internal/tui"

	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if !pick {
				return audio.ListDevices(os.Stdout)
			}

			sel, err := tui.PickDevice()
			if err != nil {
				return err
			}
			if sel == nil {
				return nil
			}
			fmt.Printf("Selected [%d] %s at %.0f Hz\n", sel.DeviceID, sel.DeviceName, sel.SampleRate)
			fmt.Printf("Use: --device %d, or set ENV_INPUT_DEVICE=%d and audio.sample_rate: %.0f\n",
				sel.DeviceID, sel.DeviceID, sel.SampleRate)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&pick, "pick", "p", false, "Choose an input device interactively")
	return cmd
}
