// SPDX-License-Identifier: MIT

// Package cmd is the voicepiano command line.
package cmd

import (
	"fmt"
	"os"

	"voicepiano/internal/build"
	"voicepiano/internal/config"
	"voicepiano/internal/log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
)

// options are the global flags. Zero values mean "use the config file".
type options struct {
	configPath string
	verbose    bool
	deviceID   int
	frameSize  int
	shift      int
	mode       string
}

// app carries the resolved configuration into the subcommands.
type app struct {
	opts options
	cfg  *config.Config

	// meters replaces the Prometheus-backed meter provider when set.
	meters metric.MeterProvider
	// keyboardOpts are passed to the terminal keyboard program.
	keyboardOpts []tea.ProgramOption
}

// Execute parses os.Args and runs the selected command.
func Execute() error {
	root := newRootCmd(&app{})
	root.SetArgs(os.Args[1:])
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	buildInfo := build.Get()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false,
		"Show debug output")
	flags.IntVarP(&a.opts.deviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'devices' command to see available devices.")
	flags.IntVar(&a.opts.frameSize, "frame-size", config.DefaultFrameSize,
		"Samples per analysis frame (power of two)")
	flags.IntVar(&a.opts.shift, "shift", 5,
		"Keys to transpose down after mapping")
	flags.StringVar(&a.opts.mode, "mode", "absolute",
		"Peak detection mode: absolute or ratio")

	rootCmd.AddCommand(
		newDevicesCmd(a),
		newRecordCmd(a),
		newAnalyzeCmd(a),
		newPlayCmd(a),
		newTalkCmd(a),
		newRenderCmd(a),
		newMIDICmd(a),
		newKeyCmd(a),
	)
	return rootCmd
}

// loadConfig reads the config file, applies flags that were set explicitly
// and configures the logger.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Debug = a.opts.verbose
	}
	if flags.Changed("device") {
		cfg.Audio.InputDevice = a.opts.deviceID
	}
	if flags.Changed("frame-size") {
		cfg.Analysis.FrameSize = a.opts.frameSize
	}
	if flags.Changed("shift") {
		cfg.Notes.Shift = a.opts.shift
	}
	if flags.Changed("mode") {
		cfg.Peaks.Mode = a.opts.mode
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if err := log.SetLevelName(cfg.EffectiveLogLevel()); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
