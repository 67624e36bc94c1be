// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"fmt"
	"os"

	"voicepiano/cmd"
	"voicepiano/internal/audio"
	"voicepiano/internal/build"
	"voicepiano/internal/log"
)

// main is the entry point of voicepiano.
//
// 1. Startup: build information, then command line and configuration.
// 2. Command: capture, analysis and playback run inside the selected
//    subcommand; each one owns its devices and tears them down itself.
// 3. Exit: a silent recording is reported plainly, anything else is an
//    error exit.
func main() {
	if err := build.Initialize(); err != nil {
		log.Warnf("Build: %v", err)
	}

	err := cmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, audio.ErrNoAudioData):
		fmt.Fprintln(os.Stderr, "Nothing was recorded above the noise gate.")
		os.Exit(2)
	default:
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
