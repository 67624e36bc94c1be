// SPDX-License-Identifier: MIT

// Package build exposes the build information injected with -ldflags, for
// example:
//
//	go build -ldflags "-X voicepiano/internal/build.buildVersion=0.1.0 \
//	    -X voicepiano/internal/build.buildCommit=$(git rev-parse --short HEAD)"
package build

import (
	"fmt"
	"strings"
)

// Info holds build-time information.
type Info struct {
	Name        string // Application name
	Description string // One-line summary for the CLI
	Time        string // Build timestamp (RFC3339)
	Commit      string // Git commit hash
	Version     string // Semantic version
}

// Populated by -ldflags; empty during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	info = Info{
		Name:        "voicepiano",
		Description: "Turn your voice into piano playing",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the ldflags values over the development defaults. It
// returns an error naming the missing flags when a release build
// (buildVersion set) lacks any of the others.
func Initialize() error {
	var missing []string
	set := func(dst *string, value, flag string) {
		if value == "" {
			missing = append(missing, flag)
			return
		}
		*dst = value
	}
	set(&info.Name, buildName, "buildName")
	set(&info.Time, buildTime, "buildTime")
	set(&info.Commit, buildCommit, "buildCommit")
	set(&info.Version, buildVersion, "buildVersion")

	if buildVersion != "" && len(missing) > 0 {
		return fmt.Errorf("release build missing ldflags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the current build information.
func Get() Info {
	return info
}

// String formats the information for --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}
