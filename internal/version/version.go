// Package version carries build metadata set through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	CLIName    = "solw"
	CLIVersion = "0.1.0"
	Commit     = ""
	BuildDate  = ""
)

func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", CLIName, CLIVersion, runtime.GOOS, runtime.GOARCH)
}

// Long falls back to the VCS stamp embedded by the Go toolchain when the
// release ldflags were not set.
func Long() string {
	commit, date := Commit, BuildDate
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = shortRevision(s.Value)
				}
			case "vcs.time":
				if date == "" {
					date = s.Value
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s)", CLIName, CLIVersion, commit, date, runtime.Version())
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
