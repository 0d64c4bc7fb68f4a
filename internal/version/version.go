// Package version carries build provenance for the evfuse binary. The
// variables are stamped with -ldflags at release time; development builds
// fall back to whatever the Go module system recorded.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is set via ldflags, e.g. -X .../version.Version=1.2.0.
	Version = "dev"
	// GitCommit is set via ldflags.
	GitCommit = "unknown"
	// BuildDate is set via ldflags.
	BuildDate = "unknown"
	// BuildID is set via ldflags.
	BuildID = "unknown"
)

// Info is the full provenance record surfaced by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns version and build information, preferring ldflags values
// and falling back to VCS metadata embedded by the toolchain.
func Get() Info {
	commit := GitCommit
	if commit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range bi.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}

	return Info{
		Version:   Version,
		GitCommit: commit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the bare version string.
func String() string {
	return Version
}
