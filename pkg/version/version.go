// Package version holds build information for routenav.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build information, set via ldflags:
//
//	-X github.com/Aman-CERP/routenav/pkg/version.Version=v0.3.0
//	-X github.com/Aman-CERP/routenav/pkg/version.Commit=abc1234
//	-X github.com/Aman-CERP/routenav/pkg/version.Date=2026-01-01T00:00:00Z
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns the build information. A dev build falls back to the
// module version and VCS revision recorded by the Go toolchain.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}
	return info
}

func fillFromBuildInfo(info *BuildInfo, bi *debug.BuildInfo) {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = s.Value[:min(len(s.Value), 7)]
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
}

// String returns a one-line description of the build.
func String() string {
	i := GetInfo()
	return fmt.Sprintf("routenav %s (commit: %s, built: %s, go: %s, %s/%s)",
		i.Version, i.Commit, i.Date, i.GoVersion, i.OS, i.Arch)
}

// Short returns the version.
func Short() string {
	return GetInfo().Version
}
