// Package buildinfo reports which build of the bot is running.
//
// Release builds stamp the values through -ldflags:
//
//	-X 'github.com/m3rciful/moviebot/core/buildinfo.Version=v0.4.0'
//	-X 'github.com/m3rciful/moviebot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/moviebot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Unstamped builds fall back to the VCS data the Go toolchain embeds.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

// Link-time stamps; see the package comment.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info is the resolved build identity.
type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
}

var (
	once     sync.Once
	resolved Info
)

// Get resolves the build identity once.
func Get() Info {
	once.Do(func() {
		resolved = Info{Version: Version, Commit: Commit, Date: Date}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		resolved = fromBuildInfo(resolved, bi)
	})
	return resolved
}

func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
				if len(info.Commit) > 7 {
					info.Commit = info.Commit[:7]
				}
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if info.Commit == "" {
		info.Commit = "local"
	}
	return info
}
