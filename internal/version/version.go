// Package version reports the cgd1 build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/cgd1/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/cgd1/internal/version.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary
type Info struct {
	Version   string
	Commit    string
	Dirty     bool
	GoVersion string
	Platform  string
}

func init() {
	info := fromBuildInfo()
	if Version == "" {
		Version = info.Version
	}
	if Commit == "" {
		Commit = info.Commit
	}
}

// Get returns the version information of this build
func Get() Info {
	info := fromBuildInfo()
	info.Version = Version
	info.Commit = Commit
	return info
}

// String renders "v0.3.0 (abc1234, go1.24.10 linux/amd64)"
func (i Info) String() string {
	commit := i.Commit
	if i.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s %s)", i.Version, commit, i.GoVersion, i.Platform)
}

// Full returns the one-line version string
func Full() string {
	return Get().String()
}

func fromBuildInfo() Info {
	info := Info{
		Version:   "dev",
		Commit:    "unknown",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
			if len(info.Commit) > 7 {
				info.Commit = info.Commit[:7]
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}
