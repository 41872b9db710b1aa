package app

import (
	"fmt"
	"runtime/debug"
)

// Version, Commit and BuildTime are set with ldflags, e.g.
// -X github.com/heartmarshall/hideout-backend/internal/app.Version=1.4.0
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = "unknown"
)

// BuildVersion formats the version for startup logs, /health and
// `hideoutctl version`. Without ldflags the commit comes from the VCS stamp
// the Go toolchain embeds.
func BuildVersion() string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, commit, BuildTime)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return s.Value[:12]
		}
	}
	return "unknown"
}
