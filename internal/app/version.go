package app

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/heartmarshall/labassist-backend/internal/app.Version=1.2.0".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = "unknown"
)

// BuildVersion is reported by the startup log and the health endpoints. The
// commit falls back to the VCS stamp the go tool embeds when ldflags are not
// given.
func BuildVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, commit(debug.ReadBuildInfo), BuildTime)
}

func commit(read func() (*debug.BuildInfo, bool)) string {
	if Commit != "" {
		return Commit
	}
	info, ok := read()
	if !ok {
		return "unknown"
	}
	rev, dirty := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "unknown"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "+dirty"
	}
	return rev
}
