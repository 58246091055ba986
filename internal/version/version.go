package version

import (
	"runtime/debug"
	"strings"
)

// Overridden at release time via -ldflags.
var (
	Version = "0.3.0"
	Commit  = "unknown"
)

// Resolve returns the version string shown to users. Release builds get
// the bare version; other builds carry a short revision suffix taken
// from the embedded build info.
func Resolve() string {
	return resolveVersion(Version, Commit, buildRevision)
}

func resolveVersion(base, commit string, revision func() string) string {
	if base == "" {
		base = "0.0.0"
	}

	if commit != "" && commit != "unknown" {
		return base
	}

	rev := revision()
	if rev == "" {
		return base
	}
	return base + "-" + rev
}

func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var rev string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if rev == "" {
		return ""
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "-dirty"
	}
	return strings.ToLower(rev)
}
