// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("secwatch %s (commit: %s, built: %s)", Version, Commit, BuildTime)
}

// Info returns the build metadata as a map for JSON responses.
func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"buildTime": BuildTime,
	}
}
