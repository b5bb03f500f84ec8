// Package version carries build-time identification for the nanoc binary.
package version

// Version is the release version, set via ldflags in release builds:
// go build -ldflags "-X github.com/xavier/nanoc/internal/version.Version=v1.2.0".
var Version = "dev"

// Build metadata, also injected at link time.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version with the commit when one is known.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
