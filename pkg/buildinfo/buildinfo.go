// Package buildinfo exposes build-time version metadata for the verimeet binary.
// The values are injected at build time via -ldflags.
package buildinfo

import "fmt"

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/verimeet/verimeet/pkg/buildinfo.Version=v0.2.0"
var (
	// Version is the semantic version of the build.
	Version = "dev"

	// Commit is the git commit hash the binary was built from.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info holds the build metadata as a single value.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build information.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String returns a single-line human-readable rendering.
func (i Info) String() string {
	return fmt.Sprintf("verimeet %s (commit %s, built %s)", i.Version, i.Commit, i.Date)
}
