// Package version holds the viewer release version.
package version

// Version is the release version of the viewer. Override at build time with
//
//	go build -ldflags "-X github.com/AaronLay10/SemanticZoom/internal/version.Version=x.y.z"
var Version = "0.3.0"

// Commit is the source revision, set the same way as Version.
var Commit = "unknown"

// String returns "version (commit)".
func String() string {
	return Version + " (" + Commit + ")"
}
