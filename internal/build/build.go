// Package build carries version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/moritzfl/homebrew-vale-ls/internal/build.Version=v0.4.0 \
//	  -X github.com/moritzfl/homebrew-vale-ls/internal/build.Date=2026-10-15"
package build

import "runtime/debug"

var (
	Version = "DEV"
	Date    = "" // YYYY-MM-DD, empty for dev builds
)

func init() {
	// go install records the module version even without ldflags.
	if Version == "DEV" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
}
