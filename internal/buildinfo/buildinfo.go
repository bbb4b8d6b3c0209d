// Package buildinfo holds the version string `--version` prints,
// grounded on perkeep.org/pkg/buildinfo's GitInfo/Version pair
// (buildinfo.go): a package-level var overridable at link time with
// `-ldflags -X`, falling back to "unknown" when the binary was built
// without one.
package buildinfo

// Version is set at build time via:
//
//	go build -ldflags "-X github.com/stsaz/fcom/internal/buildinfo.Version=1.0.0"
var Version string

// Summary returns Version, or "unknown" if the binary was built without
// the ldflags override.
func Summary() string {
	if Version == "" {
		return "unknown"
	}
	return Version
}
