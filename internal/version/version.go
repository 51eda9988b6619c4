// Package version exposes the build version injected at link time.
package version

// version is set via -ldflags "-X .../internal/version.version=v1.2.3".
var version = "dev"

// Value returns the build version.
func Value() string {
	return version
}
