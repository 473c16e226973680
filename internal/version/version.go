// Package version exposes the binary's build version.
package version

// value is stamped at build time via -ldflags.
var value = "dev"

// Value returns the version baked into the binary.
func Value() string {
	return value
}
