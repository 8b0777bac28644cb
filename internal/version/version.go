// Package version holds the paclair release version.
package version

// PaclairVersion is the current release version, overridden at build time
// with -ldflags.
var PaclairVersion = "2.1.0"
