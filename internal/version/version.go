// internal/version/version.go
package version

// Version is overridden at build time with -ldflags "-X seedalign/internal/version.Version=...".
var Version = "dev"
