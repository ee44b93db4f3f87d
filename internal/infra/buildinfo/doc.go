// Package buildinfo reports tokvault version information.
//
// Version, Commit and BuildTime are injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/tokvault-go/internal/infra/buildinfo.Version=v0.3.0"
//
// Missing values fall back to the module build information embedded by
// the Go toolchain.
package buildinfo
