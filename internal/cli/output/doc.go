// Package output renders tokvault CLI results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned text tables
//   - json.go, yaml.go: machine-readable output
//   - spinner.go: activity indicator for slow key derivation
//   - progress.go: byte progress for backup and restore
package output
