// Package config defines the tokvault configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - convert.go: conversion into component settings
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and TOKVAULT_ environment variables.
package config
