// Package main provides the entry point for tokvault.
//
// tokvault keeps auth tokens, session data, preferences, cached query
// results and sensitive settings in an encrypted local store.
//
// Usage:
//
//	tokvault token set --expires-in 1h eyJhbGciOi...
//	tokvault prefs get -o json
//	tokvault run --config tokvault.yaml
package main
